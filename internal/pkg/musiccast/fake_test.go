package musiccast

import (
	"context"
	"maps"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type call struct {
	Method string
	Path   string
	Body   any
}

// fakeTransport answers YXC requests from canned JSON keyed by path without
// the query, and records every call.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []call
	avt       []string
	// after runs once a call is recorded, outside the lock.
	after func(c call)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: maps.Clone(fixture),
		errs:      map[string]error{},
	}
}

func (f *fakeTransport) Get(_ context.Context, path string) ([]byte, error) {
	return f.serve(call{Method: http.MethodGet, Path: path})
}

func (f *fakeTransport) Post(_ context.Context, path string, body any) ([]byte, error) {
	return f.serve(call{Method: http.MethodPost, Path: path, Body: body})
}

func (f *fakeTransport) AVTransport(_ context.Context, _ string, action string, args ...Arg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(args))
	for _, a := range args {
		names = append(names, a.Name)
	}
	f.avt = append(f.avt, action+"("+strings.Join(names, ",")+")")
	return nil
}

func (f *fakeTransport) serve(c call) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	key, _, _ := strings.Cut(c.Path, "?")
	body, ok := f.responses[key]
	err := f.errs[key]
	after := f.after
	f.mu.Unlock()

	if after != nil {
		after(c)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		body = `{"response_code":0}`
	}
	return []byte(body), nil
}

func (f *fakeTransport) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = body
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.avt = nil
}

func (f *fakeTransport) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Path)
	}
	return out
}

// count returns how many calls went to path, ignoring the query.
func (f *fakeTransport) count(path string) int {
	n := 0
	for _, p := range f.paths() {
		if key, _, _ := strings.Cut(p, "?"); key == path {
			n++
		}
	}
	return n
}

func (f *fakeTransport) lastBody(path string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Path == path {
			return f.calls[i].Body
		}
	}
	return nil
}

// newTestDevice returns a fetched device backed by a fake transport, with
// short group timings.
func newTestDevice(t *testing.T, opts ...Option) (*Device, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	d := newUnfetched(ft, opts...)
	require.NoError(t, d.Fetch(context.Background()))
	ft.reset()
	return d, ft
}

func newUnfetched(tr Transport, opts ...Option) *Device {
	d := New("192.168.1.10", tr, opts...)
	d.pollInterval = 5 * time.Millisecond
	d.groupTimeout = 60 * time.Millisecond
	return d
}

var fixture = map[string]string{
	"system/getNetworkStatus": `{"response_code":0,"network_name":"Living Room","mac_address":{"wired_lan":"AC44F2000001"}}`,
	"system/getDeviceInfo": `{"response_code":0,"model_name":"RX-V6A","device_id":"AC44F2000001",
		"system_version":1.7,"api_version":2.08}`,
	"system/getNameText": `{"response_code":0,
		"zone_list":[{"id":"main","text":"Living Room"},{"id":"zone2","text":"Kitchen"}],
		"input_list":[{"id":"spotify","text":"Spotify"},{"id":"hdmi1","text":"TV"},{"id":"net_radio","text":"Net Radio"}]}`,
	"system/getFeatures": `{"response_code":0,
		"system":{"func_list":["wired_lan","speaker_a","dimmer","party_mode","brand_new_thing"],"zone_num":2,
			"input_list":[
				{"id":"spotify","distribution_enable":true,"play_info_type":"netusb"},
				{"id":"hdmi1","distribution_enable":true,"play_info_type":"none"},
				{"id":"mc_link","distribution_enable":false,"play_info_type":"netusb"}],
			"range_step":[{"id":"dimmer","min":0,"max":5,"step":1}]},
		"zone":[
			{"id":"main","func_list":["power","sleep","volume","mute","sound_program","tone_control","equalizer","extra_bass","link_control"],
				"input_list":["spotify","hdmi1","mc_link","server","net_radio"],
				"sound_program_list":["straight","stereo"],
				"link_control_list":["standard","stability"],
				"range_step":[{"id":"volume","min":0,"max":161,"step":1},{"id":"tone_control","min":-6,"max":6,"step":1},
					{"id":"equalizer","min":-10,"max":10,"step":2},{"id":"actual_volume_db","min":-80.5,"max":16.5,"step":0.5}]},
			{"id":"zone2","func_list":["power","volume","mute"],"input_list":["spotify","hdmi1","mc_link"],
				"range_step":[{"id":"volume","min":0,"max":60,"step":1}]}],
		"netusb":{"func_list":["repeat","shuffle"]},
		"tuner":{"func_list":["fm","am"]},
		"clock":{"func_list":["alarm","date_and_time"],
			"range_step":[{"id":"alarm_volume","min":0,"max":60,"step":2},{"id":"alarm_fade","min":0,"max":60,"step":1}],
			"alarm_mode_list":["oneday","weekly"],"alarm_input_list":["spotify","net_radio"],"alarm_preset_list":["netusb"]}}`,
	"main/getStatus": `{"response_code":0,"power":"on","sleep":0,"volume":40,"mute":false,"input":"mc_link",
		"sound_program":"straight","extra_bass":false,"party_enable":false,
		"tone_control":{"mode":"manual","bass":0,"treble":0},"equalizer":{"mode":"manual","low":0,"mid":0,"high":0},
		"link_control":"standard"}`,
	"zone2/getStatus":         `{"response_code":0,"power":"standby","volume":20,"mute":false,"input":"spotify"}`,
	"netusb/getPlayInfo":      `{"response_code":0,"input":"spotify","playback":"play","repeat":"off","shuffle":"off","artist":"Artist","album":"Album","track":"Track","albumart_url":"/YamahaRemoteControl/AlbumART/AlbumART.jpg","total_time":200,"play_time":10}`,
	"netusb/getPresetInfo":    `{"response_code":0,"preset_info":[{"input":"net_radio","text":"Jazz FM"},{"input":"unknown","text":""}]}`,
	"tuner/getPlayInfo":       `{"response_code":0,"band":"fm","fm":{"freq":101700},"rds":{"radio_text_a":" Morning ","radio_text_b":""}}`,
	"dist/getDistributionInfo": `{"response_code":0,"group_id":"00000000000000000000000000000000","group_name":"","role":"none","client_list":[]}`,
	"clock/getSettings": `{"response_code":0,"alarm":{"alarm_on":true,"volume":30,"mode":"weekly",
		"oneday":{"enable":false,"time":"0700","beep":false,"playback_type":"resume","resume":{"input":"spotify"}},
		"monday":{"enable":true,"time":"0630","beep":true,"playback_type":"preset","preset":{"type":"netusb","num":1,"netusb_info":{"input":"net_radio","text":"Jazz FM"}}}}}`,
	"system/getFuncStatus": `{"response_code":0,"speaker_a":true,"dimmer":3,"party_enable":false}`,
}
