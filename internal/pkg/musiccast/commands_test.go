package musiccast

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/musiccast-integration/internal/pkg/capability"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

func TestCommands(t *testing.T) {
	tests := map[string]struct {
		run  func(context.Context, *Device) error
		want []string
	}{
		"turn on": {
			run:  func(ctx context.Context, d *Device) error { return d.TurnOn(ctx, "zone2") },
			want: []string{"zone2/setPower?power=on"},
		},
		"turn off": {
			run:  func(ctx context.Context, d *Device) error { return d.TurnOff(ctx, "main") },
			want: []string{"main/setPower?power=standby"},
		},
		"mute": {
			run:  func(ctx context.Context, d *Device) error { return d.Mute(ctx, "main", true) },
			want: []string{"main/setMute?enable=true"},
		},
		"volume level": {
			run:  func(ctx context.Context, d *Device) error { return d.SetVolumeLevel(ctx, "main", 0.5) },
			want: []string{"main/setVolume?volume=81&step=1"},
		},
		"volume up default step": {
			run:  func(ctx context.Context, d *Device) error { return d.VolumeUp(ctx, "main", 0) },
			want: []string{"main/setVolume?volume=up"},
		},
		"volume down step": {
			run:  func(ctx context.Context, d *Device) error { return d.VolumeDown(ctx, "main", 5) },
			want: []string{"main/setVolume?volume=down&step=5"},
		},
		"tone control": {
			run: func(ctx context.Context, d *Device) error {
				return d.SetToneControl(ctx, "main", nil, ptr(2), nil)
			},
			want: []string{"main/setToneControl?bass=2"},
		},
		"extra bass": {
			run:  func(ctx context.Context, d *Device) error { return d.SetExtraBass(ctx, "main", true) },
			want: []string{"main/setExtraBass?enable=true"},
		},
		"sound mode": {
			run:  func(ctx context.Context, d *Device) error { return d.SelectSoundMode(ctx, "main", "stereo") },
			want: []string{"main/setSoundProgram?program=stereo"},
		},
		"speaker a": {
			run:  func(ctx context.Context, d *Device) error { return d.SetSpeakerA(ctx, false) },
			want: []string{"system/setSpeakerA?enable=false"},
		},
		"party mode": {
			run:  func(ctx context.Context, d *Device) error { return d.SetPartyMode(ctx, true) },
			want: []string{"system/setPartyMode?enable=true"},
		},
		"dimmer": {
			run:  func(ctx context.Context, d *Device) error { return d.SetDimmer(ctx, 4) },
			want: []string{"system/setDimmer?value=4"},
		},
		"dimmer auto": {
			run:  func(ctx context.Context, d *Device) error { return d.SetDimmer(ctx, -1) },
			want: []string{"system/setDimmer?value=-1"},
		},
		"play": {
			run:  func(ctx context.Context, d *Device) error { return d.NetUSBPlay(ctx) },
			want: []string{"netusb/setPlayback?playback=play"},
		},
		"next track": {
			run:  func(ctx context.Context, d *Device) error { return d.NetUSBNext(ctx) },
			want: []string{"netusb/setPlayback?playback=next"},
		},
		"shuffle": {
			run:  func(ctx context.Context, d *Device) error { return d.SetShuffle(ctx, true) },
			want: []string{"netusb/setShuffle?mode=on"},
		},
		"repeat": {
			run:  func(ctx context.Context, d *Device) error { return d.SetRepeat(ctx, "all") },
			want: []string{"netusb/setRepeat?mode=all"},
		},
		"next station fm": {
			run:  func(ctx context.Context, d *Device) error { return d.TunerNextStation(ctx) },
			want: []string{"tuner/setFreq?band=fm&tuning=auto_up&num=0"},
		},
		"previous station fm": {
			run:  func(ctx context.Context, d *Device) error { return d.TunerPreviousStation(ctx) },
			want: []string{"tuner/setFreq?band=fm&tuning=auto_down&num=0"},
		},
		"select source": {
			run:  func(ctx context.Context, d *Device) error { return d.SelectSource(ctx, "main", "hdmi1", "") },
			want: []string{"main/setInput?input=hdmi1"},
		},
		"recall preset": {
			run:  func(ctx context.Context, d *Device) error { return d.RecallNetUSBPreset(ctx, "main", 1) },
			want: []string{"netusb/recallPreset?zone=main&num=1"},
		},
		"store preset": {
			run:  func(ctx context.Context, d *Device) error { return d.StoreNetUSBPreset(ctx, 3) },
			want: []string{"netusb/storePreset?num=3"},
		},
		"sleep rounds up": {
			run:  func(ctx context.Context, d *Device) error { return d.SetSleepTimer(ctx, "main", 45) },
			want: []string{"main/setSleep?sleep=60"},
		},
		"sleep capped": {
			run:  func(ctx context.Context, d *Device) error { return d.SetSleepTimer(ctx, "main", 500) },
			want: []string{"main/setSleep?sleep=120"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, ft := newTestDevice(t)
			require.NoError(t, tc.run(context.Background(), d))
			assert.Equal(t, tc.want, ft.paths())
		})
	}
}

func TestCommandsFailBeforeSending(t *testing.T) {
	tests := map[string]struct {
		run     func(context.Context, *Device) error
		wantErr error
	}{
		"unknown zone": {
			run:     func(ctx context.Context, d *Device) error { return d.TurnOn(ctx, "zone3") },
			wantErr: ErrZoneNotFound,
		},
		"zone feature missing": {
			run:     func(ctx context.Context, d *Device) error { return d.SetDialogueLevel(ctx, "main", 1) },
			wantErr: ErrUnsupported,
		},
		"zone feature missing in other zone": {
			run:     func(ctx context.Context, d *Device) error { return d.SetExtraBass(ctx, "zone2", true) },
			wantErr: ErrUnsupported,
		},
		"device feature missing": {
			run:     func(ctx context.Context, d *Device) error { return d.SetSpeakerB(ctx, true) },
			wantErr: ErrUnsupported,
		},
		"dimmer out of range": {
			run:     func(ctx context.Context, d *Device) error { return d.SetDimmer(ctx, 9) },
			wantErr: model.ErrValidation,
		},
		"volume level out of range": {
			run:     func(ctx context.Context, d *Device) error { return d.SetVolumeLevel(ctx, "main", 1.5) },
			wantErr: model.ErrValidation,
		},
		"invalid repeat": {
			run:     func(ctx context.Context, d *Device) error { return d.SetRepeat(ctx, "twice") },
			wantErr: yxc.ErrValidation,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, ft := newTestDevice(t)
			assert.ErrorIs(t, tc.run(context.Background(), d), tc.wantErr)
			assert.Empty(t, ft.paths())
		})
	}
}

func TestUnsupportedFeatureErrorNamesFeature(t *testing.T) {
	d, _ := newTestDevice(t)

	err := d.SetDialogueLift(context.Background(), "zone2", 1)
	var ufe *UnsupportedFeatureError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "dialogue_lift", ufe.Feature)
	assert.Equal(t, "zone2", ufe.Zone)
}

func TestToggleVerbsOnOldFirmware(t *testing.T) {
	tests := map[string]struct {
		run  func(context.Context, *Device) error
		want []string
	}{
		"shuffle on from off toggles": {
			run:  func(ctx context.Context, d *Device) error { return d.SetShuffle(ctx, true) },
			want: []string{"netusb/toggleShuffle"},
		},
		"shuffle off when off does nothing": {
			run:  func(ctx context.Context, d *Device) error { return d.SetShuffle(ctx, false) },
			want: []string{},
		},
		"repeat all from off toggles": {
			run:  func(ctx context.Context, d *Device) error { return d.SetRepeat(ctx, "all") },
			want: []string{"netusb/toggleRepeat"},
		},
		"repeat off when off does nothing": {
			run:  func(ctx context.Context, d *Device) error { return d.SetRepeat(ctx, "off") },
			want: []string{},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ft := newFakeTransport()
			ft.set("system/getDeviceInfo", `{"response_code":0,"model_name":"WX-010","device_id":"X","api_version":1.17}`)
			d := newUnfetched(ft)
			require.NoError(t, d.Fetch(context.Background()))
			ft.reset()

			require.NoError(t, tc.run(context.Background(), d))
			assert.Equal(t, tc.want, ft.paths())
		})
	}
}

func TestTunerDAB(t *testing.T) {
	d, ft := newTestDevice(t)
	ft.set("tuner/getPlayInfo", `{"response_code":0,"band":"dab","dab":{"service_label":"BBC","dls":"News"}}`)
	require.NoError(t, d.Handle(context.Background(), &model.Event{Tuner: &model.TunerEvent{PlayInfoUpdated: true}}))
	ft.reset()

	require.NoError(t, d.TunerNextStation(context.Background()))
	require.NoError(t, d.TunerPreviousStation(context.Background()))
	assert.Equal(t, []string{"tuner/setDabService?dir=next", "tuner/setDabService?dir=previous"}, ft.paths())

	s := d.Snapshot()
	assert.Equal(t, "News", s.TunerMediaTitle())
	assert.Equal(t, "BBC", s.TunerMediaArtist())
}

func TestConfigureAlarm(t *testing.T) {
	tests := map[string]struct {
		cfg  AlarmConfig
		want yxc.AlarmSettings
	}{
		"switch on only": {
			cfg:  AlarmConfig{AlarmOn: ptr(true)},
			want: yxc.AlarmSettings{AlarmOn: ptr(true)},
		},
		"volume rounds to step": {
			cfg:  AlarmConfig{Volume: ptr(0.51)},
			want: yxc.AlarmSettings{Volume: ptr(30)},
		},
		"beep sends stored time": {
			cfg: AlarmConfig{Mode: ptr("weekly"), Day: ptr("monday"), Beep: ptr(false)},
			want: yxc.AlarmSettings{
				Mode:   ptr("weekly"),
				Detail: &yxc.AlarmDetail{Day: "monday", Beep: ptr(false), Time: ptr("0630")},
			},
		},
		"resume source": {
			cfg: AlarmConfig{Mode: ptr("oneday"), Day: ptr("oneday"), Time: ptr("07:45"), Source: ptr("resume:net_radio")},
			want: yxc.AlarmSettings{
				Mode: ptr("oneday"),
				Detail: &yxc.AlarmDetail{
					Day: "oneday", Time: ptr("0745"),
					PlaybackType: ptr("resume"), Resume: &yxc.AlarmResume{Input: "net_radio"},
				},
			},
		},
		"preset source": {
			cfg: AlarmConfig{Mode: ptr("weekly"), Day: ptr("friday"), Time: ptr("06:00"), EnableDay: ptr(true), Source: ptr("preset:netusb:1")},
			want: yxc.AlarmSettings{
				Mode: ptr("weekly"),
				Detail: &yxc.AlarmDetail{
					Day: "friday", Time: ptr("0600"), Enable: ptr(true),
					PlaybackType: ptr("preset"), Preset: &yxc.AlarmPresets{Type: "netusb", Num: ptr(1)},
				},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, ft := newTestDevice(t)
			require.NoError(t, d.ConfigureAlarm(context.Background(), tc.cfg))
			assert.Equal(t, tc.want, ft.lastBody("clock/setAlarmSettings"))
		})
	}
}

func TestConfigureAlarmInvalid(t *testing.T) {
	tests := map[string]AlarmConfig{
		"day without mode":     {Day: ptr("monday")},
		"time without day":     {Time: ptr("07:00")},
		"unknown mode":         {Mode: ptr("daily"), Day: ptr("monday")},
		"weekday with oneday":  {Mode: ptr("oneday"), Day: ptr("monday")},
		"oneday with weekly":   {Mode: ptr("weekly"), Day: ptr("oneday")},
		"bad time":             {Mode: ptr("weekly"), Day: ptr("monday"), Time: ptr("7am")},
		"bad source":           {Mode: ptr("weekly"), Day: ptr("monday"), Source: ptr("preset:netusb")},
		"unknown playback":     {Mode: ptr("weekly"), Day: ptr("monday"), Source: ptr("radio:fm")},
		"volume out of bounds": {Volume: ptr(-0.1)},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			d, ft := newTestDevice(t)
			assert.ErrorIs(t, d.ConfigureAlarm(context.Background(), cfg), model.ErrValidation)
			assert.Empty(t, ft.paths())
		})
	}
}

func TestBrowseCategories(t *testing.T) {
	d, _ := newTestDevice(t)

	items, err := d.BrowseCategories("main")
	require.NoError(t, err)
	assert.Equal(t, []MediaItem{
		{Title: "Presets", ContentID: "presets", CanBrowse: true},
		{Title: "Net Radio", ContentID: "input:net_radio", CanBrowse: true},
		{Title: "server", ContentID: "input:server", CanBrowse: true},
	}, items)

	_, err = d.BrowseCategories("zone4")
	assert.ErrorIs(t, err, ErrZoneNotFound)

	assert.Equal(t, []MediaItem{{Title: "net_radio - Jazz FM", ContentID: "presets:1", CanPlay: true}}, d.Presets())
}

func TestListBrowsing(t *testing.T) {
	ctx := context.Background()
	d, ft := newTestDevice(t)
	ft.set("netusb/getListInfo", `{"response_code":0,"input":"server","menu_layer":1,"max_line":2,"index":0,
		"menu_name":"NAS","list_info":[{"text":"Music","attribute":2},{"text":"song.flac","attribute":4}]}`)

	info, err := d.ListInfo(ctx, "server", 0)
	require.NoError(t, err)
	assert.Equal(t, "NAS", info.MenuName)
	require.Len(t, info.ListInfo, 2)

	dir := ListItemMedia("server", 2, 0, info.ListInfo[0])
	assert.True(t, dir.CanBrowse)
	assert.False(t, dir.CanPlay)
	assert.Equal(t, "list:server:2_2:0", dir.ContentID)
	assert.True(t, ListItemMedia("server", 2, 1, info.ListInfo[1]).CanPlay)

	require.NoError(t, d.SelectListItem(ctx, "main", 0))
	require.NoError(t, d.PlayListMedia(ctx, "main", 1))
	require.NoError(t, d.ReturnInList(ctx, "main"))
	require.NoError(t, d.SetSearchString(ctx, "jazz"))
	assert.Equal(t, []string{
		"netusb/getListInfo?input=server&index=0&size=8&lang=en&list_id=main",
		"netusb/setListControl?list_id=main&type=select&index=0&zone=main",
		"netusb/setListControl?list_id=main&type=play&index=1&zone=main",
		"netusb/setListControl?list_id=main&type=return&zone=main",
		"netusb/setSearchString",
	}, ft.paths())
	assert.Equal(t, "jazz", d.Snapshot().SearchString)

	_, err = d.ListInfo(ctx, "server", 3)
	assert.ErrorIs(t, err, yxc.ErrValidation)
}

func TestReturnToLayer(t *testing.T) {
	ctx := context.Background()
	d, ft := newTestDevice(t)
	layer := 2
	ft.set("netusb/getListInfo", `{"response_code":0,"menu_layer":2}`)
	ft.after = func(c call) {
		if c.Path == "netusb/setListControl?list_id=main&type=return&zone=main" {
			layer--
			ft.set("netusb/getListInfo", `{"response_code":0,"menu_layer":`+strconv.Itoa(layer)+`}`)
		}
	}

	require.NoError(t, d.ReturnToLayer(ctx, "main", "server", 0))
	assert.Equal(t, 2, ft.count("netusb/setListControl"))
	assert.Equal(t, 3, ft.count("netusb/getListInfo"))
}

func TestPlayURL(t *testing.T) {
	ctx := context.Background()
	d, ft := newTestDevice(t, WithUPnPDescription("http://192.168.1.10:49154/MediaRenderer/desc.xml"))

	require.NoError(t, d.PlayURL(ctx, "main", "http://host/track.mp3?x=1&y=2", "Tom & Jerry", ""))

	assert.Equal(t, []string{"main/setInput?input=server&mode=autoplay_disabled"}, ft.paths())
	assert.Equal(t, []string{
		"Stop(InstanceID)",
		"SetAVTransportURI(InstanceID,CurrentURI,CurrentURIMetaData)",
		"Play(InstanceID,Speed)",
	}, ft.avt)
}

func TestPlayURLConfiguration(t *testing.T) {
	ctx := context.Background()

	d, ft := newTestDevice(t)
	assert.ErrorIs(t, d.PlayURL(ctx, "main", "http://host/a.mp3", "a", ""), ErrConfiguration)
	assert.Empty(t, ft.paths())

	plain := newUnfetched(struct{ Transport }{newFakeTransport()}, WithUPnPDescription("http://192.168.1.10:49154/desc.xml"))
	assert.ErrorIs(t, plain.PlayURL(ctx, "main", "http://host/a.mp3", "a", ""), ErrConfiguration)
}

func TestDIDL(t *testing.T) {
	tests := map[string]struct {
		url, mime, wantClass string
	}{
		"audio":   {url: "http://host/a.mp3", mime: "audio/mpeg", wantClass: "object.item.audioItem"},
		"video":   {url: "http://host/a.mp4", mime: "video/mp4", wantClass: "object.item.videoItem"},
		"hls":     {url: "http://host/live", mime: "application/vnd.apple.mpegurl", wantClass: "object.item.videoItem"},
		"image":   {url: "http://host/cover.png?size=large", wantClass: "object.item.imageItem"},
		"unknown": {url: "http://host/stream", wantClass: "object.item"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mime := tc.mime
			if mime == "" {
				mime = guessMIME(tc.url)
			}
			meta := didl(tc.url, "A & B", mime)
			assert.Contains(t, meta, "<upnp:class>"+tc.wantClass+"</upnp:class>")
			assert.Contains(t, meta, "<dc:title>A &amp; B</dc:title>")
			assert.Contains(t, meta, `protocolInfo="http-get:*:`+mime+`:*"`)
		})
	}
	assert.Equal(t, "application/octet-stream", guessMIME("http://host/stream"))
}

func TestCapabilities(t *testing.T) {
	d, _ := newTestDevice(t)

	ids := func(caps []*capability.Capability) []string {
		out := make([]string, 0, len(caps))
		for _, c := range caps {
			out = append(out, c.ID())
		}
		return out
	}

	device := d.Capabilities()
	assert.Equal(t, []string{"speaker_a", "dimmer", "party_mode", "network_name", "system_version"}, ids(device))
	assert.Equal(t, true, device[0].Value())
	assert.Equal(t, 3, device[1].Value())
	assert.Equal(t, "auto", device[1].Options()[-1])
	assert.Equal(t, "Living Room", device[3].Value())

	zone, err := d.ZoneCapabilities("main")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"zone_main_sleep",
		"zone_main_tone_control_mode", "zone_main_tone_control_bass", "zone_main_tone_control_treble",
		"zone_main_equalizer_mode", "zone_main_equalizer_low", "zone_main_equalizer_mid", "zone_main_equalizer_high",
		"zone_main_link_control",
		"zone_main_extra_bass",
		"zone_main_power", "zone_main_volume", "zone_main_input",
	}, ids(zone))

	_, err = d.ZoneCapabilities("zone3")
	assert.ErrorIs(t, err, ErrZoneNotFound)
}

func TestCapabilitySetters(t *testing.T) {
	ctx := context.Background()
	d, ft := newTestDevice(t)
	byID := map[string]*capability.Capability{}
	zone, err := d.ZoneCapabilities("main")
	require.NoError(t, err)
	for _, c := range append(d.Capabilities(), zone...) {
		byID[c.ID()] = c
	}

	require.NoError(t, byID["zone_main_equalizer_low"].Set(ctx, 4))
	require.NoError(t, byID["zone_main_sleep"].Set(ctx, float64(30)))
	require.NoError(t, byID["zone_main_link_control"].Set(ctx, "stability"))
	require.NoError(t, byID["dimmer"].Set(ctx, -1))
	require.NoError(t, byID["zone_main_extra_bass"].Set(ctx, true))
	assert.Equal(t, []string{
		"main/setEqualizer?low=4",
		"main/setSleep?sleep=30",
		"main/setLinkControl?control=stability",
		"system/setDimmer?value=-1",
		"main/setExtraBass?enable=true",
	}, ft.paths())
	ft.reset()

	assert.ErrorIs(t, byID["zone_main_equalizer_low"].Set(ctx, 3), model.ErrValidation)
	assert.ErrorIs(t, byID["zone_main_sleep"].Set(ctx, 45), model.ErrValidation)
	assert.ErrorIs(t, byID["zone_main_link_control"].Set(ctx, "turbo"), model.ErrValidation)
	assert.ErrorIs(t, byID["zone_main_power"].Set(ctx, true), capability.ErrReadOnly)
	assert.Empty(t, ft.paths())

	require.NoError(t, d.Handle(ctx, &model.Event{Main: &model.ZoneEvent{Volume: ptr(55)}}))
	assert.Equal(t, 55, byID["zone_main_volume"].Value())
	assert.Equal(t, true, byID["zone_main_power"].Value())
}
