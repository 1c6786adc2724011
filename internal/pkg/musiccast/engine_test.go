package musiccast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/musiccast-integration/internal/pkg/features"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

func ptr[T any](v T) *T { return &v }

func TestFetchDiscovery(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	d, _ := newTestDevice(t)
	s := d.Snapshot()

	assert.Equal(t, "AC44F2000001", d.DeviceID())
	assert.Equal(t, "RX-V6A", s.ModelName)
	assert.Equal(t, 2.08, s.APIVersion)
	assert.Equal(t, "Living Room", s.NetworkName)
	assert.True(t, s.Features.Has(features.SpeakerA|features.Dimmer|features.PartyMode))
	assert.True(t, s.Features.Has(features.AlarmOneday|features.AlarmWeekly|features.Clock))
	assert.Equal(t, []string{"main", "zone2"}, s.ZoneIDs())

	mz := s.Zones["main"]
	assert.Equal(t, "Living Room", mz.Name)
	assert.Equal(t, 161, mz.MaxVolume)
	assert.True(t, mz.Features.Has(features.ToneControl))
	assert.Equal(t, model.RangeStep{Min: -10, Max: 10, Step: 2}, mz.RangeStep["equalizer"])
	// half-dB steps cannot be represented and are left out
	assert.NotContains(t, mz.RangeStep, "actual_volume_db")
	assert.Equal(t, "mc_link", *mz.Input)
	assert.Equal(t, 40, *mz.CurrentVolume)
	assert.Equal(t, "Kitchen", s.Zones["zone2"].Name)

	assert.Equal(t, "Track", *s.NetUSB.Track)
	assert.Equal(t, map[int]model.NetUSBPreset{1: {Input: "net_radio", Text: "Jazz FM"}}, s.NetUSBPresets)
	assert.Equal(t, "Morning", s.Tuner.RDSTextA)
	assert.Equal(t, "FM 101.70 MHz", s.FMFreqString())
	assert.True(t, s.GroupIDIs(model.NullGroup))

	require.Contains(t, s.AlarmDetails, "monday")
	assert.Equal(t, "06:30", *s.AlarmDetails["monday"].Time)
	assert.Equal(t, "preset:netusb:1", s.AlarmDetails["monday"].Input())
	assert.Equal(t, "resume:spotify", s.AlarmDetails[model.AlarmOneday].Input())

	require.NotNil(t, s.Dimmer)
	assert.Equal(t, 3, s.Dimmer.Current)
	assert.Equal(t, 5, s.Dimmer.Max)
	assert.True(t, *s.SpeakerA)

	unknown := logs.FilterMessage("unknown device feature").All()
	require.Len(t, unknown, 1)
	assert.Equal(t, "brand_new_thing", unknown[0].ContextMap()["feature"])
}

func TestFetchColdDataOnce(t *testing.T) {
	d, ft := newTestDevice(t)

	require.NoError(t, d.Fetch(context.Background()))

	assert.Zero(t, ft.count("system/getFeatures"))
	assert.Zero(t, ft.count("system/getDeviceInfo"))
	assert.Zero(t, ft.count("system/getNetworkStatus"))
	assert.Equal(t, 1, ft.count("main/getStatus"))
	assert.Equal(t, 1, ft.count("dist/getDistributionInfo"))
}

func TestFetchConnectionError(t *testing.T) {
	ft := newFakeTransport()
	ft.errs["system/getNetworkStatus"] = &ConnectionError{Op: "get", Err: errors.New("refused")}
	d := newUnfetched(ft)

	err := d.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
	assert.Empty(t, d.DeviceID())
}

func TestHandleMergesOnlyPresentFields(t *testing.T) {
	d, ft := newTestDevice(t)
	before := d.Snapshot()

	notified := 0
	d.AddObserver(func() { notified++ })

	require.NoError(t, d.HandleDatagram(context.Background(), []byte(`{"main":{"volume":42}}`)))

	after := d.Snapshot()
	assert.Equal(t, 42, *after.Zones["main"].CurrentVolume)
	assert.Equal(t, *before.Zones["main"].Power, *after.Zones["main"].Power)
	assert.Equal(t, *before.Zones["main"].Input, *after.Zones["main"].Input)
	assert.Equal(t, *before.Zones["zone2"].CurrentVolume, *after.Zones["zone2"].CurrentVolume)
	assert.Empty(t, ft.paths())
	assert.Equal(t, 1, notified)
}

func TestHandleNilFetches(t *testing.T) {
	ft := newFakeTransport()
	d := newUnfetched(ft)
	notified := 0
	d.AddObserver(func() { notified++ })

	require.NoError(t, d.Handle(context.Background(), nil))

	assert.Equal(t, "AC44F2000001", d.DeviceID())
	assert.Equal(t, 1, ft.count("system/getFeatures"))
	assert.Equal(t, 1, ft.count("zone2/getStatus"))
	assert.Equal(t, 1, notified)
}

func TestHandleFlagsRefetch(t *testing.T) {
	d, ft := newTestDevice(t)
	ft.set("zone2/getStatus", `{"response_code":0,"power":"on","volume":25,"mute":true,"input":"hdmi1"}`)

	ev := &model.Event{
		Zone2:  &model.ZoneEvent{StatusUpdated: true},
		NetUSB: &model.NetUSBEvent{PlayTime: ptr(0)},
		System: &model.SystemEvent{FuncStatusUpdated: true},
	}
	require.NoError(t, d.Handle(context.Background(), ev))

	s := d.Snapshot()
	assert.Equal(t, 25, *s.Zones["zone2"].CurrentVolume)
	assert.True(t, *s.Zones["zone2"].Mute)
	assert.Equal(t, 0, *s.NetUSB.PlayTime)
	assert.Equal(t, []string{"zone2/getStatus", "system/getFuncStatus"}, ft.paths())
}

func TestHandleUnknownZone(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	d, ft := newTestDevice(t)
	require.NoError(t, d.Handle(context.Background(), &model.Event{Zone3: &model.ZoneEvent{Volume: ptr(10)}}))

	assert.NotContains(t, d.Snapshot().Zones, "zone3")
	assert.Empty(t, ft.paths())
	assert.Equal(t, 1, logs.FilterMessage("notification for unknown zone").Len())
}

func TestHandleDatagramInvalid(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	d, ft := newTestDevice(t)
	assert.NoError(t, d.HandleDatagram(context.Background(), []byte(`{"main":`)))
	assert.Empty(t, ft.paths())
	assert.Equal(t, 1, logs.FilterMessage("invalid notification").Len())
}

func TestHandleDatagramOneAtATime(t *testing.T) {
	d, _ := newTestDevice(t)
	var active, overlaps atomic.Int32
	d.AddObserver(func() {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload := fmt.Sprintf(`{"main":{"volume":%d}}`, i)
			assert.NoError(t, d.HandleDatagram(context.Background(), []byte(payload)))
		}()
	}
	wg.Wait()

	assert.Zero(t, overlaps.Load())
}

func TestInputChangeRunsGroupObservers(t *testing.T) {
	tests := map[string]struct {
		observerErr error
		input       string
		wantCalls   int
		wantReduce  bool
	}{
		"leaving link": {
			input:      "hdmi1",
			wantCalls:  1,
			wantReduce: true,
		},
		"leaving link with failing observer": {
			input:       "hdmi1",
			observerErr: errors.New("boom"),
			wantCalls:   1,
			wantReduce:  true,
		},
		"same input": {
			input:     "mc_link",
			wantCalls: 0,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d, _ := newTestDevice(t)
			calls := 0
			var reduceSeen bool
			d.AddGroupObserver(func(context.Context) error {
				calls++
				reduceSeen = d.GroupReduceBySource()
				return tc.observerErr
			})

			err := d.Handle(context.Background(), &model.Event{Main: &model.ZoneEvent{Input: ptr(tc.input)}})

			if tc.observerErr != nil {
				assert.ErrorIs(t, err, tc.observerErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantCalls, calls)
			assert.Equal(t, tc.wantReduce, reduceSeen)
			assert.False(t, d.GroupReduceBySource())
			assert.Equal(t, tc.input, *d.Snapshot().Zones["main"].Input)
		})
	}
}

func TestInputChangeIntoLink(t *testing.T) {
	d, _ := newTestDevice(t)
	require.NoError(t, d.Handle(context.Background(), &model.Event{Zone2: &model.ZoneEvent{Input: ptr("hdmi1")}}))

	calls := 0
	var reduceSeen bool
	d.AddGroupObserver(func(context.Context) error {
		calls++
		reduceSeen = d.GroupReduceBySource()
		return nil
	})
	require.NoError(t, d.Handle(context.Background(), &model.Event{Zone2: &model.ZoneEvent{Input: ptr(model.MCLink)}}))

	assert.Equal(t, 1, calls)
	assert.False(t, reduceSeen)
}

func TestInputChangeSkippedWhileGroupLocked(t *testing.T) {
	d, _ := newTestDevice(t)
	calls := 0
	d.AddGroupObserver(func(context.Context) error {
		calls++
		return nil
	})

	err := d.locked(context.Background(), func(ctx context.Context) error {
		return d.Handle(ctx, &model.Event{Main: &model.ZoneEvent{Input: ptr("hdmi1")}})
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestRemoveObserver(t *testing.T) {
	d, _ := newTestDevice(t)
	calls := 0
	remove := d.AddObserver(func() { calls++ })
	remove()

	require.NoError(t, d.Handle(context.Background(), &model.Event{Main: &model.ZoneEvent{Mute: ptr(true)}}))
	assert.Zero(t, calls)
}

func TestDistributionEventRunsGroupObservers(t *testing.T) {
	d, ft := newTestDevice(t)
	ft.set("dist/getDistributionInfo", `{"response_code":0,"group_id":"abc","role":"server","server_zone":"main",
		"client_list":[{"ip_address":"192.168.1.20"}]}`)

	calls := 0
	d.AddGroupObserver(func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, d.Handle(context.Background(), &model.Event{Dist: &model.DistEvent{DistInfoUpdated: true}}))

	assert.Equal(t, 1, calls)
	assert.True(t, d.GroupIsServer())
	assert.True(t, d.GroupClientsAdded("192.168.1.20"))
	s := d.Snapshot()
	assert.Equal(t, model.NullGroup, *s.LastGroupID)
	assert.Equal(t, "none", *s.LastGroupRole)
}

func TestWaitForDataUpdate(t *testing.T) {
	d, _ := newTestDevice(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := d.WaitForDataUpdate(ctx, func() bool { return false })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.NoError(t, d.WaitForDataUpdate(context.Background()))
}

func TestCheckGroupDataTimesOutWithOneRefetch(t *testing.T) {
	d, ft := newTestDevice(t)

	start := time.Now()
	ok, err := d.CheckGroupData(context.Background(), func() bool { return false })

	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), d.groupTimeout)
	assert.Equal(t, 1, ft.count("dist/getDistributionInfo"))
}

func TestGroupTimingDefaults(t *testing.T) {
	d := New("192.168.1.10", newFakeTransport())
	assert.Equal(t, 100*time.Millisecond, d.pollInterval)
	assert.Equal(t, time.Second, d.groupTimeout)

	d = New("192.168.1.10", newFakeTransport(), WithGroupTiming(10*time.Millisecond, 0))
	assert.Equal(t, 10*time.Millisecond, d.pollInterval)
	assert.Equal(t, time.Second, d.groupTimeout)
}

func TestCheckGroupDataDefaultTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the full group timeout")
	}
	ft := newFakeTransport()
	d := New("192.168.1.10", ft)
	require.NoError(t, d.Fetch(context.Background()))
	ft.reset()

	start := time.Now()
	ok, err := d.CheckGroupData(context.Background(), func() bool { return false })
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, 1, ft.count("dist/getDistributionInfo"))
}

func TestCheckGroupDataRefetchSatisfies(t *testing.T) {
	d, ft := newTestDevice(t)
	ft.set("dist/getDistributionInfo", `{"response_code":0,"group_id":"abc","role":"client"}`)

	ok, err := d.CheckGroupData(context.Background(), d.GroupIsClient)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckGroupDataCancelled(t *testing.T) {
	d, ft := newTestDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := d.CheckGroupData(ctx, func() bool { return false })
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ft.count("dist/getDistributionInfo"))
}
