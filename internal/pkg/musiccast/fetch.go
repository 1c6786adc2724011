package musiccast

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/features"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

// Fetch runs discovery and refreshes all live state. Cold data (network
// status, device info, features) is only requested the first time; the
// rest is requested on every call.
func (d *Device) Fetch(ctx context.Context) error {
	d.fetchMu.Lock()
	defer d.fetchMu.Unlock()

	if d.networkStatus == nil {
		ns, err := decode[model.NetworkStatus](ctx, d, yxc.GetNetworkStatus())
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.state.NetworkName = ns.NetworkName
		d.state.MacAddresses = ns.MacAddress
		d.mu.Unlock()
		d.networkStatus = &ns
	}

	if d.deviceInfo == nil {
		info, err := decode[model.DeviceInfo](ctx, d, yxc.GetDeviceInfo())
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.state.DeviceID = info.DeviceID
		d.state.ModelName = info.ModelName
		d.state.SystemVersion = info.SystemVersion
		d.state.APIVersion = info.APIVersion
		d.mu.Unlock()
		d.deviceInfo = &info
	}

	names, err := decode[model.NameText](ctx, d, yxc.GetNameText())
	if err != nil {
		return err
	}
	zoneNames := idText(names.ZoneList)

	if d.features == nil {
		f, err := decode[model.Features](ctx, d, yxc.GetFeatures())
		if err != nil {
			return err
		}
		d.applyFeatures(&f)
		d.features = &f
	}

	d.mu.Lock()
	d.state.ZoneNames = zoneNames
	for id, zone := range d.state.Zones {
		zone.Name = zoneNames[id]
	}
	d.state.InputNames = idText(names.InputList)
	feats := d.state.Features
	d.mu.Unlock()

	if nu := d.features.NetUSB; nu != nil && len(nu.FuncList) > 0 {
		if err := d.fetchNetUSB(ctx); err != nil {
			return err
		}
		if err := d.fetchNetUSBPresets(ctx); err != nil {
			return err
		}
	}
	if d.features.Tuner != nil {
		if err := d.fetchTuner(ctx); err != nil {
			return err
		}
	}
	if err := d.fetchDistribution(ctx); err != nil {
		return err
	}
	if feats.Has(features.AlarmOneday) || feats.Has(features.AlarmWeekly) {
		if err := d.fetchClock(ctx); err != nil {
			return err
		}
	}
	for _, id := range d.zoneIDs {
		if err := d.fetchZone(ctx, id); err != nil {
			return err
		}
	}
	return d.fetchFuncStatus(ctx)
}

func (d *Device) rangeStep(entry model.RangeStepEntry, scope string) (model.RangeStep, bool) {
	rs, ok := entry.RangeStep()
	if !ok {
		d.logger.Debug("skipping non-integral range",
			zap.String("scope", scope), zap.String("id", entry.ID),
			zap.Float64("min", entry.Min), zap.Float64("max", entry.Max), zap.Float64("step", entry.Step))
	}
	return rs, ok
}

func idText(list []model.IDText) map[string]string {
	out := make(map[string]string, len(list))
	for _, e := range list {
		out[e.ID] = e.Text
	}
	return out
}

func (d *Device) applyFeatures(f *model.Features) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state

	for _, token := range f.System.FuncList {
		bit, ok := features.LookupDevice(token)
		if !ok {
			d.logger.Info("unknown device feature", zap.String("model", s.ModelName), zap.String("feature", token))
			continue
		}
		s.Features |= bit
	}
	s.SystemInputs = f.System.InputList

	d.zoneIDs = d.zoneIDs[:0]
	for _, zf := range f.Zone {
		d.zoneIDs = append(d.zoneIDs, zf.ID)
		zone, ok := s.Zones[zf.ID]
		if !ok {
			zone = model.NewZoneState()
		}
		zone.SoundPrograms = zf.SoundProgramList
		if zf.ToneControlModeList != nil {
			zone.ToneControlModes = *zf.ToneControlModeList
		}
		if zf.EqualizerModeList != nil {
			zone.EqualizerModes = *zf.EqualizerModeList
		}
		zone.SurroundDecoderTypes = zf.SurrDecoderTypeList
		zone.LinkControlList = zf.LinkControlList
		zone.LinkAudioDelayList = zf.LinkAudioDelayList
		zone.LinkAudioQualityList = zf.LinkAudioQualityList
		zone.InputList = zf.InputList
		for _, entry := range zf.RangeStep {
			if rs, ok := d.rangeStep(entry, zf.ID); ok {
				zone.RangeStep[entry.ID] = rs
			}
		}
		for _, token := range zf.FuncList {
			bit, ok := features.LookupZone(token)
			if !ok {
				d.logger.Info("unknown zone feature",
					zap.String("model", s.ModelName), zap.String("zone", zf.ID), zap.String("feature", token))
				continue
			}
			zone.Features |= bit
		}
		if zone.Features.Has(features.Volume) {
			if v, ok := zone.RangeStep["volume"]; ok {
				zone.MinVolume = v.Min
				zone.MaxVolume = v.Max
			}
		}
		s.Zones[zf.ID] = zone
	}

	if c := f.Clock; c != nil {
		if slices.Contains(c.FuncList, "alarm") {
			if slices.Contains(c.AlarmModeList, model.AlarmOneday) {
				s.Features |= features.AlarmOneday
			}
			if slices.Contains(c.AlarmModeList, model.AlarmWeekly) {
				s.Features |= features.AlarmWeekly
			}
		}
		if slices.Contains(c.FuncList, "date_and_time") {
			s.Features |= features.Clock
		}
		for _, entry := range c.RangeStep {
			rs, ok := d.rangeStep(entry, "clock")
			if !ok {
				continue
			}
			switch entry.ID {
			case "alarm_volume":
				s.AlarmVolumeRng = rs
			case "alarm_fade":
				s.AlarmFadeRng = rs
			}
		}
		s.AlarmPresetList = c.AlarmPresetList
		s.AlarmInputList = c.AlarmInputList
	}

	if f.NetUSB != nil {
		s.NetUSBFuncList = f.NetUSB.FuncList
	}

	if s.Features.Has(features.Dimmer) {
		for _, entry := range f.System.RangeStep {
			if entry.ID != "dimmer" {
				continue
			}
			if rs, ok := d.rangeStep(entry, "system"); ok {
				s.Dimmer = &model.Dimmer{RangeStep: rs}
			}
		}
	}

	d.logger.Info("discovered device",
		zap.String("model", s.ModelName),
		zap.Stringer("features", s.Features),
		zap.Strings("zones", d.zoneIDs))
}

func (d *Device) fetchNetUSB(ctx context.Context) error {
	info, err := decode[model.NetUSBPlayInfo](ctx, d, yxc.NetUSBGetPlayInfo())
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := &d.state.NetUSB
	keep(&n.Input, info.Input)
	keep(&n.Playback, info.Playback)
	keep(&n.Repeat, info.Repeat)
	keep(&n.Shuffle, info.Shuffle)
	keep(&n.Artist, info.Artist)
	keep(&n.Album, info.Album)
	keep(&n.Track, info.Track)
	keep(&n.AlbumArtURL, info.AlbumArtURL)
	n.TotalTime = info.TotalTime
	n.PlayTime = info.PlayTime
	d.state.PlayTimeUpdated = time.Now().UTC()
	return nil
}

// keep replaces *dst with v when the device reported a value.
func keep[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func (d *Device) fetchNetUSBPresets(ctx context.Context) error {
	info, err := decode[model.NetUSBPresetInfo](ctx, d, yxc.NetUSBGetPresetInfo())
	if err != nil {
		return err
	}
	presets := make(map[int]model.NetUSBPreset, len(info.PresetInfo))
	for i, p := range info.PresetInfo {
		if p.Input == "unknown" {
			continue
		}
		presets[i+1] = p
	}
	d.mu.Lock()
	d.state.NetUSBPresets = presets
	d.mu.Unlock()
	return nil
}

func (d *Device) fetchTuner(ctx context.Context) error {
	info, err := decode[model.TunerPlayInfo](ctx, d, yxc.TunerGetPlayInfo())
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &d.state.Tuner
	keep(&t.Band, info.Band)
	if info.FM != nil {
		keep(&t.FMFreq, info.FM.Freq)
	}
	if info.AM != nil {
		keep(&t.AMFreq, info.AM.Freq)
	}
	if info.RDS != nil {
		keepText(&t.RDSTextA, info.RDS.RadioTextA)
		keepText(&t.RDSTextB, info.RDS.RadioTextB)
	}
	if info.DAB != nil {
		keepText(&t.DABServiceLabel, info.DAB.ServiceLabel)
		keepText(&t.DABDLS, info.DAB.DLS)
	}
	return nil
}

func keepText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// fetchDistribution refreshes group data. Group observers run afterwards
// unless a group operation holds the lock.
func (d *Device) fetchDistribution(ctx context.Context) error {
	locked, err := d.loadDistribution(ctx)
	if err != nil || locked {
		return err
	}
	return d.notifyGroup(ctx)
}

// loadDistribution stores the device's group data, keeping the previous
// role and id, and reports whether the group lock was held.
func (d *Device) loadDistribution(ctx context.Context) (locked bool, err error) {
	info, err := decode[model.DistributionInfo](ctx, d, yxc.GetDistributionInfo())
	if err != nil {
		return false, err
	}
	clients := make([]string, 0, len(info.ClientList))
	for _, c := range info.ClientList {
		clients = append(clients, c.IPAddress)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	s.LastGroupRole = s.GroupRole
	s.LastGroupID = s.GroupID
	s.GroupID = info.GroupID
	s.GroupName = info.GroupName
	s.GroupRole = info.Role
	s.GroupServerZone = info.ServerZone
	s.GroupClientList = clients
	return s.GroupLock.Locked(), nil
}

func (d *Device) fetchClock(ctx context.Context) error {
	settings, err := decode[model.ClockSettings](ctx, d, yxc.GetClockSettings())
	if err != nil {
		return err
	}
	alarm := settings.Alarm

	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	s.AlarmOn = alarm.AlarmOn
	s.AlarmVolume = alarm.Volume
	s.AlarmMode = alarm.Mode

	var days []string
	if s.Features.Has(features.AlarmWeekly) {
		days = append(days, model.AlarmWeekDays...)
	}
	if s.Features.Has(features.AlarmOneday) {
		days = append(days, model.AlarmOneday)
	}
	for _, day := range days {
		detail, ok := s.AlarmDetails[day]
		if !ok {
			detail = &model.AlarmDetails{}
			s.AlarmDetails[day] = detail
		}
		info := alarm.Day(day)
		detail.Enabled = info.Enable
		detail.Beep = info.Beep
		detail.Time = nil
		if info.Time != nil {
			t := alarmTimeToState(*info.Time)
			detail.Time = &t
		}
		detail.PlaybackType = info.PlaybackType
		detail.ResumeInput = nil
		if info.Resume != nil {
			detail.ResumeInput = info.Resume.Input
		}
		detail.PresetNum, detail.PresetType, detail.PresetInfo = nil, nil, nil
		if p := info.Preset; p != nil {
			detail.PresetNum = p.Num
			detail.PresetType = p.Type
			if p.Type != nil && *p.Type == "netusb" {
				detail.PresetInfo = p.NetUSBInfo
			} else {
				detail.PresetInfo = p.TunerInfo
			}
		}
	}
	return nil
}

// alarmTimeToState turns the device's "hhmm" into "hh:mm".
func alarmTimeToState(t string) string {
	if len(t) < 2 {
		return t
	}
	return t[:2] + ":" + t[2:]
}

func (d *Device) fetchFuncStatus(ctx context.Context) error {
	fs, err := decode[model.FuncStatus](ctx, d, yxc.GetFuncStatus())
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	if s.Features.Has(features.SpeakerA) {
		s.SpeakerA = fs.SpeakerA
	}
	if s.Features.Has(features.SpeakerB) {
		s.SpeakerB = fs.SpeakerB
	}
	if s.Features.Has(features.Dimmer) && s.Dimmer != nil && fs.Dimmer != nil {
		s.Dimmer = &model.Dimmer{RangeStep: s.Dimmer.RangeStep, Current: *fs.Dimmer}
	}
	if fs.PartyEnable != nil {
		s.PartyEnable = fs.PartyEnable
	}
	return nil
}

// fetchZone replaces the zone's live fields with the device's report.
func (d *Device) fetchZone(ctx context.Context, zoneID string) error {
	req, err := yxc.GetStatus(zoneID)
	if err != nil {
		return err
	}
	st, err := decode[model.ZoneStatus](ctx, d, req)
	if err != nil {
		return err
	}

	d.mu.Lock()
	zone, ok := d.state.Zones[zoneID]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zoneID)
	}
	d.state.PartyEnable = st.PartyEnable

	zone.Power = st.Power
	zone.CurrentVolume = st.Volume
	zone.Mute = st.Mute
	zone.SoundProgram = st.SoundProgram
	zone.Sleep = st.Sleep

	zone.ExtraBass = st.ExtraBass
	zone.BassExtension = st.BassExtension
	zone.AdaptiveDRC = st.AdaptiveDRC
	zone.Enhancer = st.Enhancer
	zone.PureDirect = st.PureDirect
	zone.SurroundDecoderType = st.SurrDecoderType

	eq := st.Equalizer
	if eq == nil {
		eq = &model.Equalizer{}
	}
	zone.EqualizerMode, zone.EqualizerLow, zone.EqualizerMid, zone.EqualizerHigh = eq.Mode, eq.Low, eq.Mid, eq.High

	tone := st.ToneControl
	if tone == nil {
		tone = &model.ToneControl{}
	}
	zone.ToneMode, zone.ToneBass, zone.ToneTreble = tone.Mode, tone.Bass, tone.Treble

	zone.DialogueLevel = st.DialogueLevel
	zone.DialogueLift = st.DialogueLift
	zone.DTSDialogueControl = st.DTSDialogueControl

	zone.LinkAudioDelay = st.LinkAudioDelay
	zone.LinkAudioQuality = st.LinkAudioQuality
	zone.LinkControl = st.LinkControl

	fire, reduce := d.updateInput(zone, st.Input)
	d.mu.Unlock()

	if fire {
		return d.inputGroupChange(ctx, reduce)
	}
	return nil
}
