package musiccast

import (
	"context"
	"fmt"
	"math"

	"github.com/anicoll/musiccast-integration/internal/pkg/features"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

func (d *Device) requireZone(zone string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.state.Zones[zone]; !ok {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}
	return nil
}

func (d *Device) requireZoneFeature(zone string, f features.ZoneFeature) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	z, ok := d.state.Zones[zone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}
	if !z.Features.Has(f) {
		return &UnsupportedFeatureError{Feature: f.String(), Zone: zone}
	}
	return nil
}

func (d *Device) requireFeature(f features.DeviceFeature) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.state.Features.Has(f) {
		return &UnsupportedFeatureError{Feature: f.String()}
	}
	return nil
}

// ################################
// power and volume

func (d *Device) TurnOn(ctx context.Context, zone string) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetPower(zone, model.PowerOn))
}

func (d *Device) TurnOff(ctx context.Context, zone string) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetPower(zone, model.PowerStandby))
}

func (d *Device) Mute(ctx context.Context, zone string, mute bool) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetMute(zone, mute))
}

// SetVolumeLevel maps level in [0, 1] onto the zone's volume range.
func (d *Device) SetVolumeLevel(ctx context.Context, zone string, level float64) error {
	if level < 0 || level > 1 || math.IsNaN(level) {
		return fmt.Errorf("volume level %v outside [0, 1]: %w", level, model.ErrValidation)
	}
	var minVol, maxVol int
	var found bool
	d.Read(func(s *model.DeviceState) {
		if z, ok := s.Zones[zone]; ok {
			found = true
			minVol, maxVol = z.MinVolume, z.MaxVolume
		}
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}
	vol := int(math.Round(float64(minVol) + float64(maxVol-minVol)*level))
	return d.do(ctx)(yxc.SetVolume(zone, vol, 1))
}

// VolumeUp raises the volume by step, or the zone default when step is 0.
func (d *Device) VolumeUp(ctx context.Context, zone string, step int) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.StepVolume(zone, "up", step))
}

func (d *Device) VolumeDown(ctx context.Context, zone string, step int) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.StepVolume(zone, "down", step))
}

// ################################
// sound

func (d *Device) SetToneControl(ctx context.Context, zone string, mode *string, bass, treble *int) error {
	if err := d.requireZoneFeature(zone, features.ToneControl); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetToneControl(zone, mode, bass, treble))
}

func (d *Device) SetEqualizer(ctx context.Context, zone string, mode *string, low, mid, high *int) error {
	if err := d.requireZoneFeature(zone, features.Equalizer); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetEqualizer(zone, mode, low, mid, high))
}

func (d *Device) SetDialogueLevel(ctx context.Context, zone string, level int) error {
	if err := d.requireZoneFeature(zone, features.DialogueLevel); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetDialogueLevel(zone, level))
}

func (d *Device) SetDialogueLift(ctx context.Context, zone string, level int) error {
	if err := d.requireZoneFeature(zone, features.DialogueLift); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetDialogueLift(zone, level))
}

func (d *Device) SetDTSDialogueControl(ctx context.Context, zone string, value int) error {
	if err := d.requireZoneFeature(zone, features.DTSDialogueControl); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetDTSDialogueControl(zone, value))
}

func (d *Device) SetExtraBass(ctx context.Context, zone string, on bool) error {
	if err := d.requireZoneFeature(zone, features.ExtraBass); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetExtraBass(zone, on))
}

func (d *Device) SetBassExtension(ctx context.Context, zone string, on bool) error {
	if err := d.requireZoneFeature(zone, features.BassExtension); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetBassExtension(zone, on))
}

func (d *Device) SetEnhancer(ctx context.Context, zone string, on bool) error {
	if err := d.requireZoneFeature(zone, features.Enhancer); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetEnhancer(zone, on))
}

func (d *Device) SetAdaptiveDRC(ctx context.Context, zone string, on bool) error {
	if err := d.requireZoneFeature(zone, features.AdaptiveDRC); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetAdaptiveDRC(zone, on))
}

func (d *Device) SetPureDirect(ctx context.Context, zone string, on bool) error {
	if err := d.requireZoneFeature(zone, features.PureDirect); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetPureDirect(zone, on))
}

func (d *Device) SetSurroundDecoderType(ctx context.Context, zone, decoder string) error {
	if err := d.requireZoneFeature(zone, features.SurrDecoderType); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetSurroundDecoderType(zone, decoder))
}

func (d *Device) SetLinkAudioDelay(ctx context.Context, zone, delay string) error {
	if err := d.requireZoneFeature(zone, features.LinkAudioDelay); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetLinkAudioDelay(zone, delay))
}

func (d *Device) SetLinkAudioQuality(ctx context.Context, zone, quality string) error {
	if err := d.requireZoneFeature(zone, features.LinkAudioQuality); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetLinkAudioQuality(zone, quality))
}

func (d *Device) SetLinkControl(ctx context.Context, zone, control string) error {
	if err := d.requireZoneFeature(zone, features.LinkControl); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetLinkControl(zone, control))
}

func (d *Device) SelectSoundMode(ctx context.Context, zone, program string) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetSoundProgram(zone, program))
}

// ################################
// device

func (d *Device) SetPartyMode(ctx context.Context, on bool) error {
	if err := d.requireFeature(features.PartyMode); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetPartyMode(on), nil)
}

func (d *Device) SetSpeakerA(ctx context.Context, on bool) error {
	if err := d.requireFeature(features.SpeakerA); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetSpeakerA(on), nil)
}

func (d *Device) SetSpeakerB(ctx context.Context, on bool) error {
	if err := d.requireFeature(features.SpeakerB); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetSpeakerB(on), nil)
}

// SetDimmer accepts the dimmer range and the special values in
// model.DimmerSpecials.
func (d *Device) SetDimmer(ctx context.Context, value int) error {
	if err := d.requireFeature(features.Dimmer); err != nil {
		return err
	}
	var dimmer *model.Dimmer
	d.Read(func(s *model.DeviceState) { dimmer = s.Dimmer })
	if dimmer == nil {
		return fmt.Errorf("%w: dimmer range not discovered", ErrConfiguration)
	}
	if _, special := model.DimmerSpecials[value]; !special {
		if err := dimmer.Check(value); err != nil {
			return err
		}
	}
	return d.do(ctx)(yxc.SetDimmer(value), nil)
}

// ################################
// netusb

func (d *Device) NetUSBPlay(ctx context.Context) error {
	return d.do(ctx)(yxc.NetUSBSetPlayback("play"))
}

func (d *Device) NetUSBPause(ctx context.Context) error {
	return d.do(ctx)(yxc.NetUSBSetPlayback("pause"))
}

func (d *Device) NetUSBStop(ctx context.Context) error {
	return d.do(ctx)(yxc.NetUSBSetPlayback("stop"))
}

func (d *Device) NetUSBPrevious(ctx context.Context) error {
	return d.do(ctx)(yxc.NetUSBSetPlayback("previous"))
}

func (d *Device) NetUSBNext(ctx context.Context) error {
	return d.do(ctx)(yxc.NetUSBSetPlayback("next"))
}

// toggleVerbsBelow is the first API version with setShuffle and setRepeat.
const toggleVerbsBelow = 1.19

// SetShuffle uses toggleShuffle on older firmware, and only when the
// current state differs.
func (d *Device) SetShuffle(ctx context.Context, on bool) error {
	var api float64
	var current bool
	d.Read(func(s *model.DeviceState) {
		api = s.APIVersion
		current = s.NetUSB.Shuffle != nil && *s.NetUSB.Shuffle == "on"
	})
	if api < toggleVerbsBelow {
		if current == on {
			return nil
		}
		return d.do(ctx)(yxc.NetUSBToggleShuffle(), nil)
	}
	mode := "off"
	if on {
		mode = "on"
	}
	return d.do(ctx)(yxc.NetUSBSetShuffle(mode))
}

// SetRepeat takes "off", "one" or "all". On older firmware it toggles once
// when the state differs, matching how those devices cycle repeat modes.
func (d *Device) SetRepeat(ctx context.Context, mode string) error {
	var api float64
	var current string
	d.Read(func(s *model.DeviceState) {
		api = s.APIVersion
		if s.NetUSB.Repeat != nil {
			current = *s.NetUSB.Repeat
		}
	})
	if api < toggleVerbsBelow {
		if current == mode || current == "one" {
			return nil
		}
		return d.do(ctx)(yxc.NetUSBToggleRepeat(), nil)
	}
	return d.do(ctx)(yxc.NetUSBSetRepeat(mode))
}

func (d *Device) RecallNetUSBPreset(ctx context.Context, zone string, preset int) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.NetUSBRecallPreset(zone, preset))
}

func (d *Device) StoreNetUSBPreset(ctx context.Context, preset int) error {
	return d.do(ctx)(yxc.NetUSBStorePreset(preset), nil)
}

// ################################
// tuner

func (d *Device) TunerPreviousStation(ctx context.Context) error {
	return d.tunerStep(ctx, "auto_down", "previous")
}

func (d *Device) TunerNextStation(ctx context.Context) error {
	return d.tunerStep(ctx, "auto_up", "next")
}

func (d *Device) tunerStep(ctx context.Context, tuning, dabDir string) error {
	var band string
	d.Read(func(s *model.DeviceState) {
		if s.Tuner.Band != nil {
			band = *s.Tuner.Band
		}
	})
	switch band {
	case "fm", "am":
		return d.do(ctx)(yxc.TunerSetFreq(band, tuning, 0))
	case "dab":
		return d.do(ctx)(yxc.TunerSetDABService(dabDir))
	}
	return nil
}

// ################################
// input and sleep

func (d *Device) SelectSource(ctx context.Context, zone, source, mode string) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetInput(zone, source, mode))
}

// SetSleepTimer rounds minutes up to the next supported value.
func (d *Device) SetSleepTimer(ctx context.Context, zone string, minutes int) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.do(ctx)(yxc.SetSleep(zone, roundSleep(minutes)))
}

func roundSleep(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	rounded := (minutes + 29) / 30 * 30
	return min(rounded, 120)
}
