package musiccast

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anicoll/musiccast-integration/internal/pkg/capability"
	"github.com/anicoll/musiccast-integration/internal/pkg/features"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

// value wraps a state read into a capability getter that takes the read
// lock itself.
func (d *Device) value(f func(*model.DeviceState) any) func() any {
	return func() any {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return f(d.state)
	}
}

func (d *Device) zoneValue(zone string, f func(*model.ZoneState) any) func() any {
	return d.value(func(s *model.DeviceState) any {
		z, ok := s.Zones[zone]
		if !ok {
			return nil
		}
		return f(z)
	})
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringOptions(values []string) map[any]string {
	out := make(map[any]string, len(values))
	for _, v := range values {
		out[v] = v
	}
	return out
}

func optionString(fn func(context.Context, string) error) func(context.Context, any) error {
	return func(ctx context.Context, v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: want a string, got %T", capability.ErrInvalidType, v)
		}
		return fn(ctx, s)
	}
}

func optionInt(fn func(context.Context, int) error) func(context.Context, any) error {
	return func(ctx context.Context, v any) error {
		n, ok := v.(int)
		if !ok {
			return fmt.Errorf("%w: want a number, got %T", capability.ErrInvalidType, v)
		}
		return fn(ctx, n)
	}
}

// Capabilities lists the device level setters followed by the read-only
// device sensors.
func (d *Device) Capabilities() []*capability.Capability {
	var feats features.DeviceFeature
	var dimmer *model.Dimmer
	d.Read(func(s *model.DeviceState) {
		feats = s.Features
		if s.Dimmer != nil {
			dm := *s.Dimmer
			dimmer = &dm
		}
	})

	var out []*capability.Capability
	if feats.Has(features.SpeakerA) {
		out = append(out, capability.NewBinarySetter(
			capability.ID(false, "speaker_a", ""), "Speaker A", capability.Config,
			d.value(func(s *model.DeviceState) any { return deref(s.SpeakerA) }),
			d.SetSpeakerA,
		))
	}
	if feats.Has(features.SpeakerB) {
		out = append(out, capability.NewBinarySetter(
			capability.ID(false, "speaker_b", ""), "Speaker B", capability.Config,
			d.value(func(s *model.DeviceState) any { return deref(s.SpeakerB) }),
			d.SetSpeakerB,
		))
	}
	if feats.Has(features.Dimmer) && dimmer != nil {
		options := map[any]string{}
		for _, v := range dimmer.Values() {
			options[v] = strconv.Itoa(v)
		}
		for v, label := range model.DimmerSpecials {
			options[v] = label
		}
		out = append(out, capability.NewOptionSetter(
			capability.ID(false, "dimmer", ""), "Display Brightness", capability.Config,
			d.value(func(s *model.DeviceState) any {
				if s.Dimmer == nil {
					return nil
				}
				return s.Dimmer.Current
			}),
			options,
			optionInt(d.SetDimmer),
		))
	}
	if feats.Has(features.PartyMode) {
		out = append(out, capability.NewBinarySetter(
			capability.ID(false, "party_mode", ""), "Party Mode", capability.Config,
			d.value(func(s *model.DeviceState) any { return deref(s.PartyEnable) }),
			d.SetPartyMode,
		))
	}

	out = append(out,
		capability.NewSensor(capability.KindTextSensor,
			capability.ID(false, "network_name", ""), "Network Name", capability.Diagnostic,
			d.value(func(s *model.DeviceState) any { return s.NetworkName })),
		capability.NewSensor(capability.KindNumberSensor,
			capability.ID(false, "system_version", ""), "System Version", capability.Diagnostic,
			d.value(func(s *model.DeviceState) any { return s.SystemVersion })),
	)
	return out
}

// ZoneCapabilities lists the setters for every feature of zone in feature
// bit order, followed by the zone sensors.
func (d *Device) ZoneCapabilities(zone string) ([]*capability.Capability, error) {
	var z model.ZoneState
	var found bool
	d.Read(func(s *model.DeviceState) {
		if zs, ok := s.Zones[zone]; ok {
			found = true
			z = *zs.Clone()
		}
	})
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
	}

	id := func(f features.ZoneFeature, key string) string {
		return capability.ID(true, zone+"_"+f.String(), key)
	}
	get := func(f func(*model.ZoneState) any) func() any { return d.zoneValue(zone, f) }

	var out []*capability.Capability
	add := func(c ...*capability.Capability) { out = append(out, c...) }

	if z.Features.Has(features.Sleep) {
		add(capability.NewOptionSetter(id(features.Sleep, ""), "Sleep Timer", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.Sleep) }),
			map[any]string{0: "off", 30: "30 min", 60: "60 min", 90: "90 min", 120: "120 min"},
			optionInt(func(ctx context.Context, n int) error { return d.SetSleepTimer(ctx, zone, n) }),
		))
	}
	if z.Features.Has(features.PureDirect) {
		add(capability.NewBinarySetter(id(features.PureDirect, ""), "Pure Direct", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.PureDirect) }),
			func(ctx context.Context, on bool) error { return d.SetPureDirect(ctx, zone, on) },
		))
	}
	if z.Features.Has(features.Enhancer) {
		add(capability.NewBinarySetter(id(features.Enhancer, ""), "Enhancer", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.Enhancer) }),
			func(ctx context.Context, on bool) error { return d.SetEnhancer(ctx, zone, on) },
		))
	}
	if z.Features.Has(features.ToneControl) {
		rng := z.RangeStep["tone_control"]
		add(
			capability.NewOptionSetter(id(features.ToneControl, "mode"), "Tone Control Mode", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.ToneMode) }),
				stringOptions(z.ToneControlModes),
				optionString(func(ctx context.Context, mode string) error {
					return d.SetToneControl(ctx, zone, &mode, nil, nil)
				}),
			),
			capability.NewNumberSetter(id(features.ToneControl, "bass"), "Tone Control Bass", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.ToneBass) }), rng,
				func(ctx context.Context, n int) error { return d.SetToneControl(ctx, zone, nil, &n, nil) },
			),
			capability.NewNumberSetter(id(features.ToneControl, "treble"), "Tone Control Treble", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.ToneTreble) }), rng,
				func(ctx context.Context, n int) error { return d.SetToneControl(ctx, zone, nil, nil, &n) },
			),
		)
	}
	if z.Features.Has(features.Equalizer) {
		rng := z.RangeStep["equalizer"]
		add(
			capability.NewOptionSetter(id(features.Equalizer, "mode"), "Equalizer Mode", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.EqualizerMode) }),
				stringOptions(z.EqualizerModes),
				optionString(func(ctx context.Context, mode string) error {
					return d.SetEqualizer(ctx, zone, &mode, nil, nil, nil)
				}),
			),
			capability.NewNumberSetter(id(features.Equalizer, "low"), "Equalizer Low", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.EqualizerLow) }), rng,
				func(ctx context.Context, n int) error { return d.SetEqualizer(ctx, zone, nil, &n, nil, nil) },
			),
			capability.NewNumberSetter(id(features.Equalizer, "mid"), "Equalizer Mid", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.EqualizerMid) }), rng,
				func(ctx context.Context, n int) error { return d.SetEqualizer(ctx, zone, nil, nil, &n, nil) },
			),
			capability.NewNumberSetter(id(features.Equalizer, "high"), "Equalizer High", capability.Config,
				get(func(z *model.ZoneState) any { return deref(z.EqualizerHigh) }), rng,
				func(ctx context.Context, n int) error { return d.SetEqualizer(ctx, zone, nil, nil, nil, &n) },
			),
		)
	}
	if z.Features.Has(features.DialogueLevel) {
		add(capability.NewNumberSetter(id(features.DialogueLevel, ""), "Dialogue Level", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.DialogueLevel) }), z.RangeStep["dialogue_level"],
			func(ctx context.Context, n int) error { return d.SetDialogueLevel(ctx, zone, n) },
		))
	}
	if z.Features.Has(features.DialogueLift) {
		add(capability.NewNumberSetter(id(features.DialogueLift, ""), "Dialogue Lift", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.DialogueLift) }), z.RangeStep["dialogue_lift"],
			func(ctx context.Context, n int) error { return d.SetDialogueLift(ctx, zone, n) },
		))
	}
	if z.Features.Has(features.BassExtension) {
		add(capability.NewBinarySetter(id(features.BassExtension, ""), "Bass Extension", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.BassExtension) }),
			func(ctx context.Context, on bool) error { return d.SetBassExtension(ctx, zone, on) },
		))
	}
	if z.Features.Has(features.LinkControl) {
		add(capability.NewOptionSetter(id(features.LinkControl, ""), "Link Control", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.LinkControl) }),
			stringOptions(z.LinkControlList),
			optionString(func(ctx context.Context, v string) error { return d.SetLinkControl(ctx, zone, v) }),
		))
	}
	if z.Features.Has(features.LinkAudioDelay) {
		add(capability.NewOptionSetter(id(features.LinkAudioDelay, ""), "Link Audio Delay", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.LinkAudioDelay) }),
			stringOptions(z.LinkAudioDelayList),
			optionString(func(ctx context.Context, v string) error { return d.SetLinkAudioDelay(ctx, zone, v) }),
		))
	}
	if z.Features.Has(features.LinkAudioQuality) {
		add(capability.NewOptionSetter(id(features.LinkAudioQuality, ""), "Link Audio Quality", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.LinkAudioQuality) }),
			stringOptions(z.LinkAudioQualityList),
			optionString(func(ctx context.Context, v string) error { return d.SetLinkAudioQuality(ctx, zone, v) }),
		))
	}
	if z.Features.Has(features.SurrDecoderType) {
		add(capability.NewOptionSetter(id(features.SurrDecoderType, ""), "Surround Decoder", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.SurroundDecoderType) }),
			stringOptions(z.SurroundDecoderTypes),
			optionString(func(ctx context.Context, v string) error { return d.SetSurroundDecoderType(ctx, zone, v) }),
		))
	}
	if z.Features.Has(features.ExtraBass) {
		add(capability.NewBinarySetter(id(features.ExtraBass, ""), "Extra Bass", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.ExtraBass) }),
			func(ctx context.Context, on bool) error { return d.SetExtraBass(ctx, zone, on) },
		))
	}
	if z.Features.Has(features.AdaptiveDRC) {
		add(capability.NewBinarySetter(id(features.AdaptiveDRC, ""), "Adaptive DRC", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.AdaptiveDRC) }),
			func(ctx context.Context, on bool) error { return d.SetAdaptiveDRC(ctx, zone, on) },
		))
	}
	if z.Features.Has(features.DTSDialogueControl) {
		add(capability.NewNumberSetter(id(features.DTSDialogueControl, ""), "DTS Dialogue Control", capability.Config,
			get(func(z *model.ZoneState) any { return deref(z.DTSDialogueControl) }), z.RangeStep["dts_dialogue_control"],
			func(ctx context.Context, n int) error { return d.SetDTSDialogueControl(ctx, zone, n) },
		))
	}

	add(
		capability.NewSensor(capability.KindBinarySensor, capability.ID(true, zone, "power"), "Power", capability.Regular,
			get(func(z *model.ZoneState) any {
				if z.Power == nil {
					return nil
				}
				return *z.Power == model.PowerOn
			})),
		capability.NewSensor(capability.KindNumberSensor, capability.ID(true, zone, "volume"), "Volume", capability.Regular,
			get(func(z *model.ZoneState) any { return deref(z.CurrentVolume) })),
		capability.NewSensor(capability.KindTextSensor, capability.ID(true, zone, "input"), "Input", capability.Regular,
			get(func(z *model.ZoneState) any { return deref(z.Input) })),
	)
	return out, nil
}
