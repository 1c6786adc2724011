package musiccast

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/anicoll/musiccast-integration/internal/pkg/features"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

// AlarmConfig changes the alarm. Nil fields are left as they are. Day and
// Mode go together, and the per-day fields are only valid with them.
type AlarmConfig struct {
	AlarmOn *bool
	// Volume is a level in [0, 1] mapped onto the alarm volume range.
	Volume *float64
	// Time is "hh:mm". When a day is addressed without a time, the stored
	// time for that day is sent, since some devices ignore beep otherwise.
	Time *string
	// Source is "resume:<input>" or "preset:<type>:<num>", as listed by
	// model.DeviceState.AlarmInputCatalog.
	Source    *string
	Mode      *string
	Day       *string
	EnableDay *bool
	Beep      *bool
}

func (d *Device) ConfigureAlarm(ctx context.Context, cfg AlarmConfig) error {
	var supported bool
	var volRange model.RangeStep
	var storedTime *string
	d.Read(func(s *model.DeviceState) {
		supported = s.Features.Has(features.AlarmOneday) || s.Features.Has(features.AlarmWeekly)
		volRange = s.AlarmVolumeRng
		if cfg.Day != nil {
			if det, ok := s.AlarmDetails[*cfg.Day]; ok {
				storedTime = det.Time
			}
		}
	})
	if !supported {
		return &UnsupportedFeatureError{Feature: "alarm"}
	}

	settings := yxc.AlarmSettings{AlarmOn: cfg.AlarmOn}
	if cfg.Volume != nil {
		vol, err := alarmVolume(volRange, *cfg.Volume)
		if err != nil {
			return err
		}
		settings.Volume = &vol
	}

	if cfg.Day == nil || cfg.Mode == nil {
		if cfg.Day != nil || cfg.Mode != nil {
			return fmt.Errorf("alarm day and mode must be set together: %w", model.ErrValidation)
		}
		if cfg.Source != nil || cfg.Time != nil || cfg.EnableDay != nil || cfg.Beep != nil {
			return fmt.Errorf("alarm source, time, enable and beep need a day and mode: %w", model.ErrValidation)
		}
		return d.do(ctx)(yxc.SetAlarmSettings(settings))
	}

	if err := checkAlarmDay(*cfg.Mode, *cfg.Day); err != nil {
		return err
	}
	settings.Mode = cfg.Mode
	detail := &yxc.AlarmDetail{Day: *cfg.Day, Enable: cfg.EnableDay, Beep: cfg.Beep}
	t := storedTime
	if cfg.Time != nil {
		t = cfg.Time
	}
	if t != nil {
		hhmm, err := alarmTime(*t)
		if err != nil {
			return err
		}
		detail.Time = &hhmm
	}
	if cfg.Source != nil {
		if err := applyAlarmSource(detail, *cfg.Source); err != nil {
			return err
		}
	}
	settings.Detail = detail
	return d.do(ctx)(yxc.SetAlarmSettings(settings))
}

func checkAlarmDay(mode, day string) error {
	switch mode {
	case model.AlarmOneday:
		if day == model.AlarmOneday {
			return nil
		}
	case model.AlarmWeekly:
		if slices.Contains(model.AlarmWeekDays, day) {
			return nil
		}
	default:
		return fmt.Errorf("alarm mode %q: %w", mode, model.ErrValidation)
	}
	return fmt.Errorf("alarm day %q is not valid for mode %s: %w", day, mode, model.ErrValidation)
}

// alarmTime turns "hh:mm" into the "hhmm" form the device expects.
func alarmTime(t string) (string, error) {
	parsed, err := time.Parse("15:04", t)
	if err != nil {
		return "", fmt.Errorf("alarm time %q: %w", t, model.ErrValidation)
	}
	return parsed.Format("1504"), nil
}

func alarmVolume(r model.RangeStep, level float64) (int, error) {
	if level < 0 || level > 1 || math.IsNaN(level) {
		return 0, fmt.Errorf("alarm volume %v outside [0, 1]: %w", level, model.ErrValidation)
	}
	step := max(r.Step, 1)
	v := float64(r.Min) + float64(r.Max-r.Min)*level
	return step * int(math.Round(v/float64(step))), nil
}

func applyAlarmSource(detail *yxc.AlarmDetail, source string) error {
	parts := strings.Split(source, ":")
	if parts[0] == "" {
		return nil
	}
	playback := parts[0]
	detail.PlaybackType = &playback
	switch playback {
	case "resume":
		if len(parts) != 2 {
			return fmt.Errorf("alarm source %q: %w", source, model.ErrValidation)
		}
		detail.Resume = &yxc.AlarmResume{Input: parts[1]}
	case "preset":
		if len(parts) != 3 {
			return fmt.Errorf("alarm source %q: %w", source, model.ErrValidation)
		}
		num, err := strconv.Atoi(parts[2])
		if err != nil {
			return fmt.Errorf("alarm source %q: %w", source, model.ErrValidation)
		}
		detail.Preset = &yxc.AlarmPresets{Type: parts[1], Num: &num}
	}
	return nil
}
