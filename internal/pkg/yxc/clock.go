package yxc

import (
	"slices"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

// AlarmDays are the targets a detail block can address.
var AlarmDays = append([]string{model.AlarmOneday}, model.AlarmWeekDays...)

// AlarmSettings is the body of clock/setAlarmSettings. Nil fields are left
// unchanged on the device.
type AlarmSettings struct {
	AlarmOn      *bool        `json:"alarm_on,omitempty"`
	Volume       *int         `json:"volume,omitempty"`
	FadeInterval *int         `json:"fade_interval,omitempty"`
	FadeType     *int         `json:"fade_type,omitempty"`
	Mode         *string      `json:"mode,omitempty"`
	Repeat       *bool        `json:"repeat,omitempty"`
	Detail       *AlarmDetail `json:"detail,omitempty"`
}

type AlarmDetail struct {
	Day          string        `json:"day"`
	Enable       *bool         `json:"enable,omitempty"`
	Time         *string       `json:"time,omitempty"` // "hhmm"
	Beep         *bool         `json:"beep,omitempty"`
	PlaybackType *string       `json:"playback_type,omitempty"`
	Resume       *AlarmResume  `json:"resume,omitempty"`
	Preset       *AlarmPresets `json:"preset,omitempty"`
}

type AlarmResume struct {
	Input string `json:"input,omitempty"`
}

type AlarmPresets struct {
	Num    *int   `json:"num,omitempty"`
	Type   string `json:"type,omitempty"`
	Snooze *bool  `json:"snooze,omitempty"`
}

func GetClockSettings() Request { return get("clock/getSettings", nil) }

func SetAlarmSettings(s AlarmSettings) (Request, error) {
	if s.Repeat != nil && (s.Detail == nil || s.Detail.Day != model.AlarmOneday) {
		return Request{}, &ParamError{Param: "repeat", Value: *s.Repeat}
	}
	if d := s.Detail; d != nil {
		if !slices.Contains(AlarmDays, d.Day) {
			return Request{}, &ParamError{Param: "day", Value: d.Day, Allowed: AlarmDays}
		}
		if d.PlaybackType != nil {
			switch *d.PlaybackType {
			case "resume":
				if d.Preset != nil {
					return Request{}, &ParamError{Param: "preset", Value: "set with playback type resume"}
				}
			case "preset":
				if d.Resume != nil {
					return Request{}, &ParamError{Param: "resume", Value: "set with playback type preset"}
				}
			default:
				return Request{}, &ParamError{Param: "playback_type", Value: *d.PlaybackType, Allowed: []string{"resume", "preset"}}
			}
		}
	}
	return post("clock/setAlarmSettings", s), nil
}
