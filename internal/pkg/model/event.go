package model

// Event is one UDP notification. Every block is optional; a present block
// only carries the fields that changed.
type Event struct {
	DeviceID string       `json:"device_id"`
	Main     *ZoneEvent   `json:"main"`
	Zone2    *ZoneEvent   `json:"zone2"`
	Zone3    *ZoneEvent   `json:"zone3"`
	Zone4    *ZoneEvent   `json:"zone4"`
	NetUSB   *NetUSBEvent `json:"netusb"`
	Tuner    *TunerEvent  `json:"tuner"`
	Dist     *DistEvent   `json:"dist"`
	Clock    *ClockEvent  `json:"clock"`
	System   *SystemEvent `json:"system"`
}

type ZoneEvent struct {
	Power           *string `json:"power"`
	Volume          *int    `json:"volume"`
	Mute            *bool   `json:"mute"`
	Input           *string `json:"input"`
	PlayInfoUpdated bool    `json:"play_info_updated"`
	StatusUpdated   bool    `json:"status_updated"`
}

type NetUSBEvent struct {
	PlayInfoUpdated   bool `json:"play_info_updated"`
	PlayTime          *int `json:"play_time"`
	PresetInfoUpdated bool `json:"preset_info_updated"`
}

type TunerEvent struct {
	PlayInfoUpdated bool `json:"play_info_updated"`
}

type DistEvent struct {
	DistInfoUpdated bool `json:"dist_info_updated"`
}

type ClockEvent struct {
	SettingsUpdated bool `json:"settings_updated"`
}

type SystemEvent struct {
	FuncStatusUpdated bool `json:"func_status_updated"`
}

// ZoneEvent returns the block for a zone id, if present.
func (e *Event) ZoneEvent(zone string) *ZoneEvent {
	switch zone {
	case "main":
		return e.Main
	case "zone2":
		return e.Zone2
	case "zone3":
		return e.Zone3
	case "zone4":
		return e.Zone4
	}
	return nil
}
