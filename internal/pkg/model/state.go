package model

import (
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/anicoll/musiccast-integration/internal/pkg/features"
)

const (
	MCLink   = "mc_link"
	MainSync = "main_sync"

	// NullGroup is the group id a device reports when it is in no group.
	NullGroup = "00000000000000000000000000000000"

	AlarmOneday = "oneday"
	AlarmWeekly = "weekly"

	RoleServer = "server"
	RoleClient = "client"

	PowerOn      = "on"
	PowerStandby = "standby"
)

var (
	Zones         = []string{"main", "zone2", "zone3", "zone4"}
	AlarmWeekDays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	// LinkSources are inputs that carry a link stream rather than local audio.
	LinkSources = []string{MCLink, MainSync}
)

// DeviceState is everything known about one physical device. Capability
// bitsets and the zone key set are fixed once discovery has completed.
type DeviceState struct {
	IP string `json:"ip"`

	DeviceID      string                 `json:"device_id"`
	ModelName     string                 `json:"model_name"`
	SystemVersion float64                `json:"system_version"`
	APIVersion    float64                `json:"api_version"`
	NetworkName   string                 `json:"network_name"`
	MacAddresses  map[string]string      `json:"mac_addresses,omitempty"`
	Features      features.DeviceFeature `json:"features"`

	Zones      map[string]*ZoneState `json:"zones"`
	InputNames map[string]string     `json:"input_names,omitempty"`
	ZoneNames  map[string]string     `json:"zone_names,omitempty"`
	// SystemInputs is the system input list from discovery, used to find
	// safe inputs when leaving a group.
	SystemInputs []SystemInput `json:"-"`

	NetUSB          NetUSBState          `json:"netusb"`
	PlayTimeUpdated time.Time            `json:"play_time_updated"`
	NetUSBPresets   map[int]NetUSBPreset `json:"netusb_presets,omitempty"`
	NetUSBFuncList  []string             `json:"-"`
	SearchString    string               `json:"search_string,omitempty"`

	Tuner TunerState `json:"tuner"`

	AlarmOn         bool                     `json:"alarm_on"`
	AlarmVolume     *int                     `json:"alarm_volume,omitempty"`
	AlarmMode       *string                  `json:"alarm_mode,omitempty"`
	AlarmDetails    map[string]*AlarmDetails `json:"alarm_details,omitempty"`
	AlarmVolumeRng  RangeStep                `json:"alarm_volume_range"`
	AlarmFadeRng    RangeStep                `json:"alarm_fade_range"`
	AlarmInputList  []string                 `json:"alarm_input_list,omitempty"`
	AlarmPresetList []string                 `json:"alarm_preset_list,omitempty"`

	Dimmer      *Dimmer `json:"dimmer,omitempty"`
	SpeakerA    *bool   `json:"speaker_a,omitempty"`
	SpeakerB    *bool   `json:"speaker_b,omitempty"`
	PartyEnable *bool   `json:"party_enable,omitempty"`

	GroupID         *string  `json:"group_id,omitempty"`
	GroupName       *string  `json:"group_name,omitempty"`
	GroupRole       *string  `json:"group_role,omitempty"`
	GroupServerZone *string  `json:"group_server_zone,omitempty"`
	GroupClientList []string `json:"group_client_list"`
	LastGroupRole   *string  `json:"last_group_role,omitempty"`
	LastGroupID     *string  `json:"last_group_id,omitempty"`

	UPnPDescription string `json:"upnp_description,omitempty"`

	GroupLock *GroupLock `json:"-"`
}

// ZoneState holds one zone. Live fields are nil until the first fetch.
type ZoneState struct {
	Name     string               `json:"name"`
	Features features.ZoneFeature `json:"features"`

	Power         *string `json:"power,omitempty"`
	Mute          *bool   `json:"mute,omitempty"`
	CurrentVolume *int    `json:"current_volume,omitempty"`
	MinVolume     int     `json:"min_volume"`
	MaxVolume     int     `json:"max_volume"`
	Input         *string `json:"input,omitempty"`
	SoundProgram  *string `json:"sound_program,omitempty"`
	Sleep         *int    `json:"sleep,omitempty"`

	ToneMode   *string `json:"tone_mode,omitempty"`
	ToneBass   *int    `json:"tone_bass,omitempty"`
	ToneTreble *int    `json:"tone_treble,omitempty"`

	EqualizerMode *string `json:"equalizer_mode,omitempty"`
	EqualizerLow  *int    `json:"equalizer_low,omitempty"`
	EqualizerMid  *int    `json:"equalizer_mid,omitempty"`
	EqualizerHigh *int    `json:"equalizer_high,omitempty"`

	DialogueLevel      *int `json:"dialogue_level,omitempty"`
	DialogueLift       *int `json:"dialogue_lift,omitempty"`
	DTSDialogueControl *int `json:"dts_dialogue_control,omitempty"`

	ExtraBass     *bool `json:"extra_bass,omitempty"`
	BassExtension *bool `json:"bass_extension,omitempty"`
	AdaptiveDRC   *bool `json:"adaptive_drc,omitempty"`
	Enhancer      *bool `json:"enhancer,omitempty"`
	PureDirect    *bool `json:"pure_direct,omitempty"`

	SurroundDecoderType *string `json:"surr_decoder_type,omitempty"`

	LinkAudioDelay   *string `json:"link_audio_delay,omitempty"`
	LinkAudioQuality *string `json:"link_audio_quality,omitempty"`
	LinkControl      *string `json:"link_control,omitempty"`

	SoundPrograms        []string             `json:"sound_programs,omitempty"`
	InputList            []string             `json:"input_list,omitempty"`
	ToneControlModes     []string             `json:"tone_control_modes,omitempty"`
	EqualizerModes       []string             `json:"equalizer_modes,omitempty"`
	SurroundDecoderTypes []string             `json:"surr_decoder_types,omitempty"`
	LinkControlList      []string             `json:"link_control_list,omitempty"`
	LinkAudioDelayList   []string             `json:"link_audio_delay_list,omitempty"`
	LinkAudioQualityList []string             `json:"link_audio_quality_list,omitempty"`
	RangeStep            map[string]RangeStep `json:"range_step,omitempty"`
}

type NetUSBState struct {
	Input       *string `json:"input,omitempty"`
	Playback    *string `json:"playback,omitempty"`
	Repeat      *string `json:"repeat,omitempty"`
	Shuffle     *string `json:"shuffle,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	Album       *string `json:"album,omitempty"`
	Track       *string `json:"track,omitempty"`
	AlbumArtURL *string `json:"albumart_url,omitempty"`
	TotalTime   *int    `json:"total_time,omitempty"`
	PlayTime    *int    `json:"play_time,omitempty"`
}

type NetUSBPreset struct {
	Input string `json:"input"`
	Text  string `json:"text"`
}

type TunerState struct {
	Band            *string `json:"band,omitempty"`
	FMFreq          *int    `json:"fm_freq,omitempty"`
	AMFreq          *int    `json:"am_freq,omitempty"`
	RDSTextA        string  `json:"rds_text_a"`
	RDSTextB        string  `json:"rds_text_b"`
	DABServiceLabel string  `json:"dab_service_label"`
	DABDLS          string  `json:"dab_dls"`
}

// AlarmDetails is one per supported alarm day.
type AlarmDetails struct {
	Enabled      *bool          `json:"enabled,omitempty"`
	Time         *string        `json:"time,omitempty"` // "hh:mm"
	Beep         *bool          `json:"beep,omitempty"`
	PlaybackType *string        `json:"playback_type,omitempty"`
	ResumeInput  *string        `json:"resume_input,omitempty"`
	PresetType   *string        `json:"preset_type,omitempty"`
	PresetNum    *int           `json:"preset_num,omitempty"`
	PresetInfo   map[string]any `json:"preset_info,omitempty"`
}

// Input renders the alarm source in the same id form the alarm input
// catalog uses.
func (a *AlarmDetails) Input() string {
	if a.PlaybackType == nil {
		return ""
	}
	switch *a.PlaybackType {
	case "resume":
		if a.ResumeInput != nil {
			return "resume:" + *a.ResumeInput
		}
	case "preset":
		if a.PresetType != nil && a.PresetNum != nil {
			return "preset:" + *a.PresetType + ":" + strconv.Itoa(*a.PresetNum)
		}
	}
	return ""
}

func NewDeviceState(ip string) *DeviceState {
	return &DeviceState{
		IP:            ip,
		Zones:         map[string]*ZoneState{},
		InputNames:    map[string]string{},
		ZoneNames:     map[string]string{},
		NetUSBPresets: map[int]NetUSBPreset{},
		AlarmDetails:  map[string]*AlarmDetails{},
		GroupLock:     &GroupLock{},
	}
}

func NewZoneState() *ZoneState {
	return &ZoneState{
		MinVolume:        0,
		MaxVolume:        100,
		ToneControlModes: []string{"manual"},
		EqualizerModes:   []string{"manual"},
		RangeStep:        map[string]RangeStep{},
	}
}

// Clone copies the state for use outside the owning device. Pointer fields
// are shared because the engine only ever replaces them, never writes
// through them.
func (s *DeviceState) Clone() *DeviceState {
	out := *s
	out.MacAddresses = maps.Clone(s.MacAddresses)
	out.InputNames = maps.Clone(s.InputNames)
	out.ZoneNames = maps.Clone(s.ZoneNames)
	out.SystemInputs = slices.Clone(s.SystemInputs)
	out.NetUSBPresets = maps.Clone(s.NetUSBPresets)
	out.NetUSBFuncList = slices.Clone(s.NetUSBFuncList)
	out.AlarmInputList = slices.Clone(s.AlarmInputList)
	out.AlarmPresetList = slices.Clone(s.AlarmPresetList)
	out.GroupClientList = slices.Clone(s.GroupClientList)
	if s.Dimmer != nil {
		d := *s.Dimmer
		out.Dimmer = &d
	}
	out.Zones = make(map[string]*ZoneState, len(s.Zones))
	for id, z := range s.Zones {
		out.Zones[id] = z.Clone()
	}
	out.AlarmDetails = make(map[string]*AlarmDetails, len(s.AlarmDetails))
	for day, a := range s.AlarmDetails {
		c := *a
		out.AlarmDetails[day] = &c
	}
	return &out
}

func (z *ZoneState) Clone() *ZoneState {
	out := *z
	out.SoundPrograms = slices.Clone(z.SoundPrograms)
	out.InputList = slices.Clone(z.InputList)
	out.ToneControlModes = slices.Clone(z.ToneControlModes)
	out.EqualizerModes = slices.Clone(z.EqualizerModes)
	out.SurroundDecoderTypes = slices.Clone(z.SurroundDecoderTypes)
	out.LinkControlList = slices.Clone(z.LinkControlList)
	out.LinkAudioDelayList = slices.Clone(z.LinkAudioDelayList)
	out.LinkAudioQualityList = slices.Clone(z.LinkAudioQualityList)
	out.RangeStep = maps.Clone(z.RangeStep)
	return &out
}
