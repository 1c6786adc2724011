package model

import "math"

// Every YXC response carries a response code; zero is success.
type Response struct {
	ResponseCode int `json:"response_code"`
}

type IDText struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RangeStepEntry uses floats on the wire: some ranges (actual volume in dB)
// step in halves and would otherwise fail the whole features decode.
type RangeStepEntry struct {
	ID   string  `json:"id"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// RangeStep converts the entry. ok is false when min, max or step is not a
// whole number or the step is not positive; such ranges are not
// representable and must be skipped.
func (r RangeStepEntry) RangeStep() (rs RangeStep, ok bool) {
	if !whole(r.Min) || !whole(r.Max) || !whole(r.Step) || r.Step < 1 {
		return RangeStep{}, false
	}
	return RangeStep{Min: int(r.Min), Max: int(r.Max), Step: int(r.Step)}, true
}

func whole(f float64) bool {
	return f == math.Trunc(f)
}

// ################################
// system

type DeviceInfo struct {
	Response
	ModelName     string  `json:"model_name"`
	Destination   string  `json:"destination"`
	DeviceID      string  `json:"device_id"`
	SystemID      string  `json:"system_id"`
	SystemVersion float64 `json:"system_version"`
	APIVersion    float64 `json:"api_version"`
}

type NetworkStatus struct {
	Response
	NetworkName string            `json:"network_name"`
	MacAddress  map[string]string `json:"mac_address"`
}

type NameText struct {
	Response
	ZoneList  []IDText `json:"zone_list"`
	InputList []IDText `json:"input_list"`
}

type FuncStatus struct {
	Response
	SpeakerA    *bool `json:"speaker_a"`
	SpeakerB    *bool `json:"speaker_b"`
	Dimmer      *int  `json:"dimmer"`
	PartyEnable *bool `json:"party_enable"`
}

type SystemInput struct {
	ID                 string `json:"id"`
	DistributionEnable bool   `json:"distribution_enable"`
	RenameEnable       bool   `json:"rename_enable"`
	AccountEnable      bool   `json:"account_enable"`
	PlayInfoType       string `json:"play_info_type"`
}

type SystemFeatures struct {
	FuncList  []string         `json:"func_list"`
	ZoneNum   int              `json:"zone_num"`
	InputList []SystemInput    `json:"input_list"`
	RangeStep []RangeStepEntry `json:"range_step"`
}

// List fields are pointers where an absent list has a non-empty default.
type ZoneFeatures struct {
	ID                   string           `json:"id"`
	FuncList             []string         `json:"func_list"`
	InputList            []string         `json:"input_list"`
	SoundProgramList     []string         `json:"sound_program_list"`
	ToneControlModeList  *[]string        `json:"tone_control_mode_list"`
	EqualizerModeList    *[]string        `json:"equalizer_mode_list"`
	SurrDecoderTypeList  []string         `json:"surr_decoder_type_list"`
	LinkControlList      []string         `json:"link_control_list"`
	LinkAudioDelayList   []string         `json:"link_audio_delay_list"`
	LinkAudioQualityList []string         `json:"link_audio_quality_list"`
	RangeStep            []RangeStepEntry `json:"range_step"`
}

type FuncListFeatures struct {
	FuncList []string `json:"func_list"`
}

type ClockFeatures struct {
	FuncList        []string         `json:"func_list"`
	RangeStep       []RangeStepEntry `json:"range_step"`
	AlarmModeList   []string         `json:"alarm_mode_list"`
	AlarmInputList  []string         `json:"alarm_input_list"`
	AlarmPresetList []string         `json:"alarm_preset_list"`
}

// Features is system/getFeatures. Optional blocks are nil when the device
// has no such function.
type Features struct {
	Response
	System SystemFeatures    `json:"system"`
	Zone   []ZoneFeatures    `json:"zone"`
	Tuner  *FuncListFeatures `json:"tuner"`
	NetUSB *FuncListFeatures `json:"netusb"`
	Clock  *ClockFeatures    `json:"clock"`
}

// ################################
// zone

type Equalizer struct {
	Mode *string `json:"mode"`
	Low  *int    `json:"low"`
	Mid  *int    `json:"mid"`
	High *int    `json:"high"`
}

type ToneControl struct {
	Mode   *string `json:"mode"`
	Bass   *int    `json:"bass"`
	Treble *int    `json:"treble"`
}

type ZoneStatus struct {
	Response
	Power              *string      `json:"power"`
	Sleep              *int         `json:"sleep"`
	Volume             *int         `json:"volume"`
	Mute               *bool        `json:"mute"`
	Input              *string      `json:"input"`
	SoundProgram       *string      `json:"sound_program"`
	PartyEnable        *bool        `json:"party_enable"`
	ExtraBass          *bool        `json:"extra_bass"`
	BassExtension      *bool        `json:"bass_extension"`
	AdaptiveDRC        *bool        `json:"adaptive_drc"`
	Enhancer           *bool        `json:"enhancer"`
	PureDirect         *bool        `json:"pure_direct"`
	SurrDecoderType    *string      `json:"surr_decoder_type"`
	Equalizer          *Equalizer   `json:"equalizer"`
	ToneControl        *ToneControl `json:"tone_control"`
	DialogueLevel      *int         `json:"dialogue_level"`
	DialogueLift       *int         `json:"dialogue_lift"`
	DTSDialogueControl *int         `json:"dts_dialogue_control"`
	LinkAudioDelay     *string      `json:"link_audio_delay"`
	LinkAudioQuality   *string      `json:"link_audio_quality"`
	LinkControl        *string      `json:"link_control"`
}

// ################################
// netusb

type NetUSBPlayInfo struct {
	Response
	Input       *string `json:"input"`
	Playback    *string `json:"playback"`
	Repeat      *string `json:"repeat"`
	Shuffle     *string `json:"shuffle"`
	Artist      *string `json:"artist"`
	Album       *string `json:"album"`
	Track       *string `json:"track"`
	AlbumArtURL *string `json:"albumart_url"`
	TotalTime   *int    `json:"total_time"`
	PlayTime    *int    `json:"play_time"`
}

type NetUSBPresetInfo struct {
	Response
	PresetInfo []NetUSBPreset `json:"preset_info"`
}

type ListItem struct {
	Text      string `json:"text"`
	Thumbnail string `json:"thumbnail"`
	Attribute int    `json:"attribute"`
}

type ListInfo struct {
	Response
	Input        string     `json:"input"`
	MenuLayer    int        `json:"menu_layer"`
	MaxLine      int        `json:"max_line"`
	Index        int        `json:"index"`
	PlayingIndex int        `json:"playing_index"`
	MenuName     string     `json:"menu_name"`
	ListInfo     []ListItem `json:"list_info"`
}

// ################################
// tuner

type TunerPlayInfo struct {
	Response
	Band *string `json:"band"`
	FM   *struct {
		Freq *int `json:"freq"`
	} `json:"fm"`
	AM *struct {
		Freq *int `json:"freq"`
	} `json:"am"`
	RDS *struct {
		RadioTextA *string `json:"radio_text_a"`
		RadioTextB *string `json:"radio_text_b"`
	} `json:"rds"`
	DAB *struct {
		ServiceLabel *string `json:"service_label"`
		DLS          *string `json:"dls"`
	} `json:"dab"`
}

// ################################
// dist

type DistClient struct {
	IPAddress string `json:"ip_address"`
	DataType  string `json:"data_type"`
}

type DistributionInfo struct {
	Response
	GroupID    *string      `json:"group_id"`
	GroupName  *string      `json:"group_name"`
	Role       *string      `json:"role"`
	ServerZone *string      `json:"server_zone"`
	ClientList []DistClient `json:"client_list"`
}

// ################################
// clock

type AlarmPreset struct {
	Num        *int           `json:"num"`
	Type       *string        `json:"type"`
	NetUSBInfo map[string]any `json:"netusb_info"`
	TunerInfo  map[string]any `json:"tuner_info"`
}

type AlarmDay struct {
	Enable       *bool   `json:"enable"`
	Time         *string `json:"time"`
	Beep         *bool   `json:"beep"`
	PlaybackType *string `json:"playback_type"`
	Resume       *struct {
		Input *string `json:"input"`
	} `json:"resume"`
	Preset *AlarmPreset `json:"preset"`
}

type AlarmSettings struct {
	AlarmOn      bool      `json:"alarm_on"`
	Volume       *int      `json:"volume"`
	FadeInterval *int      `json:"fade_interval"`
	FadeType     *int      `json:"fade_type"`
	Mode         *string   `json:"mode"`
	Repeat       *bool     `json:"repeat"`
	Oneday       *AlarmDay `json:"oneday"`
	Sunday       *AlarmDay `json:"sunday"`
	Monday       *AlarmDay `json:"monday"`
	Tuesday      *AlarmDay `json:"tuesday"`
	Wednesday    *AlarmDay `json:"wednesday"`
	Thursday     *AlarmDay `json:"thursday"`
	Friday       *AlarmDay `json:"friday"`
	Saturday     *AlarmDay `json:"saturday"`
}

// Day returns the block for an alarm day name, or an empty block.
func (a AlarmSettings) Day(name string) AlarmDay {
	var d *AlarmDay
	switch name {
	case AlarmOneday:
		d = a.Oneday
	case "sunday":
		d = a.Sunday
	case "monday":
		d = a.Monday
	case "tuesday":
		d = a.Tuesday
	case "wednesday":
		d = a.Wednesday
	case "thursday":
		d = a.Thursday
	case "friday":
		d = a.Friday
	case "saturday":
		d = a.Saturday
	}
	if d == nil {
		return AlarmDay{}
	}
	return *d
}

type ClockSettings struct {
	Response
	Alarm AlarmSettings `json:"alarm"`
}
