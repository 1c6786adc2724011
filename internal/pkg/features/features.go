// Package features maps the function-list tokens reported by a MusicCast
// device onto feature bitsets. Unknown tokens are reported to the caller,
// never treated as errors, so newer firmware keeps working.
package features

import (
	"math/bits"
	"strings"
)

type DeviceFeature uint64

const DeviceNone DeviceFeature = 0

const (
	WiredLAN DeviceFeature = 1 << iota
	WirelessLAN
	WirelessDirect
	Extend1Band
	DFSOption
	NetworkStandby
	NetworkStandbyAuto
	BluetoothStandby
	BluetoothTxSetting
	BluetoothTxConnectivityType
	IRSensor
	SpeakerA
	SpeakerB
	Headphone
	Dimmer
	ZoneBVolumeSync
	HDMIOut1
	HDMIOut2
	HDMIOut3
	AirPlay
	StereoPair
	SpeakerSettings
	DisklavierSettings
	BackgroundDownload
	RemoteInfo
	NetworkReboot
	SystemReboot
	AutoPlay
	SpeakerPattern
	PartyMode
	AutoPowerStandby
	Analytics
	YPAOVolume
	PartyVolume
	PartyMute
	NameTextAVR
	HDMIStandbyThrough

	// derived from the clock block, not from func_list
	Clock
	AlarmOneday
	AlarmWeekly
)

type ZoneFeature uint64

const ZoneNone ZoneFeature = 0

const (
	Power ZoneFeature = 1 << iota
	Sleep
	Volume
	Mute
	SoundProgram
	Surround3D
	Direct
	PureDirect
	Enhancer
	ToneControl
	Equalizer
	Balance
	DialogueLevel
	DialogueLift
	ClearVoice
	SubwooferVolume
	BassExtension
	SignalInfo
	PrepareInputChange
	LinkControl
	LinkAudioDelay
	LinkAudioQuality
	Scene
	ContentsDisplay
	Cursor
	Menu
	ActualVolume
	AudioSelect
	SurrDecoderType
	ExtraBass
	AdaptiveDRC
	DTSDialogueControl
	AdaptiveDSPLevel
	Mono
)

var deviceTokens = map[string]DeviceFeature{
	"wired_lan":                      WiredLAN,
	"wireless_lan":                   WirelessLAN,
	"wireless_direct":                WirelessDirect,
	"extend_1_band":                  Extend1Band,
	"dfs_option":                     DFSOption,
	"network_standby":                NetworkStandby,
	"network_standby_auto":           NetworkStandbyAuto,
	"bluetooth_standby":              BluetoothStandby,
	"bluetooth_tx_setting":           BluetoothTxSetting,
	"bluetooth_tx_connectivity_type": BluetoothTxConnectivityType,
	"auto_power_standby":             AutoPowerStandby,
	"ir_sensor":                      IRSensor,
	"speaker_a":                      SpeakerA,
	"speaker_b":                      SpeakerB,
	"headphone":                      Headphone,
	"dimmer":                         Dimmer,
	"zone_b_volume_sync":             ZoneBVolumeSync,
	"hdmi_out_1":                     HDMIOut1,
	"hdmi_out_2":                     HDMIOut2,
	"hdmi_out_3":                     HDMIOut3,
	"airplay":                        AirPlay,
	"stereo_pair":                    StereoPair,
	"speaker_settings":               SpeakerSettings,
	"disklavier_settings":            DisklavierSettings,
	"background_download":            BackgroundDownload,
	"remote_info":                    RemoteInfo,
	"network_reboot":                 NetworkReboot,
	"system_reboot":                  SystemReboot,
	"auto_play":                      AutoPlay,
	"speaker_pattern":                SpeakerPattern,
	"party_mode":                     PartyMode,
	"analytics":                      Analytics,
	"ypao_volume":                    YPAOVolume,
	"party_volume":                   PartyVolume,
	"party_mute":                     PartyMute,
	"name_text_avr":                  NameTextAVR,
	"hdmi_standby_through":           HDMIStandbyThrough,
}

var zoneTokens = map[string]ZoneFeature{
	"power":                Power,
	"sleep":                Sleep,
	"volume":               Volume,
	"mute":                 Mute,
	"sound_program":        SoundProgram,
	"surround_3d":          Surround3D,
	"direct":               Direct,
	"pure_direct":          PureDirect,
	"enhancer":             Enhancer,
	"tone_control":         ToneControl,
	"equalizer":            Equalizer,
	"balance":              Balance,
	"dialogue_level":       DialogueLevel,
	"dialogue_lift":        DialogueLift,
	"clear_voice":          ClearVoice,
	"subwoofer_volume":     SubwooferVolume,
	"bass_extension":       BassExtension,
	"signal_info":          SignalInfo,
	"prepare_input_change": PrepareInputChange,
	"link_control":         LinkControl,
	"link_audio_delay":     LinkAudioDelay,
	"link_audio_quality":   LinkAudioQuality,
	"scene":                Scene,
	"contents_display":     ContentsDisplay,
	"cursor":               Cursor,
	"menu":                 Menu,
	"actual_volume":        ActualVolume,
	"audio_select":         AudioSelect,
	"surr_decoder_type":    SurrDecoderType,
	"extra_bass":           ExtraBass,
	"adaptive_drc":         AdaptiveDRC,
	"dts_dialogue_control": DTSDialogueControl,
	"adaptive_dsp_level":   AdaptiveDSPLevel,
	"mono":                 Mono,
}

var (
	deviceNames = invert(deviceTokens, map[DeviceFeature]string{
		Clock:       "clock",
		AlarmOneday: "alarm_oneday",
		AlarmWeekly: "alarm_weekly",
	})
	zoneNames = invert(zoneTokens, nil)
)

func invert[F ~uint64](tokens map[string]F, extra map[F]string) map[F]string {
	out := make(map[F]string, len(tokens)+len(extra))
	for token, bit := range tokens {
		out[bit] = token
	}
	for bit, name := range extra {
		out[bit] = name
	}
	return out
}

// LookupDevice returns the bit for a system func_list token.
func LookupDevice(token string) (DeviceFeature, bool) {
	f, ok := deviceTokens[token]
	return f, ok
}

// LookupZone returns the bit for a zone func_list token.
func LookupZone(token string) (ZoneFeature, bool) {
	f, ok := zoneTokens[token]
	return f, ok
}

// Has reports whether every bit of want is set.
func (f DeviceFeature) Has(want DeviceFeature) bool {
	return want != DeviceNone && f&want == want
}

func (f DeviceFeature) Names() []string {
	return names(f, deviceNames)
}

func (f DeviceFeature) String() string {
	if f == DeviceNone {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

func (f ZoneFeature) Has(want ZoneFeature) bool {
	return want != ZoneNone && f&want == want
}

func (f ZoneFeature) Names() []string {
	return names(f, zoneNames)
}

func (f ZoneFeature) String() string {
	if f == ZoneNone {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// names lists set bits in ascending bit order.
func names[F ~uint64](f F, table map[F]string) []string {
	out := make([]string, 0, bits.OnesCount64(uint64(f)))
	for v := uint64(f); v != 0; v &= v - 1 {
		bit := F(v & -v)
		if name, ok := table[bit]; ok {
			out = append(out, name)
		}
	}
	return out
}
