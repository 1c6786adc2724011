package yxc

import "slices"

var (
	PowerValues = []string{"on", "standby", "toggle"}
	SleepValues = []int{0, 30, 60, 90, 120}
)

func zoneGet(zone, verb string, q query) (Request, error) {
	if err := checkZone(zone); err != nil {
		return Request{}, err
	}
	return get(zone+"/"+verb, q), nil
}

func GetStatus(zone string) (Request, error) {
	return zoneGet(zone, "getStatus", nil)
}

func SetPower(zone, power string) (Request, error) {
	if err := oneOf("power", power, PowerValues); err != nil {
		return Request{}, err
	}
	return zoneGet(zone, "setPower", query{"power", power})
}

func SetSleep(zone string, minutes int) (Request, error) {
	if !slices.Contains(SleepValues, minutes) {
		return Request{}, &ParamError{Param: "sleep", Value: minutes, Allowed: []string{"0", "30", "60", "90", "120"}}
	}
	return zoneGet(zone, "setSleep", query{"sleep", itoa(minutes)})
}

// SetVolume sets an absolute volume. A positive step is passed along.
func SetVolume(zone string, volume, step int) (Request, error) {
	q := query{"volume", itoa(volume)}
	if step > 0 {
		q = append(q, "step", itoa(step))
	}
	return zoneGet(zone, "setVolume", q)
}

// StepVolume moves the volume "up" or "down". A step of zero leaves the
// device default.
func StepVolume(zone, direction string, step int) (Request, error) {
	if err := oneOf("volume", direction, []string{"up", "down"}); err != nil {
		return Request{}, err
	}
	q := query{"volume", direction}
	if step > 0 {
		q = append(q, "step", itoa(step))
	}
	return zoneGet(zone, "setVolume", q)
}

func SetMute(zone string, enable bool) (Request, error) {
	return zoneGet(zone, "setMute", query{"enable", boolStr(enable)})
}

func SetInput(zone, input, mode string) (Request, error) {
	q := query{"input", input}
	if mode != "" {
		q = append(q, "mode", mode)
	}
	return zoneGet(zone, "setInput", q)
}

func SetSoundProgram(zone, program string) (Request, error) {
	return zoneGet(zone, "setSoundProgram", query{"program", program})
}

func SetPureDirect(zone string, enable bool) (Request, error) {
	return zoneGet(zone, "setPureDirect", query{"enable", boolStr(enable)})
}

func SetEnhancer(zone string, enable bool) (Request, error) {
	return zoneGet(zone, "setEnhancer", query{"enable", boolStr(enable)})
}

func SetBassExtension(zone string, enable bool) (Request, error) {
	return zoneGet(zone, "setBassExtension", query{"enable", boolStr(enable)})
}

func SetExtraBass(zone string, enable bool) (Request, error) {
	return zoneGet(zone, "setExtraBass", query{"enable", boolStr(enable)})
}

func SetAdaptiveDRC(zone string, enable bool) (Request, error) {
	return zoneGet(zone, "setAdaptiveDrc", query{"enable", boolStr(enable)})
}

// SetToneControl omits nil parameters.
func SetToneControl(zone string, mode *string, bass, treble *int) (Request, error) {
	var q query
	if mode != nil {
		q = append(q, "mode", *mode)
	}
	if bass != nil {
		q = append(q, "bass", itoa(*bass))
	}
	if treble != nil {
		q = append(q, "treble", itoa(*treble))
	}
	return zoneGet(zone, "setToneControl", q)
}

// SetEqualizer omits nil parameters.
func SetEqualizer(zone string, mode *string, low, mid, high *int) (Request, error) {
	var q query
	if mode != nil {
		q = append(q, "mode", *mode)
	}
	for _, p := range []struct {
		key string
		v   *int
	}{{"low", low}, {"mid", mid}, {"high", high}} {
		if p.v != nil {
			q = append(q, p.key, itoa(*p.v))
		}
	}
	return zoneGet(zone, "setEqualizer", q)
}

func SetDialogueLevel(zone string, value int) (Request, error) {
	return zoneGet(zone, "setDialogueLevel", query{"value", itoa(value)})
}

func SetDialogueLift(zone string, value int) (Request, error) {
	return zoneGet(zone, "setDialogueLift", query{"value", itoa(value)})
}

func SetDTSDialogueControl(zone string, value int) (Request, error) {
	return zoneGet(zone, "setDtsDialogueControl", query{"num", itoa(value)})
}

func SetLinkControl(zone, control string) (Request, error) {
	return zoneGet(zone, "setLinkControl", query{"control", control})
}

func SetLinkAudioDelay(zone, delay string) (Request, error) {
	return zoneGet(zone, "setLinkAudioDelay", query{"delay", delay})
}

func SetLinkAudioQuality(zone, mode string) (Request, error) {
	return zoneGet(zone, "setLinkAudioQuality", query{"mode", mode})
}

func SetSurroundDecoderType(zone, decoder string) (Request, error) {
	return zoneGet(zone, "setSurroundDecoderType", query{"type", decoder})
}
