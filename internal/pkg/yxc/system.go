package yxc

func GetDeviceInfo() Request    { return get("system/getDeviceInfo", nil) }
func GetFeatures() Request      { return get("system/getFeatures", nil) }
func GetNetworkStatus() Request { return get("system/getNetworkStatus", nil) }
func GetFuncStatus() Request    { return get("system/getFuncStatus", nil) }
func GetNameText() Request      { return get("system/getNameText", nil) }

func SetSpeakerA(enable bool) Request {
	return get("system/setSpeakerA", query{"enable", boolStr(enable)})
}

func SetSpeakerB(enable bool) Request {
	return get("system/setSpeakerB", query{"enable", boolStr(enable)})
}

// SetDimmer takes -1 for auto. Range checks belong to the caller, which
// knows the device's dimmer range.
func SetDimmer(value int) Request {
	return get("system/setDimmer", query{"value", itoa(value)})
}

func SetPartyMode(enable bool) Request {
	return get("system/setPartyMode", query{"enable", boolStr(enable)})
}
