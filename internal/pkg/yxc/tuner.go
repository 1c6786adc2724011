package yxc

var (
	TunerBands       = []string{"common", "am", "fm", "dab"}
	TunerTunings     = []string{"up", "down", "cancel", "auto_up", "auto_down", "tp_up", "tp_down", "direct"}
	TunerPresetBands = []string{"common", "separate"}
	DABDirections    = []string{"next", "previous"}
)

func TunerGetPlayInfo() Request { return get("tuner/getPlayInfo", nil) }

// TunerSetFreq tunes. num is the frequency for "direct" and ignored by the
// device otherwise.
func TunerSetFreq(band, tuning string, num int) (Request, error) {
	if err := oneOf("band", band, TunerBands); err != nil {
		return Request{}, err
	}
	if err := oneOf("tuning", tuning, TunerTunings); err != nil {
		return Request{}, err
	}
	return get("tuner/setFreq", query{"band", band, "tuning", tuning, "num", itoa(num)}), nil
}

func TunerRecallPreset(zone, band string, num int) (Request, error) {
	if err := checkZone(zone); err != nil {
		return Request{}, err
	}
	if err := oneOf("band", band, TunerPresetBands); err != nil {
		return Request{}, err
	}
	return get("tuner/recallPreset", query{"zone", zone, "band", band, "num", itoa(num)}), nil
}

func TunerSetDABService(dir string) (Request, error) {
	if err := oneOf("dir", dir, DABDirections); err != nil {
		return Request{}, err
	}
	return get("tuner/setDabService", query{"dir", dir}), nil
}
