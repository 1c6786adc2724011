package yxc

var (
	PlaybackValues = []string{
		"play", "stop", "pause", "play_pause", "previous", "next",
		"fast_reverse_start", "fast_reverse_end", "fast_forward_start", "fast_forward_end",
	}
	RepeatModes     = []string{"off", "one", "all"}
	ShuffleModes    = []string{"off", "on", "songs", "albums"}
	ListControls    = []string{"select", "play", "return"}
	SearchListIDs   = []string{"main", "auto_complete", "search_artist", "search_track"}
	MaxListPageSize = 8
)

func NetUSBGetPlayInfo() Request   { return get("netusb/getPlayInfo", nil) }
func NetUSBGetPresetInfo() Request { return get("netusb/getPresetInfo", nil) }
func NetUSBToggleRepeat() Request  { return get("netusb/toggleRepeat", nil) }
func NetUSBToggleShuffle() Request { return get("netusb/toggleShuffle", nil) }

func NetUSBSetPlayback(playback string) (Request, error) {
	if err := oneOf("playback", playback, PlaybackValues); err != nil {
		return Request{}, err
	}
	return get("netusb/setPlayback", query{"playback", playback}), nil
}

func NetUSBSetRepeat(mode string) (Request, error) {
	if err := oneOf("repeat", mode, RepeatModes); err != nil {
		return Request{}, err
	}
	return get("netusb/setRepeat", query{"mode", mode}), nil
}

func NetUSBSetShuffle(mode string) (Request, error) {
	if err := oneOf("shuffle", mode, ShuffleModes); err != nil {
		return Request{}, err
	}
	return get("netusb/setShuffle", query{"mode", mode}), nil
}

// NetUSBGetListInfo reads one page of a browse list. The index must be a
// multiple of the page size.
func NetUSBGetListInfo(input string, index, size int, lang, listID string) (Request, error) {
	if err := oneOf("lang", lang, Languages); err != nil {
		return Request{}, err
	}
	if size < 1 || size > MaxListPageSize {
		return Request{}, &ParamError{Param: "size", Value: size}
	}
	if index < 0 || index%MaxListPageSize != 0 {
		return Request{}, &ParamError{Param: "index", Value: index}
	}
	return get("netusb/getListInfo", query{
		"input", input,
		"index", itoa(index),
		"size", itoa(size),
		"lang", lang,
		"list_id", listID,
	}), nil
}

func NetUSBSetListControl(listID, control string, index int, zone string) (Request, error) {
	if err := oneOf("type", control, ListControls); err != nil {
		return Request{}, err
	}
	if err := checkZone(zone); err != nil {
		return Request{}, err
	}
	q := query{"list_id", listID, "type", control}
	if control != "return" {
		q = append(q, "index", itoa(index))
	}
	q = append(q, "zone", zone)
	return get("netusb/setListControl", q), nil
}

type SearchString struct {
	String string `json:"string"`
	ListID string `json:"list_id,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

func NetUSBSetSearchString(s SearchString) (Request, error) {
	if s.ListID != "" {
		if err := oneOf("list_id", s.ListID, SearchListIDs); err != nil {
			return Request{}, err
		}
	}
	return post("netusb/setSearchString", s), nil
}

func NetUSBRecallPreset(zone string, num int) (Request, error) {
	if err := checkZone(zone); err != nil {
		return Request{}, err
	}
	return get("netusb/recallPreset", query{"zone", zone, "num", itoa(num)}), nil
}

func NetUSBStorePreset(num int) Request {
	return get("netusb/storePreset", query{"num", itoa(num)})
}
