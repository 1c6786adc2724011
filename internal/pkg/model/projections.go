package model

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

func (s *DeviceState) FMFreqString() string {
	if s.Tuner.FMFreq == nil {
		return ""
	}
	return fmt.Sprintf("FM %.2f MHz", float64(*s.Tuner.FMFreq)/1000)
}

func (s *DeviceState) AMFreqString() string {
	if s.Tuner.AMFreq == nil {
		return ""
	}
	return fmt.Sprintf("AM %.2f KHz", float64(*s.Tuner.AMFreq))
}

func (s *DeviceState) band() string {
	if s.Tuner.Band == nil {
		return ""
	}
	return *s.Tuner.Band
}

// TunerMediaTitle is the DAB DLS text, or the RDS radio texts for FM/AM.
func (s *DeviceState) TunerMediaTitle() string {
	if s.band() == "dab" {
		return s.Tuner.DABDLS
	}
	a, b := s.Tuner.RDSTextA, s.Tuner.RDSTextB
	switch {
	case a != "" && b != "":
		return a + " / " + b
	case a != "":
		return a
	default:
		return b
	}
}

func (s *DeviceState) TunerMediaArtist() string {
	switch s.band() {
	case "dab":
		return s.Tuner.DABServiceLabel
	case "fm":
		return s.FMFreqString()
	case "am":
		return s.AMFreqString()
	}
	return ""
}

// MediaImageURL is the absolute album art url of the current NetUSB track.
func (s *DeviceState) MediaImageURL() string {
	if s.NetUSB.AlbumArtURL == nil || *s.NetUSB.AlbumArtURL == "" {
		return ""
	}
	art := *s.NetUSB.AlbumArtURL
	if strings.HasPrefix(art, "http://") || strings.HasPrefix(art, "https://") {
		return art
	}
	return "http://" + s.IP + art
}

func (s *DeviceState) inputName(id string) string {
	if name, ok := s.InputNames[id]; ok && name != "" {
		return name
	}
	return id
}

// AlarmInputCatalog maps alarm source ids to display labels. Resume inputs
// and, when the device allows NetUSB presets as alarm sources, the stored
// presets share one id space.
func (s *DeviceState) AlarmInputCatalog() map[string]string {
	out := make(map[string]string, len(s.AlarmInputList)+len(s.NetUSBPresets))
	for _, inp := range s.AlarmInputList {
		out["resume:"+inp] = "Resume " + s.inputName(inp)
	}
	if slices.Contains(s.AlarmPresetList, "netusb") {
		for num, preset := range s.NetUSBPresets {
			out["preset:netusb:"+strconv.Itoa(num)] = s.inputName(preset.Input) + " - " + preset.Text
		}
	}
	return out
}

// SafeInputs lists inputs a zone can fall back to when it leaves a group:
// distributable, not a link source, allowed in the zone, and not a NetUSB
// input while NetUSB is already playing in some zone.
func (s *DeviceState) SafeInputs(zoneID string) []string {
	zone, ok := s.Zones[zoneID]
	if !ok {
		return nil
	}
	netusbInUse := false
	if s.NetUSB.Input != nil {
		netusbInUse = lo.SomeBy(lo.Values(s.Zones), func(z *ZoneState) bool {
			return z.Input != nil && *z.Input == *s.NetUSB.Input
		})
	}
	return lo.FilterMap(s.SystemInputs, func(in SystemInput, _ int) (string, bool) {
		return in.ID, in.DistributionEnable &&
			(in.PlayInfoType != "netusb" || !netusbInUse) &&
			!slices.Contains(LinkSources, in.ID) &&
			slices.Contains(zone.InputList, in.ID)
	})
}

// ZoneIDs returns the discovered zone ids in a stable order.
func (s *DeviceState) ZoneIDs() []string {
	ids := lo.Keys(s.Zones)
	sort.Slice(ids, func(i, j int) bool {
		return zoneOrder(ids[i]) < zoneOrder(ids[j])
	})
	return ids
}

func zoneOrder(id string) int {
	if i := slices.Index(Zones, id); i >= 0 {
		return i
	}
	return len(Zones)
}

func (s *DeviceState) GroupIsServer() bool {
	return s.GroupRole != nil && *s.GroupRole == RoleServer
}

func (s *DeviceState) GroupIsClient() bool {
	return s.GroupRole != nil && *s.GroupRole == RoleClient
}

func (s *DeviceState) ClientsAdded(clients []string) bool {
	return lo.Every(s.GroupClientList, clients)
}

func (s *DeviceState) ClientsRemoved(clients []string) bool {
	return lo.None(s.GroupClientList, clients)
}

func (s *DeviceState) GroupIDIs(id string) bool {
	return s.GroupID != nil && *s.GroupID == id
}

func (s *DeviceState) ZoneInputIs(zoneID, input string) bool {
	z, ok := s.Zones[zoneID]
	return ok && z.Input != nil && *z.Input == input
}

func (s *DeviceState) ZonePowerIs(zoneID, power string) bool {
	z, ok := s.Zones[zoneID]
	return ok && z.Power != nil && *z.Power == power
}

func (s *DeviceState) GroupRoleIs(role string) bool {
	return s.GroupRole != nil && *s.GroupRole == role
}

func (s *DeviceState) GroupServerZoneIs(zone string) bool {
	return s.GroupServerZone != nil && *s.GroupServerZone == zone
}
