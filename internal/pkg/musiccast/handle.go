package musiccast

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

// Handle applies one notification. A nil event means "something changed"
// and triggers a full Fetch. Present fields are merged into the existing
// state; flags trigger re-fetches of the affected block. Observers run once
// at the end.
func (d *Device) Handle(ctx context.Context, ev *model.Event) error {
	if ev == nil {
		if err := d.Fetch(ctx); err != nil {
			return err
		}
		d.notify()
		return nil
	}

	for _, zoneID := range model.Zones {
		ze := ev.ZoneEvent(zoneID)
		if ze == nil {
			continue
		}
		if err := d.handleZone(ctx, zoneID, ze); err != nil {
			return err
		}
	}

	if n := ev.NetUSB; n != nil {
		if n.PlayInfoUpdated {
			if err := d.fetchNetUSB(ctx); err != nil {
				return err
			}
		}
		if n.PlayTime != nil {
			d.mu.Lock()
			d.state.NetUSB.PlayTime = n.PlayTime
			d.state.PlayTimeUpdated = time.Now().UTC()
			d.mu.Unlock()
		}
		if n.PresetInfoUpdated {
			if err := d.fetchNetUSBPresets(ctx); err != nil {
				return err
			}
		}
	}
	if ev.Tuner != nil && ev.Tuner.PlayInfoUpdated {
		if err := d.fetchTuner(ctx); err != nil {
			return err
		}
	}
	if ev.Dist != nil && ev.Dist.DistInfoUpdated {
		if err := d.fetchDistribution(ctx); err != nil {
			return err
		}
	}
	if ev.Clock != nil && ev.Clock.SettingsUpdated {
		if err := d.fetchClock(ctx); err != nil {
			return err
		}
	}
	if ev.System != nil && ev.System.FuncStatusUpdated {
		if err := d.fetchFuncStatus(ctx); err != nil {
			return err
		}
	}

	d.notify()
	return nil
}

func (d *Device) handleZone(ctx context.Context, zoneID string, ze *model.ZoneEvent) error {
	d.mu.Lock()
	zone, ok := d.state.Zones[zoneID]
	if !ok {
		d.mu.Unlock()
		d.logger.Warn("notification for unknown zone", zap.String("zone", zoneID), zap.Strings("zones", d.zoneKeys()))
		return nil
	}
	keep(&zone.CurrentVolume, ze.Volume)
	keep(&zone.Power, ze.Power)
	keep(&zone.Mute, ze.Mute)
	fire, reduce := false, false
	if ze.Input != nil {
		fire, reduce = d.updateInput(zone, ze.Input)
	}
	d.mu.Unlock()

	if fire {
		if err := d.inputGroupChange(ctx, reduce); err != nil {
			return err
		}
	}
	if ze.PlayInfoUpdated || ze.StatusUpdated {
		return d.fetchZone(ctx, zoneID)
	}
	return nil
}

func (d *Device) zoneKeys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.ZoneIDs()
}

// HandleDatagram decodes a raw notification and handles it. Payloads that
// do not decode are logged and dropped. Datagrams are handled one at a
// time.
func (d *Device) HandleDatagram(ctx context.Context, data []byte) error {
	d.datagramMu.Lock()
	defer d.datagramMu.Unlock()

	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		d.logger.Error("invalid notification", zap.ByteString("payload", data), zap.Error(err))
		return nil
	}
	d.logger.Debug("notification", zap.ByteString("payload", data))
	return d.Handle(ctx, &ev)
}

// updateInput stores a zone's new input and reports whether the change may
// have changed group membership. Callers hold d.mu and run
// inputGroupChange after releasing it.
func (d *Device) updateInput(zone *model.ZoneState, input *string) (fire, reduce bool) {
	old := zone.Input
	zone.Input = input
	if equal(old, input) {
		return false, false
	}
	if !isLink(old) && !isLink(input) {
		return false, false
	}
	if d.state.GroupLock.Locked() {
		return false, false
	}
	return true, !isLink(input)
}

// inputGroupChange runs the group observers. When the zone left the link
// input, GroupReduceBySource reports true for the duration of the calls.
func (d *Device) inputGroupChange(ctx context.Context, reduce bool) error {
	if reduce {
		d.reduceBySource.Store(true)
		defer d.reduceBySource.Store(false)
	}
	return d.notifyGroup(ctx)
}

func isLink(input *string) bool {
	return input != nil && *input == model.MCLink
}

func equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
