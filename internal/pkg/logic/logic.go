// Package logic coordinates several devices: routing notifications,
// resyncing, and building groups that span devices.
package logic

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
)

var ErrUnknownDevice = errors.New("logic: unknown device")

// Fleet is the set of devices the service manages.
type Fleet struct {
	logger *zap.Logger

	mu      sync.RWMutex
	devices []*musiccast.Device
}

// NewFleet registers a group observer on every device so clients that
// switch away from the link input leave their group.
func NewFleet(devices ...*musiccast.Device) *Fleet {
	f := &Fleet{
		logger:  zap.L(),
		devices: devices,
	}
	for _, d := range devices {
		d.AddGroupObserver(f.sourceChanged(d))
	}
	return f
}

func (f *Fleet) Devices() []*musiccast.Device {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.devices)
}

// Device finds a device by device id or IP address.
func (f *Fleet) Device(key string) (*musiccast.Device, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return lo.Find(f.devices, func(d *musiccast.Device) bool {
		return d.IP() == key || (d.DeviceID() != "" && d.DeviceID() == key)
	})
}

// Route picks the device a notification belongs to: by its device_id when
// present, else by the sender's address.
func (f *Fleet) Route(data []byte, sourceIP string) (*musiccast.Device, bool) {
	if id := gjson.GetBytes(data, "device_id"); id.Exists() && id.String() != "" {
		if d, ok := f.Device(id.String()); ok {
			return d, true
		}
	}
	return f.Device(sourceIP)
}

// Dispatch routes a notification and has the device handle it.
func (f *Fleet) Dispatch(ctx context.Context, data []byte, sourceIP string) error {
	d, ok := f.Route(data, sourceIP)
	if !ok {
		f.logger.Debug("notification for unknown device", zap.String("source", sourceIP), zap.ByteString("payload", data))
		return nil
	}
	return d.HandleDatagram(ctx, data)
}

// Resync fetches every device in parallel and notifies its observers.
func (f *Fleet) Resync(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, d := range f.Devices() {
		d := d
		eg.Go(func() error {
			if err := d.Handle(ctx, nil); err != nil {
				return fmt.Errorf("fetch %s: %w", d.IP(), err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Server is the group server side of a multi-device group.
type Server interface {
	IP() string
	Snapshot() *model.DeviceState
	ServerGroupExtend(ctx context.Context, zone string, clientIPs []string, groupID string, distributionNum int) error
	ServerGroupReduce(ctx context.Context, zone string, clientIPs []string, distributionNum int) error
	ServerGroupClose(ctx context.Context) error
}

type Client interface {
	IP() string
	Snapshot() *model.DeviceState
	ClientGroupJoin(ctx context.Context, groupID, serverIP, zone string) error
	ClientGroupUnjoin(ctx context.Context) error
	ZoneJoin(ctx context.Context, zone string) error
	ZoneUnjoin(ctx context.Context, zone string) error
}

// Join links the main zone of clients to zone of server.
func Join(ctx context.Context, server Server, zone string, clients ...Client) error {
	return JoinZone(ctx, server, zone, "main", clients...)
}

// JoinZone links clientZone of every client to zone of server. An existing
// group on the server is extended, otherwise a new one is created. Clients
// already in the server's group only link the extra zone.
func JoinZone(ctx context.Context, server Server, zone, clientZone string, clients ...Client) error {
	if len(clients) == 0 {
		return nil
	}
	state := server.Snapshot()
	groupID := musiccast.NewGroupID()
	if state.GroupIsServer() && state.GroupID != nil && *state.GroupID != model.NullGroup {
		groupID = *state.GroupID
	}
	members, joining := lo.FilterReject(clients, func(c Client, _ int) bool {
		s := c.Snapshot()
		return s.GroupIsClient() && s.GroupIDIs(groupID)
	})

	logger := zap.L().With(zap.String("server", server.IP()), zap.String("group", groupID))
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range members {
		c := c
		eg.Go(func() error {
			return c.ZoneJoin(egCtx, clientZone)
		})
	}
	for _, c := range joining {
		c := c
		eg.Go(func() error {
			return c.ClientGroupJoin(egCtx, groupID, server.IP(), clientZone)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if len(joining) == 0 {
		return nil
	}

	ips := lo.Map(joining, func(c Client, _ int) string { return c.IP() })
	logger.Info("extending group", zap.Strings("clients", ips))
	return server.ServerGroupExtend(ctx, zone, ips, groupID, 0)
}

// Leave unlinks the main zone of clients from server's group.
func Leave(ctx context.Context, server Server, zone string, clients ...Client) error {
	return LeaveZone(ctx, server, zone, "main", clients...)
}

// LeaveZone unlinks clientZone of every client. A client with another zone
// still on the link input stays in the group; the rest leave it, and the
// group is closed once no clients remain.
func LeaveZone(ctx context.Context, server Server, zone, clientZone string, clients ...Client) error {
	staying, leaving := lo.FilterReject(clients, func(c Client, _ int) bool {
		return linked(c.Snapshot(), clientZone)
	})

	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range staying {
		c := c
		eg.Go(func() error {
			return c.ZoneUnjoin(egCtx, clientZone)
		})
	}
	for _, c := range leaving {
		c := c
		eg.Go(func() error {
			return c.ClientGroupUnjoin(egCtx)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if len(leaving) == 0 {
		return nil
	}
	return reduce(ctx, server, zone, leaving)
}

func reduce(ctx context.Context, server Server, zone string, clients []Client) error {
	ips := lo.Map(clients, func(c Client, _ int) string { return c.IP() })
	if err := server.ServerGroupReduce(ctx, zone, ips, 0); err != nil {
		return err
	}
	if len(server.Snapshot().GroupClientList) == 0 {
		zap.L().Info("closing empty group", zap.String("server", server.IP()))
		return server.ServerGroupClose(ctx)
	}
	return nil
}

// linked reports whether a zone other than except plays the link input.
func linked(s *model.DeviceState, except string) bool {
	return lo.SomeBy(s.ZoneIDs(), func(id string) bool {
		return id != except && s.ZoneInputIs(id, model.MCLink)
	})
}

// ServerOf finds the device serving the group ip is a client of.
func (f *Fleet) ServerOf(ip string) (*musiccast.Device, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return lo.Find(f.devices, func(d *musiccast.Device) bool {
		s := d.Snapshot()
		return s.GroupIsServer() && slices.Contains(s.GroupClientList, ip)
	})
}

// sourceChanged is the group observer of client. When a zone of client
// switched away from the link input by itself and no other zone still
// plays the group, client leaves it and the fleet device serving the group
// drops it.
func (f *Fleet) sourceChanged(client *musiccast.Device) func(context.Context) error {
	return func(ctx context.Context) error {
		if !client.GroupReduceBySource() {
			return nil
		}
		state := client.Snapshot()
		if !state.GroupIsClient() || linked(state, "") {
			return nil
		}
		server, ok := f.ServerOf(client.IP())
		if !ok {
			f.logger.Info("client left link input, server unknown", zap.String("client", client.IP()))
			return client.ClientGroupUnjoin(ctx)
		}
		f.logger.Info("client left link input, leaving group",
			zap.String("client", client.IP()), zap.String("server", server.IP()))
		if err := client.ClientGroupUnjoin(ctx); err != nil {
			return err
		}
		zone := "main"
		if s := server.Snapshot(); s.GroupServerZone != nil && *s.GroupServerZone != "" {
			zone = *s.GroupServerZone
		}
		return reduce(ctx, server, zone, []Client{client})
	}
}

// Members resolves keys to devices. Unknown keys are an error.
func (f *Fleet) Members(keys ...string) ([]*musiccast.Device, error) {
	out := make([]*musiccast.Device, 0, len(keys))
	for _, k := range keys {
		d, ok := f.Device(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, k)
		}
		out = append(out, d)
	}
	return out, nil
}

// Clients converts devices for Join and Leave.
func Clients(devices []*musiccast.Device) []Client {
	return lo.Map(devices, func(d *musiccast.Device, _ int) Client { return d })
}
