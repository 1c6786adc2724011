package musiccast

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

// NewGroupID returns a fresh 32 character group id.
func NewGroupID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// groupOp runs commands and verifies them with checks, all under the group
// lock, so notifications the commands cause do not run group observers.
// The lock is released between attempts. A failed verification is retried
// once; a command error ends the operation at once.
func (d *Device) groupOp(ctx context.Context, op string, clients []string, commands func(context.Context) error, checks ...func() bool) error {
	log := d.logger.With(zap.String("op", op), zap.Strings("clients", clients))
	for attempt := 1; attempt <= 2; attempt++ {
		var ok bool
		err := d.locked(ctx, func(ctx context.Context) error {
			if err := commands(ctx); err != nil {
				return err
			}
			var err error
			ok, err = d.CheckGroupData(ctx, checks...)
			return err
		})
		if err != nil {
			return err
		}
		if ok {
			log.Info("group operation confirmed", zap.Int("attempt", attempt))
			return nil
		}
		log.Warn("group operation not confirmed", zap.Int("attempt", attempt))
	}
	return &GroupError{Op: op, IP: d.ip, Clients: clients}
}

func (d *Device) locked(ctx context.Context, fn func(context.Context) error) error {
	lock := d.state.GroupLock
	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

// ServerGroupExtend adds clients to the group served by zone, creating the
// group when it does not exist yet.
func (d *Device) ServerGroupExtend(ctx context.Context, zone string, clientIPs []string, groupID string, distributionNum int) error {
	return d.groupOp(ctx, "extend group", clientIPs,
		func(ctx context.Context) error {
			if err := d.do(ctx)(yxc.SetServerInfo(yxc.ServerInfo{GroupID: groupID, Zone: zone, Type: "add", ClientList: clientIPs})); err != nil {
				return err
			}
			return d.do(ctx)(yxc.StartDistribution(distributionNum), nil)
		},
		d.is(func(s *model.DeviceState) bool { return s.ClientsAdded(clientIPs) }),
		d.is(func(s *model.DeviceState) bool { return s.GroupIDIs(groupID) }),
		d.is(func(s *model.DeviceState) bool { return s.GroupRoleIs(model.RoleServer) }),
		d.is(func(s *model.DeviceState) bool { return s.GroupServerZoneIs(zone) }),
	)
}

// ServerGroupReduce removes clients from the current group. Distribution is
// restarted when clients remain.
func (d *Device) ServerGroupReduce(ctx context.Context, zone string, clientIPs []string, distributionNum int) error {
	err := d.groupOp(ctx, "reduce group", clientIPs,
		func(ctx context.Context) error {
			var groupID string
			d.Read(func(s *model.DeviceState) {
				if s.GroupID != nil {
					groupID = *s.GroupID
				}
			})
			return d.do(ctx)(yxc.SetServerInfo(yxc.ServerInfo{GroupID: groupID, Zone: zone, Type: "remove", ClientList: clientIPs}))
		},
		d.is(func(s *model.DeviceState) bool { return s.ClientsRemoved(clientIPs) }),
	)
	if err != nil {
		return err
	}
	var remaining int
	d.Read(func(s *model.DeviceState) { remaining = len(s.GroupClientList) })
	if remaining == 0 {
		return nil
	}
	return d.do(ctx)(yxc.StartDistribution(distributionNum), nil)
}

func (d *Device) ServerGroupClose(ctx context.Context) error {
	return d.groupOp(ctx, "close group", nil,
		func(ctx context.Context) error {
			if err := d.do(ctx)(yxc.StopDistribution(), nil); err != nil {
				return err
			}
			return d.do(ctx)(yxc.SetServerInfo(yxc.ServerInfo{}))
		},
		d.is(func(s *model.DeviceState) bool { return s.GroupIDIs(model.NullGroup) }),
	)
}

// ClientGroupJoin joins the group served by serverIP and switches zone to
// the link input.
func (d *Device) ClientGroupJoin(ctx context.Context, groupID, serverIP, zone string) error {
	return d.groupOp(ctx, "join group", []string{serverIP},
		func(ctx context.Context) error {
			if err := d.do(ctx)(yxc.SetClientInfo(yxc.ClientInfo{GroupID: groupID, Zone: []string{zone}, ServerIPAddress: serverIP})); err != nil {
				return err
			}
			return d.do(ctx)(yxc.SetInput(zone, model.MCLink, ""))
		},
		d.is(func(s *model.DeviceState) bool { return s.GroupIDIs(groupID) }),
		d.is(func(s *model.DeviceState) bool { return s.GroupRoleIs(model.RoleClient) }),
		d.is(func(s *model.DeviceState) bool { return s.ZoneInputIs(zone, model.MCLink) }),
	)
}

func (d *Device) ClientGroupUnjoin(ctx context.Context) error {
	return d.groupOp(ctx, "leave group", nil,
		func(ctx context.Context) error {
			return d.do(ctx)(yxc.SetClientInfo(yxc.ClientInfo{}))
		},
		d.is(func(s *model.DeviceState) bool { return s.GroupIDIs(model.NullGroup) }),
	)
}

// ZoneUnjoin stops link playback in one zone of a device that stays in its
// group: the zone moves to a safe input and goes to standby.
func (d *Device) ZoneUnjoin(ctx context.Context, zone string) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.groupOp(ctx, "zone leave group", []string{zone},
		func(ctx context.Context) error {
			var safe []string
			d.Read(func(s *model.DeviceState) { safe = s.SafeInputs(zone) })
			if len(safe) > 0 {
				if err := d.do(ctx)(yxc.SetInput(zone, safe[0], "")); err != nil {
					return err
				}
			} else {
				d.logger.Warn("no safe input for zone", zap.String("zone", zone))
			}
			return d.do(ctx)(yxc.SetPower(zone, model.PowerStandby))
		},
		d.is(func(s *model.DeviceState) bool { return s.ZonePowerIs(zone, model.PowerStandby) }),
	)
}

// ZoneJoin links a zone into the group another zone of the same device is
// already a client of.
func (d *Device) ZoneJoin(ctx context.Context, zone string) error {
	if err := d.requireZone(zone); err != nil {
		return err
	}
	return d.groupOp(ctx, "zone join group", []string{zone},
		func(ctx context.Context) error {
			return d.do(ctx)(yxc.SetInput(zone, model.MCLink, ""))
		},
		d.is(func(s *model.DeviceState) bool { return s.ZoneInputIs(zone, model.MCLink) }),
	)
}

func (d *Device) GroupIsServer() bool {
	return d.is((*model.DeviceState).GroupIsServer)()
}

func (d *Device) GroupIsClient() bool {
	return d.is((*model.DeviceState).GroupIsClient)()
}

func (d *Device) GroupClientsAdded(clients ...string) bool {
	return d.is(func(s *model.DeviceState) bool { return s.ClientsAdded(clients) })()
}

func (d *Device) GroupClientsRemoved(clients ...string) bool {
	return d.is(func(s *model.DeviceState) bool { return s.ClientsRemoved(clients) })()
}
