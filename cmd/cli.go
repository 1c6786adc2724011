package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/anicoll/musiccast-integration/internal/pkg/config"
	"github.com/anicoll/musiccast-integration/internal/pkg/contxt"
	"github.com/anicoll/musiccast-integration/internal/pkg/logic"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

const commandTimeout = 30 * time.Second

// configFromCLI loads the environment and lets explicitly set flags win.
func configFromCLI(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.IsSet("hosts") {
		cfg.Hosts = c.StringSlice("hosts")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if c.IsSet("http-timeout") {
		cfg.HTTPTimeout = c.Duration("http-timeout")
	}
	if c.IsSet("udp-port") {
		cfg.UDPPort = c.Int("udp-port")
	}
	if c.IsSet("upnp-port") {
		cfg.UPnPPort = c.Int("upnp-port")
	}
	if c.IsSet("resync-schedule") {
		cfg.ResyncSchedule = c.String("resync-schedule")
	}
	if c.IsSet("http-addr") {
		cfg.ListenAddr = c.String("http-addr")
	}
	if c.IsSet("mqtt-host") {
		cfg.MQTT.Host = c.String("mqtt-host")
	}
	if c.IsSet("mqtt-user") {
		cfg.MQTT.Username = c.String("mqtt-user")
	}
	if c.IsSet("mqtt-pass") {
		cfg.MQTT.Password = c.String("mqtt-pass")
	}
	if c.IsSet("influx-url") {
		cfg.Influx.URL = c.String("influx-url")
	}
	if c.IsSet("influx-token") {
		cfg.Influx.Token = c.String("influx-token")
	}
	if c.IsSet("influx-org") {
		cfg.Influx.Org = c.String("influx-org")
	}
	if c.IsSet("influx-bucket") {
		cfg.Influx.Bucket = c.String("influx-bucket")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// oneShot loads config and a synced fleet for the short lived commands.
func oneShot(c *cli.Context) (*logic.Fleet, error) {
	cfg, err := configFromCLI(c)
	if err != nil {
		return nil, err
	}
	fleet := newFleet(cfg)
	ctx, cancel := contxt.NewContext(c.Context, commandTimeout)
	defer cancel()
	if err := fleet.Resync(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialSync, err)
	}
	return fleet, nil
}

// StateCommand prints the state of every configured device.
func StateCommand(c *cli.Context) error {
	fleet, err := oneShot(c)
	if err != nil {
		return err
	}
	states := make([]*model.DeviceState, 0)
	for _, d := range fleet.Devices() {
		states = append(states, d.Snapshot())
	}
	return printStates(c.App.Writer, c.String("format"), states)
}

func printStates(w io.Writer, format string, states []*model.DeviceState) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(states)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}
	return fmt.Errorf("unknown format %q", format)
}

func GroupJoinCommand(c *cli.Context) error {
	return groupCommand(c, logic.JoinZone)
}

func GroupLeaveCommand(c *cli.Context) error {
	return groupCommand(c, logic.LeaveZone)
}

func groupCommand(c *cli.Context, op func(context.Context, logic.Server, string, string, ...logic.Client) error) error {
	fleet, err := oneShot(c)
	if err != nil {
		return err
	}
	server, ok := fleet.Device(c.String("server"))
	if !ok {
		return fmt.Errorf("%w: %s", logic.ErrUnknownDevice, c.String("server"))
	}
	clients, err := fleet.Members(c.StringSlice("client")...)
	if err != nil {
		return err
	}
	ctx, cancel := contxt.NewContext(c.Context, commandTimeout)
	defer cancel()
	if err := op(ctx, server, c.String("zone"), c.String("client-zone"), logic.Clients(clients)...); err != nil {
		return err
	}
	st := server.Snapshot()
	_, err = fmt.Fprintf(c.App.Writer, "%s role=%s clients=%v\n", server.IP(), deref(st.GroupRole), st.GroupClientList)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
