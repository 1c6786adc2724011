package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrNoHosts = errors.New("config: no musiccast hosts configured")

type Config struct {
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile        string        `env:"LOG_FILE"`
	Hosts          []string      `env:"MUSICCAST_HOSTS" envSeparator:","`
	HTTPTimeout    time.Duration `env:"MUSICCAST_HTTP_TIMEOUT" envDefault:"10s"`
	UDPPort        int           `env:"MUSICCAST_UDP_PORT" envDefault:"41100"`
	UPnPPort       int           `env:"MUSICCAST_UPNP_PORT" envDefault:"49154"`
	ResyncSchedule string        `env:"MUSICCAST_RESYNC_SCHEDULE" envDefault:"*/5 * * * *"`
	ListenAddr     string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`

	MQTT   MQTTConfig   `envPrefix:"MQTT_"`
	Influx InfluxConfig `envPrefix:"INFLUX_"`
}

// MQTTConfig is optional; an empty Host disables the bridge.
type MQTTConfig struct {
	Host     string `env:"HOST"`
	Username string `env:"USER"`
	Password string `env:"PASS"`
	ClientID string `env:"CLIENT_ID" envDefault:"musiccast-integration"`
}

// InfluxConfig is optional; an empty URL disables the sink.
type InfluxConfig struct {
	URL    string `env:"URL"`
	Token  string `env:"TOKEN"`
	Org    string `env:"ORG"`
	Bucket string `env:"BUCKET"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UPnPDescription is the media renderer description of host, or "" when
// the UPnP port is disabled.
func (c *Config) UPnPDescription(host string) string {
	if c.UPnPPort <= 0 {
		return ""
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.UPnPPort)) + "/MediaRenderer/desc.xml"
}

// Validate checks what the environment parser cannot: hosts are present,
// the level parses and the resync schedule is a valid cron spec.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrNoHosts
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	if _, err := cron.ParseStandard(c.ResyncSchedule); err != nil {
		return fmt.Errorf("config: resync schedule: %w", err)
	}
	return nil
}
