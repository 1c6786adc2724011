package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MUSICCAST_HOSTS", "192.168.1.10,192.168.1.11")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, []string{"192.168.1.10", "192.168.1.11"}, cfg.Hosts)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 41100, cfg.UDPPort)
	assert.Equal(t, 49154, cfg.UPnPPort)
	assert.Equal(t, "*/5 * * * *", cfg.ResyncSchedule)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr)
	assert.Equal(t, "musiccast-integration", cfg.MQTT.ClientID)
	assert.Empty(t, cfg.MQTT.Host)
	assert.Empty(t, cfg.Influx.URL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNested(t *testing.T) {
	t.Setenv("MUSICCAST_HOSTS", "192.168.1.10")
	t.Setenv("MQTT_HOST", "tcp://broker:1883")
	t.Setenv("MQTT_USER", "ha")
	t.Setenv("INFLUX_URL", "http://influx:8086")
	t.Setenv("INFLUX_BUCKET", "audio")
	t.Setenv("MUSICCAST_HTTP_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Host)
	assert.Equal(t, "ha", cfg.MQTT.Username)
	assert.Equal(t, "http://influx:8086", cfg.Influx.URL)
	assert.Equal(t, "audio", cfg.Influx.Bucket)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("MUSICCAST_UDP_PORT", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Hosts: []string{"192.168.1.10"}, LogLevel: "debug", ResyncSchedule: "@every 1m"}
	}
	tests := map[string]struct {
		mutate  func(*Config)
		wantErr bool
	}{
		"valid":        {mutate: func(*Config) {}},
		"no hosts":     {mutate: func(c *Config) { c.Hosts = nil }, wantErr: true},
		"bad level":    {mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		"bad schedule": {mutate: func(c *Config) { c.ResyncSchedule = "often" }, wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
	assert.ErrorIs(t, (&Config{}).Validate(), ErrNoHosts)
}

func TestUPnPDescription(t *testing.T) {
	cfg := &Config{UPnPPort: 49154}
	assert.Equal(t, "http://192.168.1.10:49154/MediaRenderer/desc.xml", cfg.UPnPDescription("192.168.1.10"))

	cfg.UPnPPort = 0
	assert.Empty(t, cfg.UPnPDescription("192.168.1.10"))
}
