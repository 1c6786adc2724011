// Package influx writes capability samples to InfluxDB v2.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/publisher"
)

const (
	measurement        = "musiccast"
	defaultPingTimeout = 5 * time.Second
)

var ErrConnectionFailed = errors.New("influx: connection failed")

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Sink is a publisher.Sink that stores every sample as a point tagged with
// device and capability. Numbers go to the "value" field, bools to "state"
// and strings to "text" so field types never conflict.
type Sink struct {
	logger   *zap.Logger
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func Connect(ctx context.Context, cfg Config) (*Sink, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, influxdb2.DefaultOptions())

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &Sink{
		logger:   zap.L(),
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (s *Sink) Close() {
	s.client.Close()
}

// RegisterDevice is a no-op; InfluxDB needs no schema.
func (s *Sink) RegisterDevice(context.Context, *publisher.Device) error {
	return nil
}

func (s *Sink) Write(ctx context.Context, samples []publisher.Sample) error {
	points := make([]*write.Point, 0, len(samples))
	for _, sample := range samples {
		fields := fieldsOf(sample)
		if fields == nil {
			s.logger.Debug("skipping sample", zap.String("capability", sample.CapabilityID), zap.Any("value", sample.Value))
			continue
		}
		points = append(points, write.NewPoint(
			measurement,
			map[string]string{
				"device_id":  sample.DeviceID,
				"capability": sample.CapabilityID,
				"kind":       sample.Kind.String(),
			},
			fields,
			sample.Timestamp,
		))
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func fieldsOf(sample publisher.Sample) map[string]any {
	var fields map[string]any
	switch v := sample.Value.(type) {
	case int:
		fields = map[string]any{"value": float64(v)}
	case int64:
		fields = map[string]any{"value": float64(v)}
	case float64:
		fields = map[string]any{"value": v}
	case bool:
		fields = map[string]any{"state": v}
	case string:
		fields = map[string]any{"text": v}
	default:
		return nil
	}
	if sample.Label != "" {
		fields["label"] = sample.Label
	}
	return fields
}
