package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/capability"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

// Sink receives device registrations and capability samples.
type Sink interface {
	RegisterDevice(ctx context.Context, device *Device) error
	Write(ctx context.Context, samples []Sample) error
}

// Source is a device whose capabilities can be published.
type Source interface {
	IP() string
	Snapshot() *model.DeviceState
	Capabilities() []*capability.Capability
	ZoneCapabilities(zone string) ([]*capability.Capability, error)
}

type Device struct {
	ID           string
	Model        string
	Name         string
	Capabilities []*capability.Capability
}

// Sample is one changed capability value. Label carries the option label of
// select values.
type Sample struct {
	DeviceID     string
	CapabilityID string
	Kind         capability.Kind
	Value        any
	Label        string
	Timestamp    time.Time
}

// Publisher fans samples out to the registered sinks. Unchanged values are
// not republished.
type Publisher struct {
	logger *zap.Logger

	mu    sync.RWMutex
	sinks map[string]Sink

	sensors sync.Map
	now     func() time.Time
}

func New() *Publisher {
	return &Publisher{
		logger: zap.L(),
		sinks:  map[string]Sink{},
		now:    time.Now,
	}
}

func (p *Publisher) Register(name string, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sinks[name]; ok {
		return errAlreadyRegistered
	}
	p.sinks[name] = sink
	return nil
}

func (p *Publisher) each(fn func(name string, sink Sink)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, sink := range p.sinks {
		fn(name, sink)
	}
}

// Describe collects the device and every zone's capabilities.
func Describe(src Source) *Device {
	state := src.Snapshot()
	caps := src.Capabilities()
	for _, zone := range state.ZoneIDs() {
		zc, err := src.ZoneCapabilities(zone)
		if err != nil {
			continue
		}
		caps = append(caps, zc...)
	}
	id := state.DeviceID
	if id == "" {
		id = src.IP()
	}
	name := state.NetworkName
	if name == "" {
		name = state.ModelName
	}
	return &Device{ID: id, Model: state.ModelName, Name: name, Capabilities: caps}
}

// RegisterDevice announces src to every sink. Sink failures are logged.
func (p *Publisher) RegisterDevice(ctx context.Context, src Source) error {
	device := Describe(src)
	p.each(func(name string, sink Sink) {
		if err := sink.RegisterDevice(ctx, device); err != nil {
			p.logger.Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			return
		}
		p.logger.Debug("registered device", zap.String("device", device.ID), zap.String("publisher", name))
	})
	return nil
}

// Publish writes every capability value of src that changed since the last
// call.
func (p *Publisher) Publish(ctx context.Context, src Source) error {
	device := Describe(src)
	now := p.now()
	var data []Sample
	for _, c := range device.Capabilities {
		v := c.Value()
		if v == nil {
			continue
		}
		if !p.shouldUpdate(device.ID, c.ID(), fmt.Sprint(v)) {
			continue
		}
		sample := Sample{
			DeviceID:     device.ID,
			CapabilityID: c.ID(),
			Kind:         c.Kind(),
			Value:        v,
			Timestamp:    now,
		}
		if c.Kind() == capability.KindOptionSetter {
			sample.Label = c.Options()[v]
		}
		data = append(data, sample)
	}
	if len(data) == 0 {
		return nil
	}
	p.each(func(name string, sink Sink) {
		if err := sink.Write(ctx, data); err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			return
		}
		p.logger.Debug("updated sensors", zap.Int("count", len(data)), zap.String("publisher", name))
	})
	return nil
}

// Observer is the callback to register with AddObserver on src.
func (p *Publisher) Observer(ctx context.Context, src Source) func() {
	return func() {
		if err := p.Publish(ctx, src); err != nil {
			p.logger.Error("publish failed", zap.Error(err), zap.String("device", src.IP()))
		}
	}
}

func (p *Publisher) shouldUpdate(identifier, capID, newValue string) bool {
	key := identifier + "_" + capID
	oldValue, exists := p.sensors.Load(key)
	if exists && strings.EqualFold(newValue, oldValue.(string)) {
		return false
	}
	if !exists {
		p.logger.Info("configured sensor", zap.String("device", identifier), zap.String("sensor", capID), zap.String("value", newValue))
	}
	p.sensors.Store(key, newValue)
	return true
}
