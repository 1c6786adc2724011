// Package musiccast keeps an in-memory model of one MusicCast device in step
// with the device itself, and runs commands and the group protocol on it.
package musiccast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultGroupTimeout = time.Second
)

// Transport performs YXC requests. Paths are relative to the device's
// YamahaExtendedControl/v1/ root.
type Transport interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
}

// MediaRenderer is implemented by transports that can drive the device's
// UPnP AVTransport service. Args are sent in order.
type MediaRenderer interface {
	AVTransport(ctx context.Context, descriptionURL, action string, args ...Arg) error
}

// Arg is one SOAP action argument.
type Arg struct {
	Name  string
	Value string
}

type Option func(*Device)

// WithUPnPDescription sets the UPnP description url, needed for url playback.
func WithUPnPDescription(url string) Option {
	return func(d *Device) {
		d.state.UPnPDescription = url
	}
}

// WithGroupTiming sets how often group checks poll the state and how long
// they wait for a notification before fetching distribution data.
func WithGroupTiming(poll, timeout time.Duration) Option {
	return func(d *Device) {
		if poll > 0 {
			d.pollInterval = poll
		}
		if timeout > 0 {
			d.groupTimeout = timeout
		}
	}
}

type Device struct {
	logger    *zap.Logger
	ip        string
	transport Transport

	mu    sync.RWMutex
	state *model.DeviceState

	// fetchMu serialises Fetch. Cold discovery below is fetched once.
	fetchMu       sync.Mutex
	networkStatus *model.NetworkStatus
	deviceInfo    *model.DeviceInfo
	features      *model.Features
	zoneIDs       []string

	obsMu          sync.Mutex
	observers      map[uuid.UUID]func()
	groupObservers map[uuid.UUID]func(context.Context) error

	// datagramMu serialises notification handling.
	datagramMu     sync.Mutex
	reduceBySource atomic.Bool

	pollInterval time.Duration
	groupTimeout time.Duration
}

func New(ip string, transport Transport, opts ...Option) *Device {
	d := &Device{
		logger:         zap.L().With(zap.String("device", ip)),
		ip:             ip,
		transport:      transport,
		state:          model.NewDeviceState(ip),
		observers:      map[uuid.UUID]func(){},
		groupObservers: map[uuid.UUID]func(context.Context) error{},
		pollInterval:   defaultPollInterval,
		groupTimeout:   defaultGroupTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) IP() string {
	return d.ip
}

// DeviceID is empty until the first Fetch.
func (d *Device) DeviceID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.DeviceID
}

// Read runs fn with the state read lock held. fn must not call back into
// the Device.
func (d *Device) Read(fn func(*model.DeviceState)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.state)
}

// Snapshot returns a copy of the state safe to hold on to.
func (d *Device) Snapshot() *model.DeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Clone()
}

// is turns a state predicate into a zero-argument check that takes the read
// lock itself.
func (d *Device) is(f func(*model.DeviceState) bool) func() bool {
	return func() bool {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return f(d.state)
	}
}

// AddObserver registers fn to run after every handled notification.
func (d *Device) AddObserver(fn func()) (remove func()) {
	id := uuid.New()
	d.obsMu.Lock()
	d.observers[id] = fn
	d.obsMu.Unlock()
	return func() {
		d.obsMu.Lock()
		delete(d.observers, id)
		d.obsMu.Unlock()
	}
}

// AddGroupObserver registers fn to run when group membership may have
// changed.
func (d *Device) AddGroupObserver(fn func(context.Context) error) (remove func()) {
	id := uuid.New()
	d.obsMu.Lock()
	d.groupObservers[id] = fn
	d.obsMu.Unlock()
	return func() {
		d.obsMu.Lock()
		delete(d.groupObservers, id)
		d.obsMu.Unlock()
	}
}

func (d *Device) notify() {
	d.obsMu.Lock()
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *Device) notifyGroup(ctx context.Context) error {
	d.obsMu.Lock()
	fns := make([]func(context.Context) error, 0, len(d.groupObservers))
	for _, fn := range d.groupObservers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()
	var errs []error
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GroupReduceBySource is true while group observers run because a zone
// switched away from the link input on its own.
func (d *Device) GroupReduceBySource() bool {
	return d.reduceBySource.Load()
}

func (d *Device) send(ctx context.Context, req yxc.Request) ([]byte, error) {
	d.logger.Debug("request", zap.Stringer("request", req))
	if req.Method == http.MethodPost {
		return d.transport.Post(ctx, req.Path, req.Body)
	}
	return d.transport.Get(ctx, req.Path)
}

// do sends a built request and passes builder errors through, so callers
// can write d.do(ctx)(yxc.SetPower(zone, "on")).
func (d *Device) do(ctx context.Context) func(yxc.Request, error) error {
	return func(req yxc.Request, err error) error {
		if err != nil {
			return err
		}
		_, err = d.send(ctx, req)
		return err
	}
}

func decode[T any](ctx context.Context, d *Device, req yxc.Request) (T, error) {
	var out T
	body, err := d.send(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", req.Path, err)
	}
	return out, nil
}
