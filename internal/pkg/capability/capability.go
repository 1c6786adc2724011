// Package capability describes the readable and settable features of a
// device as one closed variant type. Setters validate locally and then hand
// the value to a device command; they never touch cached state.
package capability

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"

	"github.com/gosimple/slug"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

var (
	ErrInvalidOption = fmt.Errorf("capability: invalid option: %w", model.ErrValidation)
	ErrInvalidType   = fmt.Errorf("capability: invalid value type: %w", model.ErrValidation)
	ErrReadOnly      = errors.New("capability: read only")
)

type Kind int

const (
	KindNumberSensor Kind = iota
	KindBinarySensor
	KindTextSensor
	KindNumberSetter
	KindOptionSetter
	KindBinarySetter
)

func (k Kind) String() string {
	switch k {
	case KindNumberSensor:
		return "number_sensor"
	case KindBinarySensor:
		return "binary_sensor"
	case KindTextSensor:
		return "text_sensor"
	case KindNumberSetter:
		return "number"
	case KindOptionSetter:
		return "select"
	case KindBinarySetter:
		return "switch"
	}
	return "unknown"
}

func (k Kind) Settable() bool {
	return k >= KindNumberSetter
}

type EntityType int

const (
	Regular EntityType = iota
	Config
	Diagnostic
	System
)

func (e EntityType) String() string {
	switch e {
	case Config:
		return "config"
	case Diagnostic:
		return "diagnostic"
	case System:
		return "system"
	}
	return "regular"
}

// Capability is one sensor or setter. The zero value is not usable; build
// one with the constructors below.
type Capability struct {
	id         string
	name       string
	entityType EntityType
	kind       Kind

	get     func() any
	rng     model.RangeStep
	options map[any]string

	setInt    func(context.Context, int) error
	setOption func(context.Context, any) error
	setBool   func(context.Context, bool) error
}

// ID builds a stable identifier from a feature name and an optional key.
// Zone capabilities are prefixed "zone_".
func ID(zone bool, feature, key string) string {
	parts := []string{feature}
	if key != "" {
		parts = append(parts, key)
	}
	if zone {
		parts = append([]string{"zone"}, parts...)
	}
	return slug.Make(strings.ToLower(strings.Join(parts, "_")))
}

func NewSensor(kind Kind, id, name string, entityType EntityType, get func() any) *Capability {
	if kind.Settable() {
		panic("capability: sensor built with setter kind " + kind.String())
	}
	return &Capability{id: id, name: name, entityType: entityType, kind: kind, get: get}
}

func NewNumberSetter(id, name string, entityType EntityType, get func() any, rng model.RangeStep, set func(context.Context, int) error) *Capability {
	return &Capability{id: id, name: name, entityType: entityType, kind: KindNumberSetter, get: get, rng: rng, setInt: set}
}

// NewOptionSetter takes options keyed by the raw device value, labelled for
// display. Keys must be ints or strings.
func NewOptionSetter(id, name string, entityType EntityType, get func() any, options map[any]string, set func(context.Context, any) error) *Capability {
	return &Capability{id: id, name: name, entityType: entityType, kind: KindOptionSetter, get: get, options: options, setOption: set}
}

func NewBinarySetter(id, name string, entityType EntityType, get func() any, set func(context.Context, bool) error) *Capability {
	return &Capability{id: id, name: name, entityType: entityType, kind: KindBinarySetter, get: get, setBool: set}
}

func (c *Capability) ID() string             { return c.id }
func (c *Capability) Name() string           { return c.name }
func (c *Capability) EntityType() EntityType { return c.entityType }
func (c *Capability) Kind() Kind             { return c.kind }
func (c *Capability) Range() model.RangeStep { return c.rng }

func (c *Capability) Value() any {
	if c.get == nil {
		return nil
	}
	return c.get()
}

func (c *Capability) Options() map[any]string {
	return maps.Clone(c.options)
}

// Set validates v for the capability's kind and forwards it to the device.
func (c *Capability) Set(ctx context.Context, v any) error {
	switch c.kind {
	case KindNumberSetter:
		n, ok := asInt(v)
		if !ok {
			return fmt.Errorf("%w: %s wants a number, got %T", ErrInvalidType, c.id, v)
		}
		if err := c.rng.Check(n); err != nil {
			return fmt.Errorf("%s: %w", c.id, err)
		}
		return c.setInt(ctx, n)
	case KindOptionSetter:
		key := normalise(v)
		if _, ok := c.options[key]; !ok {
			return fmt.Errorf("%w: %s does not accept %v", ErrInvalidOption, c.id, v)
		}
		return c.setOption(ctx, key)
	case KindBinarySetter:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants a bool, got %T", ErrInvalidType, c.id, v)
		}
		return c.setBool(ctx, b)
	}
	return fmt.Errorf("%w: %s", ErrReadOnly, c.id)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// normalise maps JSON numbers onto int so they match int option keys.
func normalise(v any) any {
	if n, ok := asInt(v); ok {
		return n
	}
	return v
}
