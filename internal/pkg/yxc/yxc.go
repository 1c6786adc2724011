// Package yxc builds Yamaha Extended Control requests. Builders are pure:
// they check their arguments and return a request descriptor that a
// transport sends relative to http://<host>/YamahaExtendedControl/v1/.
package yxc

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

// ErrValidation is shared with the model so callers test a single sentinel.
var ErrValidation = model.ErrValidation

type Request struct {
	Method string
	Path   string
	Body   any
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

type ParamError struct {
	Param   string
	Value   any
	Allowed []string
}

func (e *ParamError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %v", e.Param, e.Value)
	}
	return fmt.Sprintf("invalid %s %v, expected one of %s", e.Param, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *ParamError) Unwrap() error {
	return ErrValidation
}

var (
	Zones     = model.Zones
	Languages = []string{"en", "ja", "fr", "de", "es", "ru", "it", "zh"}
)

func oneOf(param, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return &ParamError{Param: param, Value: value, Allowed: allowed}
}

func checkZone(zone string) error {
	return oneOf("zone", zone, Zones)
}

// query keeps the parameter order given by the caller, pairs of key, value.
type query []string

func (q query) encode() string {
	var b strings.Builder
	for i := 0; i+1 < len(q); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(q[i]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q[i+1]))
	}
	return b.String()
}

func get(path string, q query) Request {
	if len(q) > 0 {
		path += "?" + q.encode()
	}
	return Request{Method: http.MethodGet, Path: path}
}

func post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body}
}

func boolStr(v bool) string {
	return strconv.FormatBool(v)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
