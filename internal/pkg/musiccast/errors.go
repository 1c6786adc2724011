package musiccast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnection    = errors.New("musiccast: connection failed")
	ErrUnsupported   = errors.New("musiccast: feature not supported")
	ErrGroupProtocol = errors.New("musiccast: group protocol failed")
	ErrConfiguration = errors.New("musiccast: missing configuration")
	ErrZoneNotFound  = errors.New("musiccast: zone not found")
)

// ConnectionError wraps a transport fault. The core never retries it.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConnection, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

type UnsupportedFeatureError struct {
	Feature string
	Zone    string
}

func (e *UnsupportedFeatureError) Error() string {
	if e.Zone == "" {
		return fmt.Sprintf("%s: device does not support %s", ErrUnsupported, e.Feature)
	}
	return fmt.Sprintf("%s: zone %s does not support %s", ErrUnsupported, e.Zone, e.Feature)
}

func (e *UnsupportedFeatureError) Unwrap() error {
	return ErrUnsupported
}

// GroupError is returned once a group operation failed verification twice.
type GroupError struct {
	Op      string
	IP      string
	Clients []string
}

func (e *GroupError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrGroupProtocol, e.IP, e.Op)
	if len(e.Clients) > 0 {
		msg += " [" + strings.Join(e.Clients, ", ") + "]"
	}
	return msg
}

func (e *GroupError) Unwrap() error {
	return ErrGroupProtocol
}
