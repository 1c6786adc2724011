// Package server exposes the managed devices over a small REST API and a
// websocket state stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/capability"
	"github.com/anicoll/musiccast-integration/internal/pkg/logic"
	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
	"github.com/anicoll/musiccast-integration/internal/pkg/publisher"
	"github.com/anicoll/musiccast-integration/internal/pkg/transport"
)

var errCapabilityNotFound = errors.New("capability not found")

type server struct {
	fleet  *logic.Fleet
	logger *zap.Logger
}

func New(fleet *logic.Fleet) *server {
	return &server{fleet: fleet, logger: zap.L()}
}

// Router wires every route behind LoggingMiddleware.
func (s *server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}", s.getDevice).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}/refresh", s.refreshDevice).Methods(http.MethodPost)
	r.HandleFunc("/devices/{id}/capabilities", s.listCapabilities).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}/capabilities/{capability}", s.setCapability).Methods(http.MethodPut)
	r.HandleFunc("/groups", s.joinGroup).Methods(http.MethodPost)
	r.HandleFunc("/groups", s.leaveGroup).Methods(http.MethodDelete)
	r.HandleFunc("/ws", s.serveWebsocket).Methods(http.MethodGet)
	r.Use(LoggingMiddleware)
	return r
}

type deviceSummary struct {
	IP          string   `json:"ip"`
	DeviceID    string   `json:"device_id"`
	ModelName   string   `json:"model_name"`
	NetworkName string   `json:"network_name"`
	Zones       []string `json:"zones"`
	GroupRole   *string  `json:"group_role,omitempty"`
}

func summarise(d *musiccast.Device) deviceSummary {
	st := d.Snapshot()
	return deviceSummary{
		IP:          st.IP,
		DeviceID:    st.DeviceID,
		ModelName:   st.ModelName,
		NetworkName: st.NetworkName,
		Zones:       st.ZoneIDs(),
		GroupRole:   st.GroupRole,
	}
}

func (s *server) listDevices(w http.ResponseWriter, _ *http.Request) {
	out := []deviceSummary{}
	for _, d := range s.fleet.Devices() {
		out = append(out, summarise(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) device(w http.ResponseWriter, r *http.Request) (*musiccast.Device, bool) {
	id := mux.Vars(r)["id"]
	d, ok := s.fleet.Device(id)
	if !ok {
		handleError(w, fmt.Errorf("%w: %s", logic.ErrUnknownDevice, id))
	}
	return d, ok
}

func (s *server) getDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

func (s *server) refreshDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r)
	if !ok {
		return
	}
	if err := d.Handle(r.Context(), nil); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Snapshot())
}

type option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

type capabilityView struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	EntityType string           `json:"entity_type"`
	Value      any              `json:"value"`
	Range      *model.RangeStep `json:"range,omitempty"`
	Options    []option         `json:"options,omitempty"`
}

func view(c *capability.Capability) capabilityView {
	v := capabilityView{
		ID:         c.ID(),
		Name:       c.Name(),
		Kind:       c.Kind().String(),
		EntityType: c.EntityType().String(),
		Value:      c.Value(),
	}
	switch c.Kind() {
	case capability.KindNumberSetter:
		r := c.Range()
		v.Range = &r
	case capability.KindOptionSetter:
		for key, label := range c.Options() {
			v.Options = append(v.Options, option{Value: key, Label: label})
		}
		slices.SortFunc(v.Options, func(a, b option) int { return strings.Compare(a.Label, b.Label) })
	}
	return v
}

func (s *server) listCapabilities(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r)
	if !ok {
		return
	}
	out := []capabilityView{}
	for _, c := range publisher.Describe(d).Capabilities {
		out = append(out, view(c))
	}
	writeJSON(w, http.StatusOK, out)
}

type setPayload struct {
	Value any `json:"value"`
}

func (s *server) setCapability(w http.ResponseWriter, r *http.Request) {
	d, ok := s.device(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["capability"]
	c, found := findCapability(publisher.Describe(d).Capabilities, id)
	if !found {
		handleError(w, fmt.Errorf("%w: %s", errCapabilityNotFound, id))
		return
	}
	req, err := unmarshalPayload[setPayload](r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := c.Set(r.Context(), req.Value); err != nil {
		handleError(w, err)
		return
	}
	s.logger.Info("capability set", zap.String("device", d.IP()), zap.String("capability", id), zap.Any("value", req.Value))
	w.WriteHeader(http.StatusNoContent)
}

func findCapability(caps []*capability.Capability, id string) (*capability.Capability, bool) {
	i := slices.IndexFunc(caps, func(c *capability.Capability) bool { return c.ID() == id })
	if i < 0 {
		return nil, false
	}
	return caps[i], true
}

// groupPayload links Zone of Server with ClientZone of every client.
type groupPayload struct {
	Server     string   `json:"server"`
	Zone       string   `json:"zone"`
	ClientZone string   `json:"client_zone"`
	Clients    []string `json:"clients"`
}

func (s *server) groupMembers(r *http.Request) (*musiccast.Device, *groupPayload, []logic.Client, error) {
	req, err := unmarshalPayload[groupPayload](r)
	if err != nil {
		return nil, req, nil, err
	}
	if req.Zone == "" {
		req.Zone = "main"
	}
	if req.ClientZone == "" {
		req.ClientZone = "main"
	}
	srv, ok := s.fleet.Device(req.Server)
	if !ok {
		return nil, req, nil, fmt.Errorf("%w: %s", logic.ErrUnknownDevice, req.Server)
	}
	clients, err := s.fleet.Members(req.Clients...)
	if err != nil {
		return nil, req, nil, err
	}
	return srv, req, logic.Clients(clients), nil
}

func (s *server) joinGroup(w http.ResponseWriter, r *http.Request) {
	s.group(w, r, logic.JoinZone)
}

func (s *server) leaveGroup(w http.ResponseWriter, r *http.Request) {
	s.group(w, r, logic.LeaveZone)
}

func (s *server) group(w http.ResponseWriter, r *http.Request, op func(context.Context, logic.Server, string, string, ...logic.Client) error) {
	srv, req, clients, err := s.groupMembers(r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := op(r.Context(), srv, req.Zone, req.ClientZone, clients...); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarise(srv))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, logic.ErrUnknownDevice), errors.Is(err, errCapabilityNotFound), errors.Is(err, musiccast.ErrZoneNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, errBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, capability.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, musiccast.ErrUnsupported), errors.Is(err, musiccast.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, musiccast.ErrConnection), errors.Is(err, transport.ErrResponse), errors.Is(err, musiccast.ErrGroupProtocol):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func handleError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

var errBadPayload = errors.New("invalid payload")

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	var out T
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadPayload, err)
	}
	return &out, nil
}
