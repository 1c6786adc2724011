package influx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/musiccast-integration/internal/pkg/capability"
	"github.com/anicoll/musiccast-integration/internal/pkg/publisher"
)

type fakeInflux struct {
	mu     sync.Mutex
	query  string
	bodies []string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.query = r.URL.RawQuery
		f.bodies = append(f.bodies, string(body))
		status := f.status
		f.mu.Unlock()
		if status == 0 {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

func connect(t *testing.T, f *fakeInflux) *Sink {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s, err := Connect(context.Background(), Config{URL: srv.URL, Token: "token", Org: "home", Bucket: "audio"})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestWrite(t *testing.T) {
	f := &fakeInflux{}
	s := connect(t, f)
	ts := time.Unix(1767322000, 0)

	err := s.Write(context.Background(), []publisher.Sample{
		{DeviceID: "00A0DE000001", CapabilityID: "zone_main_volume", Kind: capability.KindNumberSetter, Value: 42, Timestamp: ts},
		{DeviceID: "00A0DE000001", CapabilityID: "zone_main_power", Kind: capability.KindBinarySetter, Value: true, Timestamp: ts},
		{DeviceID: "00A0DE000001", CapabilityID: "zone_main_input", Kind: capability.KindOptionSetter, Value: "tuner", Label: "Tuner", Timestamp: ts},
		{DeviceID: "00A0DE000001", CapabilityID: "odd", Kind: capability.KindTextSensor, Value: []string{"x"}, Timestamp: ts},
	})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.query, "org=home")
	assert.Contains(t, f.query, "bucket=audio")
	require.Len(t, f.bodies, 1)
	body := f.bodies[0]
	assert.Contains(t, body, "musiccast,capability=zone_main_volume,device_id=00A0DE000001,kind=number value=42")
	assert.Contains(t, body, "capability=zone_main_power,device_id=00A0DE000001,kind=switch state=true")
	assert.Contains(t, body, `label="Tuner"`)
	assert.Contains(t, body, `text="tuner"`)
	assert.NotContains(t, body, "capability=odd")
}

func TestWriteNothing(t *testing.T) {
	f := &fakeInflux{}
	s := connect(t, f)

	require.NoError(t, s.Write(context.Background(), nil))
	require.NoError(t, s.RegisterDevice(context.Background(), &publisher.Device{ID: "x"}))
	assert.Empty(t, f.bodies)
}

func TestWriteError(t *testing.T) {
	f := &fakeInflux{status: http.StatusBadRequest}
	s := connect(t, f)

	err := s.Write(context.Background(), []publisher.Sample{
		{DeviceID: "00A0DE000001", CapabilityID: "zone_main_volume", Kind: capability.KindNumberSetter, Value: 1, Timestamp: time.Now()},
	})
	assert.Error(t, err)
}

func TestConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Connect(context.Background(), Config{URL: url})
	assert.ErrorIs(t, err, ErrConnectionFailed)
}
