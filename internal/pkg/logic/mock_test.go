package logic

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
)

// stubTransport answers deviceInfo with a fixed id, paths in responses
// with their canned body and every other path with an empty success.
type stubTransport struct {
	deviceID string

	mu        sync.Mutex
	paths     []string
	err       error
	responses map[string]string
	// after runs once a call is recorded, outside the lock.
	after func(path string, body any)
}

func (s *stubTransport) Get(_ context.Context, path string) ([]byte, error) {
	return s.serve(path, nil)
}

func (s *stubTransport) Post(_ context.Context, path string, body any) ([]byte, error) {
	return s.serve(path, body)
}

func (s *stubTransport) serve(path string, body any) ([]byte, error) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	err := s.err
	key, _, _ := strings.Cut(path, "?")
	resp, ok := s.responses[key]
	after := s.after
	s.mu.Unlock()

	if after != nil {
		after(path, body)
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return []byte(resp), nil
	}
	if key == "system/getDeviceInfo" {
		return []byte(`{"response_code":0,"device_id":"` + s.deviceID + `","model_name":"WX-021"}`), nil
	}
	return []byte(`{"response_code":0}`), nil
}

func (s *stubTransport) set(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.responses == nil {
		s.responses = map[string]string{}
	}
	s.responses[path] = body
}

func (s *stubTransport) called(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.paths {
		if key, _, _ := strings.Cut(p, "?"); key == path {
			n++
		}
	}
	return n
}

// MockServer is a Server with overridable behaviour.
type MockServer struct {
	IPValue string
	State   *model.DeviceState

	ServerGroupExtendFunc func(ctx context.Context, zone string, clientIPs []string, groupID string, distributionNum int) error
	ServerGroupReduceFunc func(ctx context.Context, zone string, clientIPs []string, distributionNum int) error
	ServerGroupCloseFunc  func(ctx context.Context) error
}

func (m *MockServer) IP() string {
	return m.IPValue
}

func (m *MockServer) Snapshot() *model.DeviceState {
	if m.State == nil {
		return model.NewDeviceState(m.IPValue)
	}
	return m.State.Clone()
}

func (m *MockServer) ServerGroupExtend(ctx context.Context, zone string, clientIPs []string, groupID string, distributionNum int) error {
	if m.ServerGroupExtendFunc != nil {
		return m.ServerGroupExtendFunc(ctx, zone, clientIPs, groupID, distributionNum)
	}
	return errors.New("mocked ServerGroupExtend not implemented")
}

func (m *MockServer) ServerGroupReduce(ctx context.Context, zone string, clientIPs []string, distributionNum int) error {
	if m.ServerGroupReduceFunc != nil {
		return m.ServerGroupReduceFunc(ctx, zone, clientIPs, distributionNum)
	}
	return errors.New("mocked ServerGroupReduce not implemented")
}

func (m *MockServer) ServerGroupClose(ctx context.Context) error {
	if m.ServerGroupCloseFunc != nil {
		return m.ServerGroupCloseFunc(ctx)
	}
	return errors.New("mocked ServerGroupClose not implemented")
}

type MockClient struct {
	IPValue string
	State   *model.DeviceState

	ClientGroupJoinFunc   func(ctx context.Context, groupID, serverIP, zone string) error
	ClientGroupUnjoinFunc func(ctx context.Context) error
	ZoneJoinFunc          func(ctx context.Context, zone string) error
	ZoneUnjoinFunc        func(ctx context.Context, zone string) error
}

func (m *MockClient) IP() string {
	return m.IPValue
}

func (m *MockClient) Snapshot() *model.DeviceState {
	if m.State == nil {
		return model.NewDeviceState(m.IPValue)
	}
	return m.State.Clone()
}

func (m *MockClient) ClientGroupJoin(ctx context.Context, groupID, serverIP, zone string) error {
	if m.ClientGroupJoinFunc != nil {
		return m.ClientGroupJoinFunc(ctx, groupID, serverIP, zone)
	}
	return errors.New("mocked ClientGroupJoin not implemented")
}

func (m *MockClient) ClientGroupUnjoin(ctx context.Context) error {
	if m.ClientGroupUnjoinFunc != nil {
		return m.ClientGroupUnjoinFunc(ctx)
	}
	return errors.New("mocked ClientGroupUnjoin not implemented")
}

func (m *MockClient) ZoneJoin(ctx context.Context, zone string) error {
	if m.ZoneJoinFunc != nil {
		return m.ZoneJoinFunc(ctx, zone)
	}
	return errors.New("mocked ZoneJoin not implemented")
}

func (m *MockClient) ZoneUnjoin(ctx context.Context, zone string) error {
	if m.ZoneUnjoinFunc != nil {
		return m.ZoneUnjoinFunc(ctx, zone)
	}
	return errors.New("mocked ZoneUnjoin not implemented")
}
