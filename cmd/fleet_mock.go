package cmd

import (
	"context"

	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
)

// MockFleetService is a mock implementation of the FleetService interface.
type MockFleetService struct {
	ResyncFunc   func(ctx context.Context) error
	DispatchFunc func(ctx context.Context, data []byte, sourceIP string) error
	DevicesFunc  func() []*musiccast.Device
}

func (m *MockFleetService) Resync(ctx context.Context) error {
	if m.ResyncFunc != nil {
		return m.ResyncFunc(ctx)
	}
	return nil
}

func (m *MockFleetService) Dispatch(ctx context.Context, data []byte, sourceIP string) error {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, data, sourceIP)
	}
	return nil
}

func (m *MockFleetService) Devices() []*musiccast.Device {
	if m.DevicesFunc != nil {
		return m.DevicesFunc()
	}
	return nil
}
