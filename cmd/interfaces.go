package cmd

import (
	"context"

	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
)

// FleetService is what run expects from the managed devices.
type FleetService interface {
	Resync(ctx context.Context) error
	Dispatch(ctx context.Context, data []byte, sourceIP string) error
	Devices() []*musiccast.Device
}
