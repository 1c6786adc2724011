package musiccast

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// WaitForDataUpdate polls checks until all of them hold. It returns only
// when they do or ctx is done.
func (d *Device) WaitForDataUpdate(ctx context.Context, checks ...func() bool) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		if all(checks) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CheckGroupData waits a bounded time for checks to hold. When the expected
// notification does not arrive in time, distribution data is fetched once
// and the checks are evaluated again. Timing out is not an error.
func (d *Device) CheckGroupData(ctx context.Context, checks ...func() bool) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, d.groupTimeout)
	defer cancel()

	err := d.WaitForDataUpdate(waitCtx, checks...)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return false, err
	}

	d.logger.Warn("expected group update not received, fetching distribution data")
	locked, err := d.loadDistribution(ctx)
	if err != nil {
		return false, err
	}
	if !locked {
		if err := d.notifyGroup(ctx); err != nil {
			d.logger.Error("group observer failed", zap.Error(err))
		}
	}
	return all(checks), nil
}

func all(checks []func() bool) bool {
	for _, check := range checks {
		if !check() {
			return false
		}
	}
	return true
}
