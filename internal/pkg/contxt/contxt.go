package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext derives a context that times out after timeout. Setting
// CONTEXT_TEST disables the timeout.
func NewContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
