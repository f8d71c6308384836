package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"deskchat/model"
)

// classifyContextError maps context cancellation and deadline expiry onto
// the shared taxonomy. Returns nil when err is neither.
func classifyContextError(vendor string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s did not answer in time: %w", vendor, model.ErrProviderTimeout)
	case errors.Is(err, context.Canceled):
		return err
	}
	return nil
}

// classifyTransportError maps connection-level failures onto ErrNetwork and
// everything else onto ErrProvider.
func classifyTransportError(vendor string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%s did not answer in time: %w", vendor, model.ErrProviderTimeout)
		}
		return fmt.Errorf("%s unreachable: %w", vendor, model.ErrNetwork)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%s unreachable: %w", vendor, model.ErrNetwork)
	}
	return fmt.Errorf("%s: %v: %w", vendor, err, model.ErrProvider)
}
