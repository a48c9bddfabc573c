package vpn

import (
	"context"
	"fmt"

	"github.com/yllada/vpn-connector/common"
)

// WaitUntilActive polls until the connection is active, making at most
// timeoutSeconds checks one poll interval apart.
func (c *Connector) WaitUntilActive(ctx context.Context, timeoutSeconds int) (bool, error) {
	return c.waitFor(ctx, true, timeoutSeconds)
}

// WaitUntilInactive polls until the connection is inactive, making at most
// timeoutSeconds checks one poll interval apart.
func (c *Connector) WaitUntilInactive(ctx context.Context, timeoutSeconds int) (bool, error) {
	return c.waitFor(ctx, false, timeoutSeconds)
}

// waitFor checks first and sleeps only after an unsatisfied check, so a
// state that already holds returns without sleeping.
func (c *Connector) waitFor(ctx context.Context, want bool, checks int) (bool, error) {
	for i := 0; i < checks; i++ {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("%w: %w", common.ErrCancelled, err)
		}

		active, err := c.IsActive(ctx)
		if err != nil {
			return false, err
		}
		if active == want {
			return true, nil
		}

		c.clock.Sleep(c.interval)
	}
	return false, nil
}
