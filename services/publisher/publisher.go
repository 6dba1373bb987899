// Package publisher delivers rendered notifications to the messaging platform
// and any configured mirrors.
package publisher

import (
	"context"
	"errors"

	"github.com/dealmungchi/freegameworker/internal/render"
	"github.com/dealmungchi/freegameworker/logger"
)

// Publisher represents a destination for notifications
type Publisher interface {
	// Send delivers one notification. A nil error means the platform accepted it.
	Send(ctx context.Context, n render.Notification) error

	// Close closes the publisher connection
	Close() error
}

// Fanout sends to a primary publisher and mirrors accepted notifications to
// secondary publishers. Only the primary decides acceptance.
type Fanout struct {
	primary Publisher
	mirrors []Publisher
}

// NewFanout creates a fan-out publisher. Nil mirrors are ignored.
func NewFanout(primary Publisher, mirrors ...Publisher) *Fanout {
	f := &Fanout{primary: primary}
	for _, m := range mirrors {
		if m != nil {
			f.mirrors = append(f.mirrors, m)
		}
	}
	return f
}

// Send delivers to the primary, then best-effort to every mirror
func (f *Fanout) Send(ctx context.Context, n render.Notification) error {
	if err := f.primary.Send(ctx, n); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.Send(ctx, n); err != nil {
			logger.ForPublisher().Warn().
				Err(err).
				Strs("offers", n.OfferIDs).
				Msg("Mirror publish failed")
		}
	}
	return nil
}

// Close closes the primary and every mirror
func (f *Fanout) Close() error {
	errs := []error{f.primary.Close()}
	for _, m := range f.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
