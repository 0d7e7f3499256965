package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"toyoko_watch/internal/adapters/observability"
	"toyoko_watch/internal/domain"
)

// Dispatcher pushes a formatted event through every configured channel.
// Channels are independent: one failing does not stop the others, and a
// dispatch failure never fails the cycle.
type Dispatcher struct {
	channels []domain.Channel
}

func NewDispatcher(channels []domain.Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) {
	text := FormatEvent(ev)

	var g errgroup.Group
	for _, ch := range d.channels {
		if !ch.IsEnabled() {
			continue
		}
		ch := ch
		g.Go(func() error {
			if err := ch.Send(ctx, text); err != nil {
				observability.ObserveNotification(ch.Name(), string(ev.Kind), "error")
				log.Warn().
					Str("channel", ch.Name()).
					Str("kind", string(ev.Kind)).
					Str("target", ev.Target.Label()).
					Err(err).
					Msg("notification send failed")
				return nil // best-effort, never propagate
			}
			observability.ObserveNotification(ch.Name(), string(ev.Kind), "ok")
			log.Info().
				Str("channel", ch.Name()).
				Str("kind", string(ev.Kind)).
				Str("target", ev.Target.Label()).
				Msg("notification sent")
			return nil
		})
	}
	_ = g.Wait()
}
