package events

import (
	"context"
	"errors"

	"github.com/pitabwire/util"

	"github.com/salavathhari/devcollab/apps/hub/service/business"
	"github.com/salavathhari/devcollab/internal/resilience"
)

// GuardedPublisher wraps a backbone publisher with a breaker so a failing
// broker does not slow local fan-out. Broadcasts rejected while the breaker is
// open are dropped; local members of the room are unaffected since the hub
// delivers locally before publishing.
type GuardedPublisher struct {
	inner   business.BroadcastPublisher
	breaker *resilience.Breaker
}

func NewGuardedPublisher(inner business.BroadcastPublisher) *GuardedPublisher {
	return &GuardedPublisher{
		inner: inner,
		breaker: resilience.NewBreaker(resilience.Options{
			Name: "broadcast-backbone",
			OnStateChange: func(name string, from, to resilience.State) {
				util.Log(context.Background()).
					WithField("breaker", name).
					WithField("from", from.String()).
					WithField("to", to.String()).
					Warn("broadcast backbone breaker changed state")
			},
		}),
	}
}

func (g *GuardedPublisher) Publish(ctx context.Context, room business.RoomKey, evt business.OutboundEvent) error {
	err := g.breaker.Do(func() error {
		return g.inner.Publish(ctx, room, evt)
	})
	if errors.Is(err, resilience.ErrOpen) {
		util.Log(ctx).WithField("room", room.String()).Debug("backbone publish skipped, breaker open")
		return nil
	}
	return err
}
