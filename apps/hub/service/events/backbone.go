// Package events bridges room broadcasts across hub instances over a pubsub
// backbone, so two users connected to different instances still share rooms.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pitabwire/util"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"

	"github.com/salavathhari/devcollab/apps/hub/service/business"
)

type envelope struct {
	Origin string                 `json:"origin"`
	Room   string                 `json:"room"`
	Event  business.OutboundEvent `json:"event"`
}

// Backbone publishes local room broadcasts to a topic and replays broadcasts
// from other instances into local rooms. Frames carrying this instance's own
// origin id are dropped on receive, so local members see each event once.
type Backbone struct {
	origin string
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
}

// NewBackbone opens the topic and subscription named by the URIs. Drivers are
// selected by URI scheme; the in-memory driver serves single-instance runs.
func NewBackbone(ctx context.Context, topicURI, subscriptionURI string) (*Backbone, error) {
	topic, err := pubsub.OpenTopic(ctx, topicURI)
	if err != nil {
		return nil, fmt.Errorf("open broadcast topic: %w", err)
	}
	sub, err := pubsub.OpenSubscription(ctx, subscriptionURI)
	if err != nil {
		_ = topic.Shutdown(ctx)
		return nil, fmt.Errorf("open broadcast subscription: %w", err)
	}
	return &Backbone{
		origin: util.IDString(),
		topic:  topic,
		sub:    sub,
	}, nil
}

// Publish forwards one room broadcast to peer instances.
func (b *Backbone) Publish(ctx context.Context, room business.RoomKey, evt business.OutboundEvent) error {
	body, err := json.Marshal(envelope{
		Origin: b.origin,
		Room:   room.String(),
		Event:  evt,
	})
	if err != nil {
		return err
	}
	return b.topic.Send(ctx, &pubsub.Message{Body: body})
}

// Run receives peer broadcasts until the context is cancelled, handing each
// to deliver for local fan-out. Malformed frames are acked and dropped.
func (b *Backbone) Run(ctx context.Context, deliver func(room business.RoomKey, evt business.OutboundEvent)) error {
	for {
		msg, err := b.sub.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		msg.Ack()

		var env envelope
		if err := json.Unmarshal(msg.Body, &env); err != nil {
			util.Log(ctx).WithError(err).Warn("dropping malformed backbone frame")
			continue
		}
		if env.Origin == b.origin {
			continue
		}
		room, err := business.ParseRoomKey(env.Room)
		if err != nil {
			util.Log(ctx).WithField("room", env.Room).WithError(err).Warn("dropping backbone frame with bad room key")
			continue
		}
		deliver(room, env.Event)
	}
}

// Close shuts the topic and subscription down.
func (b *Backbone) Close(ctx context.Context) error {
	return errors.Join(b.topic.Shutdown(ctx), b.sub.Shutdown(ctx))
}
