package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salavathhari/devcollab/apps/hub/service/business"
	"github.com/salavathhari/devcollab/apps/hub/service/events"
)

func TestBackboneRelaysBetweenInstances(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	topicURI := "mem://relay"
	a, err := events.NewBackbone(ctx, topicURI, topicURI)
	require.NoError(t, err)
	b, err := events.NewBackbone(ctx, topicURI, topicURI)
	require.NoError(t, err)
	defer func() {
		_ = a.Close(context.Background())
		_ = b.Close(context.Background())
	}()

	received := make(chan business.OutboundEvent, 1)
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() {
		_ = b.Run(runCtx, func(room business.RoomKey, evt business.OutboundEvent) {
			assert.Equal(t, "project:p1", room.String())
			received <- evt
		})
	}()

	require.NoError(t, a.Publish(ctx, business.ProjectRoom("p1"), business.OutboundEvent{
		Event:   "presence_update",
		Payload: map[string]any{"projectId": "p1"},
	}))

	select {
	case evt := <-received:
		assert.Equal(t, "presence_update", evt.Event)
	case <-ctx.Done():
		t.Fatal("peer instance never received the broadcast")
	}
}

func TestBackboneIgnoresOwnFrames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	topicURI := "mem://loopback"
	a, err := events.NewBackbone(ctx, topicURI, topicURI)
	require.NoError(t, err)
	defer func() { _ = a.Close(context.Background()) }()

	received := make(chan business.OutboundEvent, 1)
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() {
		_ = a.Run(runCtx, func(_ business.RoomKey, evt business.OutboundEvent) {
			received <- evt
		})
	}()

	require.NoError(t, a.Publish(ctx, business.ProjectRoom("p1"), business.OutboundEvent{Event: "typing"}))

	select {
	case <-received:
		t.Fatal("an instance must not replay its own broadcast")
	case <-time.After(300 * time.Millisecond):
	}
}
