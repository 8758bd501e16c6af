package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline/hookline/pkg/channels/gochannel"
	"github.com/hookline/hookline/pkg/eventbus"
	"github.com/hookline/hookline/pkg/events"
	"github.com/hookline/hookline/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	publisher, subscriber, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(publisher, subscriber)
}

func TestPublishAndHandleRunFinished(t *testing.T) {
	bus := newTestBus(t)

	defer func() {
		_ = bus.Close()
	}()

	received := make(chan *events.RunFinished, 1)

	err := bus.Handle(events.RunFinishedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.RunFinished)
		require.True(t, ok)

		received <- finished

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.RunFinished{
		BaseEvent:   events.NewBaseEvent(events.RunFinishedEvent, "workflow-1"),
		ExecutionID: "execution-1",
		Status:      models.RunStatusSucceeded,
		DurationMs:  120,
		Succeeded:   2,
	}

	require.NoError(t, bus.Publish(ctx, "workflow-1", event))

	select {
	case finished := <-received:
		assert.Equal(t, "execution-1", finished.ExecutionID)
		assert.Equal(t, models.RunStatusSucceeded, finished.Status)
		assert.Equal(t, 2, finished.Succeeded)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnhandledEventTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)

	defer func() {
		_ = bus.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.RunStarted{
		BaseEvent:   events.NewBaseEvent(events.RunStartedEvent, "workflow-1"),
		ExecutionID: "execution-1",
	}

	assert.NoError(t, bus.Publish(ctx, "workflow-1", event))
}

func TestGenerateID(t *testing.T) {
	bus := newTestBus(t)

	defer func() {
		_ = bus.Close()
	}()

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
