package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentcore/runtime/pkg/models"
)

func TestPublishDeliversInOrderPerJob(t *testing.T) {
	bus := New(8)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	worker := models.NewWorkerId()
	job := models.NewJobId()

	bus.Publish(models.Event{Type: models.EventJobStarted, WorkerID: &worker, JobID: &job})
	bus.Publish(models.Event{Type: models.EventJobOutputChunk, WorkerID: &worker, JobID: &job})
	bus.Publish(models.Event{Type: models.EventJobCompleted, WorkerID: &worker, JobID: &job})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var got []models.EventType
	for i := 0; i < 3; i++ {
		res, err := sub.Recv(ctx)
		require.NoError(t, err)
		require.False(t, res.Closed)
		got = append(got, res.Event.Type)
	}

	require.Equal(t, []models.EventType{
		models.EventJobStarted,
		models.EventJobOutputChunk,
		models.EventJobCompleted,
	}, got)
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := New(2)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(models.Event{Type: models.EventJobStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestLaggedSubscriberReceivesLagSignal(t *testing.T) {
	bus := New(1)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	for i := 0; i < 5; i++ {
		bus.Publish(models.Event{Type: models.EventJobStarted})
	}
	bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var sawLag bool
	for i := 0; i < 6; i++ {
		res, err := sub.Recv(ctx)
		require.NoError(t, err)
		if res.Closed {
			break
		}
		if res.Lagged > 0 {
			sawLag = true
		}
	}
	require.True(t, sawLag, "expected at least one Lagged signal")
}

func TestCloseUnblocksSubscribers(t *testing.T) {
	bus := New(4)
	sub := bus.Subscribe()

	bus.Close()

	res, err := sub.Recv(context.Background())
	require.NoError(t, err)
	require.True(t, res.Closed)
}

func TestPublishAfterCloseIsInert(t *testing.T) {
	bus := New(4)
	bus.Close()
	bus.Publish(models.Event{Type: models.EventJobStarted}) // must not panic
}
