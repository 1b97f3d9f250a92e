package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/pkg/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherAndWorkerPersistEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewInMemoryStore()
	publisher := NewPublisher(8, testLogger(), nil)
	worker := NewWorker(store, publisher.Inbox(), testLogger())
	go func() { _ = worker.Run(ctx) }()

	event := Event{
		ActorID:  domain.NewUserID(),
		Action:   ActionReportSubmit,
		Entity:   "report",
		EntityID: domain.NewReportID().String(),
		Before:   "DRAFT",
		After:    "PROCESSING",
	}
	publisher.Emit(ctx, event)

	require.Eventually(t, func() bool {
		return len(store.All()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := store.All()[0]
	assert.Equal(t, ActionReportSubmit, got.Action)
	assert.Equal(t, event.ActorID, got.ActorID)
	assert.False(t, got.Timestamp.IsZero(), "publisher stamps the timestamp")
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	dropped := 0
	publisher := NewPublisher(1, testLogger(), func() { dropped++ })

	// No worker draining: the second emit must drop, not block.
	publisher.Emit(context.Background(), Event{Action: ActionReportCreate, EntityID: "a"})

	done := make(chan struct{})
	go func() {
		publisher.Emit(context.Background(), Event{Action: ActionReportCreate, EntityID: "b"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
	assert.Equal(t, 1, dropped)
}

func TestInMemoryStoreListByEntity(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	reportID := domain.NewReportID().String()
	require.NoError(t, store.Append(ctx, Event{Entity: "report", EntityID: reportID, Action: ActionReportCreate}))
	require.NoError(t, store.Append(ctx, Event{Entity: "report", EntityID: reportID, Action: ActionReportSubmit}))
	require.NoError(t, store.Append(ctx, Event{Entity: "report", EntityID: "other", Action: ActionReportCreate}))

	got, err := store.ListByEntity(ctx, "report", reportID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionReportCreate, got[0].Action)
	assert.Equal(t, ActionReportSubmit, got[1].Action)
}
