package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdmydbr9/EVMR-sub001/internal/model"
	"github.com/sdmydbr9/EVMR-sub001/pkg/logger"
	"github.com/sdmydbr9/EVMR-sub001/pkg/metrics"
)

var (
	workerMetricsOnce sync.Once
	workerMetrics     *metrics.Metrics
)

func sharedMetrics() *metrics.Metrics {
	workerMetricsOnce.Do(func() {
		workerMetrics = metrics.NewMetrics("outbox_worker_test")
	})
	return workerMetrics
}

type fakeOutboxRepo struct {
	mu            sync.Mutex
	pending       []*model.OutboxEvent
	statuses      map[uuid.UUID]model.OutboxStatus
	errors        map[uuid.UUID]string
	cleanupCutoff time.Time
}

func newFakeOutboxRepo(events ...*model.OutboxEvent) *fakeOutboxRepo {
	return &fakeOutboxRepo{
		pending:  events,
		statuses: make(map[uuid.UUID]model.OutboxStatus),
		errors:   make(map[uuid.UUID]string),
	}
}

func (r *fakeOutboxRepo) Create(_ context.Context, _ *model.OutboxEvent) error { return nil }

func (r *fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, _ *sql.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
	if errorMessage != nil {
		r.errors[id] = *errorMessage
	}
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupCutoff = before
	return 7, nil
}

type fakeBroker struct {
	mu        sync.Mutex
	published map[string]int
	fail      bool
}

func newFakeBroker(fail bool) *fakeBroker {
	return &fakeBroker{published: make(map[string]int), fail: fail}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel]++
	if b.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func pendingEvent(eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(`{"account_id":"a"}`),
		Status:    string(model.OutboxStatusPending),
	}
}

func testProcessor(repo *fakeOutboxRepo, broker *fakeBroker, attempts int) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), sharedMetrics())
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	approved := pendingEvent(model.EventRegistrationApproved)
	rejected := pendingEvent(model.EventRegistrationRejected)
	repo := newFakeOutboxRepo(approved, rejected)
	broker := newFakeBroker(false)

	err := testProcessor(repo, broker, 3).processEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, broker.published[model.EventRegistrationApproved])
	assert.Equal(t, 1, broker.published[model.EventRegistrationRejected])
	assert.Equal(t, model.OutboxStatusProcessed, repo.statuses[approved.ID])
	assert.Equal(t, model.OutboxStatusProcessed, repo.statuses[rejected.ID])
}

func TestProcessEventsMarksFailedAfterRetries(t *testing.T) {
	event := pendingEvent(model.EventRegistrationApproved)
	repo := newFakeOutboxRepo(event)
	broker := newFakeBroker(true)

	err := testProcessor(repo, broker, 2).processEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, broker.published[model.EventRegistrationApproved])
	assert.Equal(t, model.OutboxStatusFailed, repo.statuses[event.ID])
	assert.Equal(t, "broker unavailable", repo.errors[event.ID])
}

func TestProcessEventsRespectsBatchSize(t *testing.T) {
	var events []*model.OutboxEvent
	for i := 0; i < 15; i++ {
		events = append(events, pendingEvent(model.EventRegistrationApproved))
	}
	repo := newFakeOutboxRepo(events...)
	broker := newFakeBroker(false)

	err := testProcessor(repo, broker, 1).processEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, broker.published[model.EventRegistrationApproved])
}

func TestCleanupPurgesProcessedEventsOlderThanRetention(t *testing.T) {
	repo := newFakeOutboxRepo()
	processor := testProcessor(repo, newFakeBroker(false), 1)
	processor.config.Retention = 24 * time.Hour

	err := processor.cleanupProcessed(context.Background())
	require.NoError(t, err)

	wantCutoff := time.Now().Add(-24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, repo.cleanupCutoff, time.Minute)
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(newFakeOutboxRepo(), newFakeBroker(false),
			OutboxProcessorConfig{}, logger.NewLogger(nil), sharedMetrics())
	})
}

func TestStartStopsOnContextCancel(t *testing.T) {
	processor := testProcessor(newFakeOutboxRepo(), newFakeBroker(false), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		processor.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not stop on context cancellation")
	}
}
