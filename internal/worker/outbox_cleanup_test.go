package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/repository/memory"
	"github.com/jwalitptl/healthpoint-api/pkg/logger"
	"github.com/jwalitptl/healthpoint-api/pkg/metrics"
)

func TestCleanupRemovesOnlyOldProcessedEvents(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOutboxRepository()

	processed := &model.OutboxEvent{EventType: model.EventAppointmentBooked, Payload: json.RawMessage(`{}`)}
	pending := &model.OutboxEvent{EventType: model.EventAppointmentCancelled, Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Create(ctx, processed))
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.MarkProcessed(ctx, processed.ID))

	w := NewOutboxCleanupWorker(repo, 7, time.Hour, logger.Nop(), metrics.NewMetrics(prometheus.NewRegistry(), "test"))

	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "fresh events stay")

	w.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	n, err = w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining := repo.Events()
	require.Len(t, remaining, 1)
	assert.Equal(t, pending.ID, remaining[0].ID)
}
