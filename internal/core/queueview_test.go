package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerline/layerline/internal/db"
)

func TestOrderQueuePriorityBeforeAge(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	jobs := []*db.PrintJob{
		{ID: "n", Priority: "normal", CreatedAt: base},
		{ID: "u", Priority: "urgent", CreatedAt: base.Add(time.Hour)},
		{ID: "l", Priority: "low", CreatedAt: base.Add(-time.Hour)},
		{ID: "h", Priority: "high", CreatedAt: base},
	}

	OrderQueue(jobs)

	got := []string{jobs[0].ID, jobs[1].ID, jobs[2].ID, jobs[3].ID}
	assert.Equal(t, []string{"u", "h", "n", "l"}, got)
}

func TestOrderQueueFIFOWithinPriority(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	jobs := []*db.PrintJob{
		{ID: "third", Priority: "normal", CreatedAt: base.Add(2 * time.Second)},
		{ID: "first", Priority: "normal", CreatedAt: base},
		{ID: "second", Priority: "normal", CreatedAt: base.Add(time.Second)},
	}

	OrderQueue(jobs)

	assert.Equal(t, "first", jobs[0].ID)
	assert.Equal(t, "second", jobs[1].ID)
	assert.Equal(t, "third", jobs[2].ID)
}

func TestOrderQueueIDTieBreak(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	jobs := []*db.PrintJob{
		{ID: "bbb", Priority: "high", CreatedAt: at},
		{ID: "aaa", Priority: "high", CreatedAt: at},
	}

	OrderQueue(jobs)

	assert.Equal(t, "aaa", jobs[0].ID)
	assert.Equal(t, "bbb", jobs[1].ID)
}

func TestPendingQueueOrdering(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	low := createTestJob(t, s, tenantID, "widget", "low")
	setCreatedAt(t, low.ID, base)
	urgentLate := createTestJob(t, s, tenantID, "widget", "urgent")
	setCreatedAt(t, urgentLate.ID, base.Add(time.Minute))
	urgentEarly := createTestJob(t, s, tenantID, "widget", "urgent")
	setCreatedAt(t, urgentEarly.ID, base)
	normal := createTestJob(t, s, tenantID, "widget", "normal")
	setCreatedAt(t, normal.ID, base)

	queue, err := PendingQueue(ctx, tenantID, 100)
	require.NoError(t, err)
	require.Len(t, queue, 4)

	assert.Equal(t, urgentEarly.ID, queue[0].ID)
	assert.Equal(t, urgentLate.ID, queue[1].ID)
	assert.Equal(t, normal.ID, queue[2].ID)
	assert.Equal(t, low.ID, queue[3].ID)

	// Same state, same order.
	again, err := PendingQueue(ctx, tenantID, 100)
	require.NoError(t, err)
	for i := range queue {
		assert.Equal(t, queue[i].ID, again[i].ID)
	}
}

func TestPendingQueueExcludesNonPending(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "p1", 100, 100, 100, []string{"PLA"})

	stays := createTestJob(t, s, tenantID, "widget", "normal")
	assigned := createTestJob(t, s, tenantID, "widget", "normal")

	_, err := s.AssignManual(ctx, tenantID, assigned.ID, printer.ID)
	require.NoError(t, err)

	queue, err := PendingQueue(ctx, tenantID, 100)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, stays.ID, queue[0].ID)
}
