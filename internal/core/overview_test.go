package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerline/layerline/internal/db"
)

func TestOverviewEmptyTenant(t *testing.T) {
	s, tenantID := newTestScheduler(t)

	overview, err := s.Overview(context.Background(), tenantID)
	require.NoError(t, err)

	for _, status := range []string{"pending", "queued", "printing", "completed", "failed", "cancelled"} {
		count, ok := overview.Counts[status]
		assert.True(t, ok, "missing count for %s", status)
		assert.Equal(t, 0, count)
	}
	assert.Empty(t, overview.Printers)
	assert.Empty(t, overview.IdlePrinters)
	assert.Empty(t, overview.Pending)
}

func TestOverviewCountsAndPrinters(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	busy := seedPrinter(t, tenantID, "busy", 100, 100, 100, []string{"PLA"})
	free := seedPrinter(t, tenantID, "free", 100, 100, 100, []string{"PLA"})

	waiting := createTestJob(t, s, tenantID, "widget", "high")
	running := createTestJob(t, s, tenantID, "widget", "urgent")
	done := createTestJob(t, s, tenantID, "widget", "normal")

	_, err := s.CancelJob(ctx, tenantID, done.ID)
	require.NoError(t, err)

	_, err = s.AssignManual(ctx, tenantID, running.ID, busy.ID)
	require.NoError(t, err)
	_, err = s.StartJob(ctx, tenantID, running.ID)
	require.NoError(t, err)

	overview, err := s.Overview(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1, overview.Counts["pending"])
	assert.Equal(t, 1, overview.Counts["printing"])
	assert.Equal(t, 1, overview.Counts["cancelled"])
	assert.Equal(t, 0, overview.Counts["queued"])

	assert.Equal(t, []string{free.ID}, overview.IdlePrinters)

	var busyOverview *PrinterOverview
	for i := range overview.Printers {
		if overview.Printers[i].PrinterID == busy.ID {
			busyOverview = &overview.Printers[i]
		}
	}
	require.NotNil(t, busyOverview)
	assert.Equal(t, running.ID, busyOverview.CurrentJobID)
	assert.Equal(t, string(JobStatusPrinting), busyOverview.CurrentJobStatus)
	require.NotNil(t, busyOverview.RemainingSeconds)
	assert.LessOrEqual(t, *busyOverview.RemainingSeconds, int64(3600))

	require.Len(t, overview.Pending, 1)
	assert.Equal(t, waiting.ID, overview.Pending[0].JobID)
	assert.GreaterOrEqual(t, overview.Pending[0].WaitSeconds, int64(0))
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	estimate := int64(600)
	started := now.Add(-100 * time.Second)
	job := &db.PrintJob{
		Status:           string(JobStatusPrinting),
		EstimatedSeconds: &estimate,
		StartedAt:        &started,
	}

	remaining := remainingSeconds(job, now)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(500), *remaining)

	// Overrun floors at zero instead of going negative.
	overdue := now.Add(-2 * time.Hour)
	job.StartedAt = &overdue
	remaining = remainingSeconds(job, now)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(0), *remaining)

	job.Status = string(JobStatusQueued)
	assert.Nil(t, remainingSeconds(job, now))

	job.Status = string(JobStatusPrinting)
	job.EstimatedSeconds = nil
	assert.Nil(t, remainingSeconds(job, now))
}
