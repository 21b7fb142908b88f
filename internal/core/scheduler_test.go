package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layerline/layerline/internal/db"
)

func TestCreateJobValidation(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})

	_, err := s.CreateJob(ctx, tenantID, CreateJobInput{ModelRef: ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateJob(ctx, tenantID, CreateJobInput{ModelRef: "widget", Priority: "asap"})
	assert.ErrorIs(t, err, ErrValidation)

	bad := int64(-5)
	_, err = s.CreateJob(ctx, tenantID, CreateJobInput{ModelRef: "widget", EstimatedSeconds: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateJob(ctx, tenantID, CreateJobInput{ModelRef: "no-such-model"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateJobSnapshotsModel(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 60, 40, 30, []string{"PLA", "PETG"})

	job, err := s.CreateJob(ctx, tenantID, CreateJobInput{ModelRef: "widget"})
	require.NoError(t, err)

	assert.Equal(t, string(JobStatusPending), job.Status)
	assert.Equal(t, string(PriorityNormal), job.Priority)
	assert.Equal(t, 60.0, job.BoundXMM)
	assert.Equal(t, 40.0, job.BoundYMM)
	assert.Equal(t, 30.0, job.BoundZMM)
	assert.ElementsMatch(t, []string{"PLA", "PETG"}, JobRequirements(job).Materials)
	assert.Nil(t, job.PrinterID)
}

func TestGetJobNotFound(t *testing.T) {
	s, tenantID := newTestScheduler(t)

	_, err := s.GetJob(context.Background(), tenantID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobsAreTenantScoped(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	job := createTestJob(t, s, tenantID, "widget", "normal")

	otherTenant := "some-other-tenant"
	_, err := s.GetJob(ctx, otherTenant, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFullLifecycle(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "p1", 100, 100, 100, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "high")

	assigned, err := s.AssignManual(ctx, tenantID, job.ID, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusQueued), assigned.Status)
	require.NotNil(t, assigned.PrinterID)
	assert.Equal(t, printer.ID, *assigned.PrinterID)

	reserved, err := db.Printers.GetPrinterByID(ctx, tenantID, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(AvailabilityReserved), reserved.Availability)

	started, err := s.StartJob(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusPrinting), started.Status)
	assert.NotNil(t, started.StartedAt)

	printing, err := db.Printers.GetPrinterByID(ctx, tenantID, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(AvailabilityPrinting), printing.Availability)

	completed, err := s.CompleteJob(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusCompleted), completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	idle, err := db.Printers.GetPrinterByID(ctx, tenantID, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(AvailabilityIdle), idle.Availability)
}

func TestIllegalTransitions(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "p1", 100, 100, 100, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "normal")

	// pending: cannot start, complete, or fail.
	_, err := s.StartJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	_, err = s.CompleteJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	_, err = s.FailJob(ctx, tenantID, job.ID, "boom")
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.AssignManual(ctx, tenantID, job.ID, printer.ID)
	require.NoError(t, err)

	// queued: cannot complete, cannot assign again.
	_, err = s.CompleteJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	_, err = s.AssignManual(ctx, tenantID, job.ID, printer.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.StartJob(ctx, tenantID, job.ID)
	require.NoError(t, err)

	// printing: cannot cancel or start again.
	_, err = s.CancelJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	_, err = s.StartJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.CompleteJob(ctx, tenantID, job.ID)
	require.NoError(t, err)

	// completed is terminal.
	_, err = s.CancelJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	_, err = s.FailJob(ctx, tenantID, job.ID, "boom")
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestCancelPendingJob(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "normal")

	cancelled, err := s.CancelJob(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusCancelled), cancelled.Status)

	_, err = s.CancelJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestCancelQueuedJobReleasesPrinter(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "p1", 100, 100, 100, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "normal")
	_, err := s.AssignManual(ctx, tenantID, job.ID, printer.ID)
	require.NoError(t, err)

	cancelled, err := s.CancelJob(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusCancelled), cancelled.Status)

	released, err := db.Printers.GetPrinterByID(ctx, tenantID, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(AvailabilityIdle), released.Availability)
}

func TestFailPrintingJobMarksPrinterError(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "p1", 100, 100, 100, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "normal")
	_, err := s.AssignManual(ctx, tenantID, job.ID, printer.ID)
	require.NoError(t, err)
	_, err = s.StartJob(ctx, tenantID, job.ID)
	require.NoError(t, err)

	_, err = s.FailJob(ctx, tenantID, job.ID, "")
	assert.ErrorIs(t, err, ErrValidation)

	failed, err := s.FailJob(ctx, tenantID, job.ID, "nozzle clog")
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusFailed), failed.Status)
	assert.Equal(t, "nozzle clog", failed.ErrorMessage)

	faulted, err := db.Printers.GetPrinterByID(ctx, tenantID, printer.ID)
	require.NoError(t, err)
	assert.Equal(t, string(AvailabilityError), faulted.Availability)
}

func TestUpdateJobRejectsTerminal(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "normal")

	urgent := "urgent"
	updated, err := s.UpdateJob(ctx, tenantID, job.ID, UpdateJobInput{Priority: &urgent})
	require.NoError(t, err)
	assert.Equal(t, "urgent", updated.Priority)

	_, err = s.CancelJob(ctx, tenantID, job.ID)
	require.NoError(t, err)

	low := "low"
	_, err = s.UpdateJob(ctx, tenantID, job.ID, UpdateJobInput{Priority: &low})
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestDeleteJobOnlyTerminal(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "widget", "normal")

	err := s.DeleteJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.CancelJob(ctx, tenantID, job.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteJob(ctx, tenantID, job.ID))

	_, err = s.GetJob(ctx, tenantID, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignManualRejectsIneligiblePrinter(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "tall", 50, 50, 150, []string{"PLA"})
	short := seedPrinter(t, tenantID, "short", 100, 100, 100, []string{"PLA"})
	noPLA := seedPrinter(t, tenantID, "no-pla", 200, 200, 200, []string{"ABS"})

	job := createTestJob(t, s, tenantID, "tall", "normal")

	_, err := s.AssignManual(ctx, tenantID, job.ID, short.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.AssignManual(ctx, tenantID, job.ID, noPLA.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = s.AssignManual(ctx, tenantID, job.ID, "missing-printer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutoAssignBatch(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "small", 50, 50, 50, []string{"PLA"})
	seedModel(t, tenantID, "big", 250, 250, 250, []string{"PLA"})

	little := seedPrinter(t, tenantID, "little", 100, 100, 100, []string{"PLA"})
	large := seedPrinter(t, tenantID, "large", 300, 300, 300, []string{"PLA"})

	bigJob := createTestJob(t, s, tenantID, "big", "urgent")
	smallJob := createTestJob(t, s, tenantID, "small", "normal")
	extraJob := createTestJob(t, s, tenantID, "small", "low")

	summary, err := s.AutoAssign(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Assigned)
	assert.Equal(t, 1, summary.Skipped)

	byJob := make(map[string]string)
	for _, a := range summary.Assignments {
		byJob[a.JobID] = a.PrinterID
	}
	// The urgent oversize job takes the large printer; the normal job gets
	// the smallest fit, leaving nothing for the third.
	assert.Equal(t, large.ID, byJob[bigJob.ID])
	assert.Equal(t, little.ID, byJob[smallJob.ID])

	require.Len(t, summary.Unassigned, 1)
	assert.Equal(t, extraJob.ID, summary.Unassigned[0].JobID)
	assert.Equal(t, "no capacity", summary.Unassigned[0].Reason)
}

func TestAutoAssignNeverDoubleBooks(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "only", 100, 100, 100, []string{"PLA"})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := createTestJob(t, s, tenantID, "widget", "normal")
	setCreatedAt(t, first.ID, base)
	second := createTestJob(t, s, tenantID, "widget", "normal")
	setCreatedAt(t, second.ID, base.Add(time.Second))
	third := createTestJob(t, s, tenantID, "widget", "normal")
	setCreatedAt(t, third.ID, base.Add(2*time.Second))

	summary, err := s.AutoAssign(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Assigned)
	assert.Equal(t, 2, summary.Skipped)

	assigned, err := s.GetJob(ctx, tenantID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.PrinterID)
	assert.Equal(t, printer.ID, *assigned.PrinterID)
}

func TestAutoAssignReusesFreedPrinter(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "widget", 50, 50, 50, []string{"PLA"})
	printer := seedPrinter(t, tenantID, "x", 100, 100, 100, []string{"PLA"})

	j1 := createTestJob(t, s, tenantID, "widget", "urgent")
	j2 := createTestJob(t, s, tenantID, "widget", "normal")

	summary, err := s.AutoAssign(ctx, tenantID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Assigned)
	assert.Equal(t, j1.ID, summary.Assignments[0].JobID)

	waiting, err := s.GetJob(ctx, tenantID, j2.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusPending), waiting.Status)

	_, err = s.StartJob(ctx, tenantID, j1.ID)
	require.NoError(t, err)
	_, err = s.CompleteJob(ctx, tenantID, j1.ID)
	require.NoError(t, err)

	// The printer came back idle, so a second pass picks up the waiting job.
	summary, err = s.AutoAssign(ctx, tenantID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Assigned)
	assert.Equal(t, j2.ID, summary.Assignments[0].JobID)
	assert.Equal(t, printer.ID, summary.Assignments[0].PrinterID)
}

func TestAutoAssignOversizeJobStaysPending(t *testing.T) {
	s, tenantID := newTestScheduler(t)
	ctx := context.Background()
	seedModel(t, tenantID, "huge", 400, 400, 400, []string{"PLA"})
	seedPrinter(t, tenantID, "y", 100, 100, 100, []string{"PLA"})

	job := createTestJob(t, s, tenantID, "huge", "normal")

	summary, err := s.AutoAssign(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Assigned)
	require.Len(t, summary.Unassigned, 1)
	assert.Equal(t, job.ID, summary.Unassigned[0].JobID)
	assert.Equal(t, "no capacity", summary.Unassigned[0].Reason)

	current, err := s.GetJob(ctx, tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(JobStatusPending), current.Status)
}

func TestAutoAssignEmptyQueue(t *testing.T) {
	s, tenantID := newTestScheduler(t)

	summary, err := s.AutoAssign(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Assigned)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Assignments)
	assert.Empty(t, summary.Unassigned)
}
