package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/layerline/layerline/internal/db"
	"github.com/layerline/layerline/internal/metrics"
)

const (
	EventJobQueued    = "job_queued"
	EventJobStarted   = "job_started"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
	EventJobCancelled = "job_cancelled"
)

type EventSink interface {
	SendJobEvent(event string, job *db.PrintJob)
}

// ModelCatalog resolves a model reference to the geometry and materials the
// job will need. The catalog itself (products, pricing, files) lives outside
// the scheduler.
type ModelCatalog interface {
	Resolve(ctx context.Context, tenantID, modelRef string) (Requirements, error)
}

var ErrUnknownModel = errors.New("unknown model")

// Scheduler is the facade every API operation goes through. It owns the job
// lifecycle; printer availability changes only as a side effect of the
// transitions here and in the Assigner.
type Scheduler struct {
	db         *sql.DB
	assigner   *Assigner
	catalog    ModelCatalog
	events     EventSink
	batchLimit int
}

func NewScheduler(database *sql.DB, assigner *Assigner, catalog ModelCatalog, events EventSink, batchLimit int) *Scheduler {
	if batchLimit < 1 {
		batchLimit = 200
	}
	return &Scheduler{
		db:         database,
		assigner:   assigner,
		catalog:    catalog,
		events:     events,
		batchLimit: batchLimit,
	}
}

type CreateJobInput struct {
	ModelRef         string
	Priority         string
	EstimatedSeconds *int64
	Reference        string
	Notes            string
}

type UpdateJobInput struct {
	Priority         *string
	EstimatedSeconds *int64
	Reference        *string
	Notes            *string
}

func (s *Scheduler) CreateJob(ctx context.Context, tenantID string, in CreateJobInput) (*db.PrintJob, error) {
	if in.ModelRef == "" {
		return nil, validationErr("model_ref is required")
	}
	if in.Priority == "" {
		in.Priority = string(PriorityNormal)
	}
	if !Priority(in.Priority).Valid() {
		return nil, validationErr(fmt.Sprintf("unknown priority %q", in.Priority))
	}
	if in.EstimatedSeconds != nil && *in.EstimatedSeconds <= 0 {
		return nil, validationErr("estimated duration must be positive")
	}

	req, err := s.catalog.Resolve(ctx, tenantID, in.ModelRef)
	if err != nil {
		if errors.Is(err, ErrUnknownModel) {
			return nil, validationErr(fmt.Sprintf("unknown model_ref %q", in.ModelRef))
		}
		return nil, fmt.Errorf("failed to resolve model: %w", err)
	}

	job := &db.PrintJob{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		ModelRef:         in.ModelRef,
		BoundXMM:         req.Bounds.X,
		BoundYMM:         req.Bounds.Y,
		BoundZMM:         req.Bounds.Z,
		MaterialsJSON:    EncodeMaterials(req.Materials),
		Priority:         in.Priority,
		EstimatedSeconds: in.EstimatedSeconds,
		Reference:        in.Reference,
		Notes:            in.Notes,
	}
	if err := db.Jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	metrics.JobsCreated.Inc()
	return s.GetJob(ctx, tenantID, job.ID)
}

func (s *Scheduler) GetJob(ctx context.Context, tenantID, jobID string) (*db.PrintJob, error) {
	job, err := db.Jobs.GetJobByID(ctx, tenantID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr("job", jobID)
		}
		return nil, err
	}
	return job, nil
}

func (s *Scheduler) ListJobs(ctx context.Context, tenantID string, filter db.JobFilter) ([]*db.PrintJob, error) {
	if filter.Status != "" && !validStatusFilter(filter.Status) {
		return nil, validationErr(fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.Priority != "" && !Priority(filter.Priority).Valid() {
		return nil, validationErr(fmt.Sprintf("unknown priority %q", filter.Priority))
	}
	return db.Jobs.ListJobs(ctx, tenantID, filter)
}

func validStatusFilter(status string) bool {
	switch JobStatus(status) {
	case JobStatusPending, JobStatusQueued, JobStatusPrinting,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

func (s *Scheduler) UpdateJob(ctx context.Context, tenantID, jobID string, in UpdateJobInput) (*db.PrintJob, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(JobStatus(job.Status)) {
		return nil, preconditionErr(jobID, JobStatus(job.Status), "update")
	}

	if in.Priority != nil {
		if !Priority(*in.Priority).Valid() {
			return nil, validationErr(fmt.Sprintf("unknown priority %q", *in.Priority))
		}
		job.Priority = *in.Priority
	}
	if in.EstimatedSeconds != nil {
		if *in.EstimatedSeconds <= 0 {
			return nil, validationErr("estimated duration must be positive")
		}
		job.EstimatedSeconds = in.EstimatedSeconds
	}
	if in.Reference != nil {
		job.Reference = *in.Reference
	}
	if in.Notes != nil {
		job.Notes = *in.Notes
	}

	// The UPDATE re-checks that the job is still non-terminal, so a
	// concurrent completion cannot be overwritten.
	updated, err := db.Jobs.UpdateJobFields(ctx, job)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, preconditionErr(jobID, JobStatus(job.Status), "update")
	}

	return s.GetJob(ctx, tenantID, jobID)
}

func (s *Scheduler) DeleteJob(ctx context.Context, tenantID, jobID string) error {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return err
	}
	if !IsTerminal(JobStatus(job.Status)) {
		return preconditionErr(jobID, JobStatus(job.Status), "delete")
	}

	res, err := s.db.ExecContext(ctx, db.DeleteTerminalJob, jobID, tenantID)
	if err != nil {
		return wrapStorageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(err)
	}
	if affected == 0 {
		return preconditionErr(jobID, JobStatus(job.Status), "delete")
	}
	return nil
}

// AssignManual places one pending job on one specific printer. Eligibility is
// checked up front for a useful error message, then re-checked atomically by
// the Assigner; the pre-check alone is never trusted.
func (s *Scheduler) AssignManual(ctx context.Context, tenantID, jobID, printerID string) (*db.PrintJob, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if JobStatus(job.Status) != JobStatusPending {
		return nil, preconditionErr(jobID, JobStatus(job.Status), "assign")
	}

	printer, err := db.Printers.GetPrinterByID(ctx, tenantID, printerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr("printer", printerID)
		}
		return nil, err
	}

	if reason, bad := IneligibilityReason(JobRequirements(job), PrinterCapabilities(printer)); bad {
		return nil, printerPreconditionErr(printerID, reason)
	}

	if err := s.assigner.TryAssign(ctx, tenantID, jobID, printerID); err != nil {
		return nil, err
	}

	assigned, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	s.emit(EventJobQueued, assigned)
	return assigned, nil
}

type Assignment struct {
	JobID     string `json:"job_id"`
	PrinterID string `json:"printer_id"`
}

type UnassignedJob struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

type AssignSummary struct {
	Assigned    int             `json:"assigned"`
	Skipped     int             `json:"skipped"`
	Assignments []Assignment    `json:"assignments"`
	Unassigned  []UnassignedJob `json:"unassigned"`
}

// AutoAssign walks the pending queue in scheduling order and gives each job
// the smallest idle printer that can take it. Printers claimed earlier in
// the batch are skipped locally, on top of the Assigner's persistent
// compare-and-set, so one batch can never double-book a printer.
func (s *Scheduler) AutoAssign(ctx context.Context, tenantID string) (*AssignSummary, error) {
	metrics.AutoAssignRuns.Inc()

	jobs, err := PendingQueue(ctx, tenantID, s.batchLimit)
	if err != nil {
		return nil, err
	}
	metrics.PendingJobs.Set(float64(len(jobs)))

	printers, err := db.Printers.ListIdlePrinters(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &AssignSummary{
		Assignments: []Assignment{},
		Unassigned:  []UnassignedJob{},
	}
	claimed := make(map[string]bool)

	for _, job := range jobs {
		req := JobRequirements(job)

		for {
			printer := SelectPrinter(req, printers, claimed)
			if printer == nil {
				summary.Skipped++
				summary.Unassigned = append(summary.Unassigned, UnassignedJob{
					JobID:  job.ID,
					Reason: "no capacity",
				})
				break
			}

			err := s.assigner.TryAssign(ctx, tenantID, job.ID, printer.ID)
			if err == nil {
				claimed[printer.ID] = true
				summary.Assigned++
				summary.Assignments = append(summary.Assignments, Assignment{
					JobID:     job.ID,
					PrinterID: printer.ID,
				})
				if assigned, gerr := s.GetJob(ctx, tenantID, job.ID); gerr == nil {
					s.emit(EventJobQueued, assigned)
				}
				break
			}

			if errors.Is(err, ErrPreconditionFailed) || errors.Is(err, ErrNotFound) {
				// Either the printer was grabbed by a concurrent request or
				// the job left pending under us. Re-check the job; if it is
				// still pending the printer was the problem, so exclude it
				// and try the next one.
				current, gerr := s.GetJob(ctx, tenantID, job.ID)
				if gerr != nil || JobStatus(current.Status) != JobStatusPending {
					summary.Skipped++
					summary.Unassigned = append(summary.Unassigned, UnassignedJob{
						JobID:  job.ID,
						Reason: "job no longer pending",
					})
					break
				}
				claimed[printer.ID] = true
				continue
			}

			return nil, err
		}
	}

	return summary, nil
}

func (s *Scheduler) StartJob(ctx context.Context, tenantID, jobID string) (*db.PrintJob, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if JobStatus(job.Status) != JobStatusQueued || job.PrinterID == nil {
		return nil, preconditionErr(jobID, JobStatus(job.Status), "start")
	}

	err = s.transition(ctx, func(tx *sql.Tx) error {
		if err := guardedOr(execGuarded(ctx, tx, db.MarkJobPrinting, jobID, tenantID),
			preconditionErr(jobID, JobStatus(job.Status), "start")); err != nil {
			return err
		}
		return guardedOr(execGuarded(ctx, tx, db.TransitionPrinterAvailability,
			string(AvailabilityPrinting), *job.PrinterID, tenantID, string(AvailabilityReserved)),
			printerPreconditionErr(*job.PrinterID, "is not reserved"))
	})
	if err != nil {
		return nil, err
	}

	started, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	s.emit(EventJobStarted, started)
	return started, nil
}

func (s *Scheduler) CompleteJob(ctx context.Context, tenantID, jobID string) (*db.PrintJob, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if JobStatus(job.Status) != JobStatusPrinting || job.PrinterID == nil {
		return nil, preconditionErr(jobID, JobStatus(job.Status), "complete")
	}

	err = s.transition(ctx, func(tx *sql.Tx) error {
		if err := guardedOr(execGuarded(ctx, tx, db.MarkJobCompleted, jobID, tenantID),
			preconditionErr(jobID, JobStatus(job.Status), "complete")); err != nil {
			return err
		}
		return guardedOr(execGuarded(ctx, tx, db.TransitionPrinterAvailability,
			string(AvailabilityIdle), *job.PrinterID, tenantID, string(AvailabilityPrinting)),
			printerPreconditionErr(*job.PrinterID, "is not printing"))
	})
	if err != nil {
		return nil, err
	}

	metrics.JobsCompleted.Inc()
	completed, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	s.emit(EventJobCompleted, completed)
	return completed, nil
}

func (s *Scheduler) FailJob(ctx context.Context, tenantID, jobID, message string) (*db.PrintJob, error) {
	if message == "" {
		return nil, validationErr("error_message is required")
	}

	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	status := JobStatus(job.Status)
	if (status != JobStatusQueued && status != JobStatusPrinting) || job.PrinterID == nil {
		return nil, preconditionErr(jobID, status, "fail")
	}

	err = s.transition(ctx, func(tx *sql.Tx) error {
		if err := guardedOr(execGuarded(ctx, tx, db.MarkJobFailed, message, jobID, tenantID),
			preconditionErr(jobID, status, "fail")); err != nil {
			return err
		}
		return guardedOr(execGuarded(ctx, tx, db.MarkPrinterError, *job.PrinterID, tenantID),
			printerPreconditionErr(*job.PrinterID, "is not held by this job"))
	})
	if err != nil {
		return nil, err
	}

	metrics.JobsFailed.Inc()
	failed, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	s.emit(EventJobFailed, failed)
	return failed, nil
}

func (s *Scheduler) CancelJob(ctx context.Context, tenantID, jobID string) (*db.PrintJob, error) {
	job, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	status := JobStatus(job.Status)
	if status != JobStatusPending && status != JobStatusQueued {
		return nil, preconditionErr(jobID, status, "cancel")
	}

	err = s.transition(ctx, func(tx *sql.Tx) error {
		if err := guardedOr(execGuarded(ctx, tx, db.MarkJobCancelled, jobID, tenantID),
			preconditionErr(jobID, status, "cancel")); err != nil {
			return err
		}
		// A queued job holds a reservation; hand the printer back.
		if status == JobStatusQueued && job.PrinterID != nil {
			return guardedOr(execGuarded(ctx, tx, db.TransitionPrinterAvailability,
				string(AvailabilityIdle), *job.PrinterID, tenantID, string(AvailabilityReserved)),
				printerPreconditionErr(*job.PrinterID, "is not reserved"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.JobsCancelled.Inc()
	cancelled, err := s.GetJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	s.emit(EventJobCancelled, cancelled)
	return cancelled, nil
}

// transition runs fn in a transaction; any error rolls the whole move back.
func (s *Scheduler) transition(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorageErr(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapStorageErr(err)
	}
	return nil
}

var errNoRowsAffected = errors.New("no rows affected")

func execGuarded(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapStorageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(err)
	}
	if affected == 0 {
		return errNoRowsAffected
	}
	return nil
}

// guardedOr maps a lost guard (zero rows) to the caller's precondition
// error and passes real storage errors through untouched.
func guardedOr(err, precondition error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errNoRowsAffected) {
		return precondition
	}
	return err
}

func (s *Scheduler) emit(event string, job *db.PrintJob) {
	if s.events == nil {
		return
	}
	s.events.SendJobEvent(event, job)
}
