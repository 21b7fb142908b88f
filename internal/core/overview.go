package core

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/layerline/layerline/internal/db"
)

type PrinterOverview struct {
	PrinterID        string  `json:"printer_id"`
	Name             string  `json:"name"`
	Availability     string  `json:"availability"`
	CurrentJobID     string  `json:"current_job_id,omitempty"`
	CurrentJobStatus string  `json:"current_job_status,omitempty"`
	RemainingSeconds *int64  `json:"remaining_seconds,omitempty"`
}

type PendingOverview struct {
	JobID       string `json:"job_id"`
	ModelRef    string `json:"model_ref"`
	Priority    string `json:"priority"`
	WaitSeconds int64  `json:"wait_seconds"`
}

type QueueOverview struct {
	Counts       map[string]int    `json:"counts"`
	Printers     []PrinterOverview `json:"printers"`
	IdlePrinters []string          `json:"idle_printers"`
	Pending      []PendingOverview `json:"pending"`
}

// Overview is a read-only report over the job store and printer registry.
// It runs outside any transaction; mildly stale numbers are acceptable here.
func (s *Scheduler) Overview(ctx context.Context, tenantID string) (*QueueOverview, error) {
	now := time.Now()

	counts, err := db.Jobs.CountJobsByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	overview := &QueueOverview{
		Counts: map[string]int{
			string(JobStatusPending):   0,
			string(JobStatusQueued):    0,
			string(JobStatusPrinting):  0,
			string(JobStatusCompleted): 0,
			string(JobStatusFailed):    0,
			string(JobStatusCancelled): 0,
		},
		Printers:     []PrinterOverview{},
		IdlePrinters: []string{},
		Pending:      []PendingOverview{},
	}
	for _, c := range counts {
		overview.Counts[c.Status] = c.Count
	}

	printers, err := db.Printers.ListPrinters(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for _, p := range printers {
		po := PrinterOverview{
			PrinterID:    p.ID,
			Name:         p.Name,
			Availability: p.Availability,
		}

		if Availability(p.Availability) == AvailabilityIdle && p.IsActive {
			overview.IdlePrinters = append(overview.IdlePrinters, p.ID)
		}

		job, err := db.Jobs.GetActiveJobForPrinter(ctx, tenantID, p.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
		} else {
			po.CurrentJobID = job.ID
			po.CurrentJobStatus = job.Status
			if remaining := remainingSeconds(job, now); remaining != nil {
				po.RemainingSeconds = remaining
			}
		}

		overview.Printers = append(overview.Printers, po)
	}

	pending, err := PendingQueue(ctx, tenantID, s.batchLimit)
	if err != nil {
		return nil, err
	}
	for _, job := range pending {
		wait := int64(now.Sub(job.CreatedAt).Seconds())
		if wait < 0 {
			wait = 0
		}
		overview.Pending = append(overview.Pending, PendingOverview{
			JobID:       job.ID,
			ModelRef:    job.ModelRef,
			Priority:    job.Priority,
			WaitSeconds: wait,
		})
	}

	return overview, nil
}

// remainingSeconds estimates time left on a printing job: the estimate minus
// time elapsed since start, floored at zero. Nil when the job is not
// printing yet or carries no estimate.
func remainingSeconds(job *db.PrintJob, now time.Time) *int64 {
	if JobStatus(job.Status) != JobStatusPrinting {
		return nil
	}
	if job.EstimatedSeconds == nil || job.StartedAt == nil {
		return nil
	}
	remaining := *job.EstimatedSeconds - int64(now.Sub(*job.StartedAt).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
