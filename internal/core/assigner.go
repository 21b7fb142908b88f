package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/layerline/layerline/internal/db"
	"github.com/layerline/layerline/internal/metrics"
)

// Assigner is the only component allowed to move a printer out of idle.
// Reservation is a compare-and-set: both guarded UPDATEs run in one
// transaction, and zero rows affected means the race was lost.
type Assigner struct {
	db         *sql.DB
	retries    int
	retryDelay time.Duration
}

func NewAssigner(database *sql.DB, retries int, retryDelay time.Duration) *Assigner {
	if retries < 1 {
		retries = 1
	}
	return &Assigner{
		db:         database,
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// TryAssign atomically reserves the printer and moves the job from pending
// to queued. Either both records change or neither does. Lock contention is
// retried a bounded number of times before surfacing; a lost compare-and-set
// is not retried, because the printer is genuinely gone.
func (a *Assigner) TryAssign(ctx context.Context, tenantID, jobID, printerID string) error {
	var lastErr error
	for attempt := 0; attempt < a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.retryDelay):
			}
		}

		err := a.assignOnce(ctx, tenantID, jobID, printerID)
		if err == nil {
			metrics.JobsAssigned.Inc()
			return nil
		}
		if !errors.Is(err, ErrStorageConflict) {
			return err
		}
		lastErr = err
	}

	metrics.AssignConflicts.Inc()
	return fmt.Errorf("%w: assignment of job %s to printer %s kept conflicting: %v",
		ErrPreconditionFailed, jobID, printerID, lastErr)
}

func (a *Assigner) assignOnce(ctx context.Context, tenantID, jobID, printerID string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorageErr(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, db.ReservePrinter, printerID, tenantID)
	if err != nil {
		return wrapStorageErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr(err)
	}
	if affected == 0 {
		metrics.AssignConflicts.Inc()
		return printerPreconditionErr(printerID, "is not idle")
	}

	res, err = tx.ExecContext(ctx, db.MarkJobQueued, printerID, jobID, tenantID)
	if err != nil {
		return wrapStorageErr(err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return wrapStorageErr(err)
	}
	if affected == 0 {
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM print_jobs WHERE id = ? AND tenant_id = ?", jobID, tenantID,
		).Scan(&status)
		if err == sql.ErrNoRows {
			return notFoundErr("job", jobID)
		}
		if err != nil {
			return wrapStorageErr(err)
		}
		return preconditionErr(jobID, JobStatus(status), "assign")
	}

	if err := tx.Commit(); err != nil {
		return wrapStorageErr(err)
	}
	return nil
}

// wrapStorageErr maps driver-level contention onto ErrStorageConflict so the
// retry loop can recognize it; everything else stays an opaque storage error.
func wrapStorageErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", ErrStorageConflict, err)
		}
	}
	return fmt.Errorf("storage error: %w", err)
}
