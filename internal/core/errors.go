package core

import (
	"errors"
	"fmt"
)

// The four error kinds the facade is allowed to surface. Nothing below the
// facade leaks storage errors past this boundary.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrValidation         = errors.New("validation failed")
	ErrStorageConflict    = errors.New("storage conflict")
)

func notFoundErr(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

func preconditionErr(jobID string, status JobStatus, op string) error {
	return fmt.Errorf("%w: job %s is %s, cannot %s", ErrPreconditionFailed, jobID, status, op)
}

func printerPreconditionErr(printerID, reason string) error {
	return fmt.Errorf("%w: printer %s %s", ErrPreconditionFailed, printerID, reason)
}

func validationErr(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
