package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type TenantOperations struct{}

func (o *TenantOperations) CreateTenant(ctx context.Context, t *Tenant) error {
	_, err := GetDB().ExecContext(ctx, InsertTenant, t.ID, t.Name, t.APIKeyHash)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (o *TenantOperations) GetTenantByID(ctx context.Context, id string) (*Tenant, error) {
	t := &Tenant{}
	err := GetDB().QueryRowContext(ctx, GetTenantByID, id).Scan(
		&t.ID, &t.Name, &t.APIKeyHash, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

type PrinterOperations struct{}

func (o *PrinterOperations) CreatePrinter(ctx context.Context, p *Printer) error {
	_, err := GetDB().ExecContext(ctx, InsertPrinter,
		p.ID, p.TenantID, p.Name, p.VolumeXMM, p.VolumeYMM, p.VolumeZMM,
		p.MaterialsJSON, p.Availability, p.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create printer: %w", err)
	}
	return nil
}

func (o *PrinterOperations) GetPrinterByID(ctx context.Context, tenantID, id string) (*Printer, error) {
	p := &Printer{}
	err := GetDB().QueryRowContext(ctx, GetPrinterByID, id, tenantID).Scan(
		&p.ID, &p.TenantID, &p.Name, &p.VolumeXMM, &p.VolumeYMM, &p.VolumeZMM,
		&p.MaterialsJSON, &p.Availability, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	return p, nil
}

func (o *PrinterOperations) ListPrinters(ctx context.Context, tenantID string) ([]*Printer, error) {
	rows, err := GetDB().QueryContext(ctx, ListPrinters, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	return scanPrinters(rows)
}

func (o *PrinterOperations) ListIdlePrinters(ctx context.Context, tenantID string) ([]*Printer, error) {
	rows, err := GetDB().QueryContext(ctx, ListIdlePrinters, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle printers: %w", err)
	}
	defer rows.Close()

	return scanPrinters(rows)
}

func (o *PrinterOperations) UpdatePrinter(ctx context.Context, p *Printer) error {
	_, err := GetDB().ExecContext(ctx, UpdatePrinter,
		p.Name, p.VolumeXMM, p.VolumeYMM, p.VolumeZMM,
		p.MaterialsJSON, p.IsActive, p.ID, p.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update printer: %w", err)
	}
	return nil
}

// TransitionAvailability flips a printer from one availability state to
// another only if it is still in the expected state. Returns false when the
// guard did not match.
func (o *PrinterOperations) TransitionAvailability(ctx context.Context, tenantID, id, from, to string) (bool, error) {
	result, err := GetDB().ExecContext(ctx, TransitionPrinterAvailability, to, id, tenantID, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition printer availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check transition result: %w", err)
	}
	return affected > 0, nil
}

func (o *PrinterOperations) DeletePrinter(ctx context.Context, tenantID, id string) error {
	_, err := GetDB().ExecContext(ctx, DeletePrinter, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}
	return nil
}

type ModelOperations struct{}

func (o *ModelOperations) CreateModel(ctx context.Context, m *ProductModel) error {
	_, err := GetDB().ExecContext(ctx, InsertModel,
		m.ID, m.TenantID, m.Ref, m.Name,
		m.BoundXMM, m.BoundYMM, m.BoundZMM, m.MaterialsJSON)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}
	return nil
}

func (o *ModelOperations) GetModelByRef(ctx context.Context, tenantID, ref string) (*ProductModel, error) {
	m := &ProductModel{}
	err := GetDB().QueryRowContext(ctx, GetModelByRef, tenantID, ref).Scan(
		&m.ID, &m.TenantID, &m.Ref, &m.Name,
		&m.BoundXMM, &m.BoundYMM, &m.BoundZMM, &m.MaterialsJSON, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return m, nil
}

func (o *ModelOperations) ListModels(ctx context.Context, tenantID string) ([]*ProductModel, error) {
	rows, err := GetDB().QueryContext(ctx, ListModels, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var models []*ProductModel
	for rows.Next() {
		m := &ProductModel{}
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.Ref, &m.Name,
			&m.BoundXMM, &m.BoundYMM, &m.BoundZMM, &m.MaterialsJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

type JobOperations struct{}

func (o *JobOperations) CreateJob(ctx context.Context, j *PrintJob) error {
	_, err := GetDB().ExecContext(ctx, InsertJob,
		j.ID, j.TenantID, j.ModelRef,
		j.BoundXMM, j.BoundYMM, j.BoundZMM, j.MaterialsJSON,
		j.Priority, j.EstimatedSeconds, j.Reference, j.Notes)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (o *JobOperations) ListPendingJobs(ctx context.Context, tenantID string, limit int) ([]*PrintJob, error) {
	rows, err := GetDB().QueryContext(ctx, ListPendingJobs, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	return ScanJobs(rows)
}

func (o *JobOperations) UpdateJobFields(ctx context.Context, j *PrintJob) (bool, error) {
	res, err := GetDB().ExecContext(ctx, UpdateJobFields,
		j.Priority, j.EstimatedSeconds, j.Reference, j.Notes, j.ID, j.TenantID)
	if err != nil {
		return false, fmt.Errorf("failed to update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update job: %w", err)
	}
	return affected > 0, nil
}

func (o *JobOperations) GetJobByID(ctx context.Context, tenantID, id string) (*PrintJob, error) {
	row := GetDB().QueryRowContext(ctx, GetJobByID, id, tenantID)
	j, err := scanJobRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (o *JobOperations) ListJobs(ctx context.Context, tenantID string, filter JobFilter) ([]*PrintJob, error) {
	conditions := []string{"tenant_id = ?"}
	args := []interface{}{tenantID}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.PrinterID != "" {
		conditions = append(conditions, "printer_id = ?")
		args = append(args, filter.PrinterID)
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, filter.Priority)
	}

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	query := "SELECT " + jobColumns + " FROM print_jobs WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	return ScanJobs(rows)
}

func (o *JobOperations) GetActiveJobForPrinter(ctx context.Context, tenantID, printerID string) (*PrintJob, error) {
	row := GetDB().QueryRowContext(ctx, GetActiveJobForPrinter, tenantID, printerID)
	j, err := scanJobRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get active job for printer: %w", err)
	}
	return j, nil
}

func (o *JobOperations) CountJobsByStatus(ctx context.Context, tenantID string) ([]StatusCount, error) {
	rows, err := GetDB().QueryContext(ctx, CountJobsByStatus, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJobRow(row rowScanner) (*PrintJob, error) {
	j := &PrintJob{}
	var printerID sql.NullString
	var estimated sql.NullInt64
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&j.ID, &j.TenantID, &j.ModelRef,
		&j.BoundXMM, &j.BoundYMM, &j.BoundZMM, &j.MaterialsJSON,
		&j.Priority, &j.Status, &printerID, &estimated,
		&j.Reference, &j.Notes, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if printerID.Valid {
		j.PrinterID = &printerID.String
	}
	if estimated.Valid {
		j.EstimatedSeconds = &estimated.Int64
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return j, nil
}

// ScanJobs reads a full job-column result set. Exported for the core
// package, which runs the scheduling queries against its own handle.
func ScanJobs(rows *sql.Rows) ([]*PrintJob, error) {
	var jobs []*PrintJob
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanPrinters(rows *sql.Rows) ([]*Printer, error) {
	var printers []*Printer
	for rows.Next() {
		p := &Printer{}
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Name, &p.VolumeXMM, &p.VolumeYMM, &p.VolumeZMM,
			&p.MaterialsJSON, &p.Availability, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

type WebhookOperations struct{}

func (o *WebhookOperations) CreateWebhook(ctx context.Context, w *Webhook) error {
	_, err := GetDB().ExecContext(ctx, InsertWebhook,
		w.ID, w.TenantID, w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

func (o *WebhookOperations) GetWebhookByID(ctx context.Context, tenantID, id string) (*Webhook, error) {
	w := &Webhook{}
	var enabled int
	err := GetDB().QueryRowContext(ctx, GetWebhookByID, id, tenantID).Scan(
		&w.ID, &w.TenantID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	w.Enabled = enabled == 1
	return w, nil
}

func (o *WebhookOperations) ListWebhooks(ctx context.Context, tenantID string) ([]*Webhook, error) {
	rows, err := GetDB().QueryContext(ctx, ListWebhooks, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	return scanWebhooks(rows)
}

func (o *WebhookOperations) ListActiveWebhooksForEvent(ctx context.Context, tenantID, event string) ([]*Webhook, error) {
	pattern := "%\"" + event + "\"%"
	rows, err := GetDB().QueryContext(ctx, ListWebhooksForEvent, tenantID, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks for event: %w", err)
	}
	defer rows.Close()

	return scanWebhooks(rows)
}

func (o *WebhookOperations) UpdateWebhook(ctx context.Context, w *Webhook) error {
	_, err := GetDB().ExecContext(ctx, UpdateWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled, w.ID, w.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return nil
}

func (o *WebhookOperations) DeleteWebhook(ctx context.Context, tenantID, id string) error {
	_, err := GetDB().ExecContext(ctx, DeleteWebhook, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

func scanWebhooks(rows *sql.Rows) ([]*Webhook, error) {
	var webhooks []*Webhook
	for rows.Next() {
		w := &Webhook{}
		var enabled int
		if err := rows.Scan(
			&w.ID, &w.TenantID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		w.Enabled = enabled == 1
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

var (
	Tenants  = &TenantOperations{}
	Printers = &PrinterOperations{}
	Models   = &ModelOperations{}
	Jobs     = &JobOperations{}
	Webhooks = &WebhookOperations{}
)
