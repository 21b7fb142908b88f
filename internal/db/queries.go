package db

// priorityRank orders jobs urgent < high < normal < low; anything unknown
// sorts last.
const priorityRank = `CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 WHEN 'low' THEN 3 ELSE 4 END`

const jobColumns = `id, tenant_id, model_ref, bound_x_mm, bound_y_mm, bound_z_mm, materials_json, priority, status, printer_id, estimated_seconds, reference, notes, error_message, created_at, updated_at, started_at, completed_at`

const (
	InsertTenant = `
		INSERT INTO tenants (id, name, api_key_hash)
		VALUES (?, ?, ?)
	`

	GetTenantByID = `
		SELECT id, name, api_key_hash, created_at
		FROM tenants WHERE id = ?
	`
)

const printerColumns = `id, tenant_id, name, volume_x_mm, volume_y_mm, volume_z_mm, materials_json, availability, is_active, created_at, updated_at`

const (
	InsertPrinter = `
		INSERT INTO printers (id, tenant_id, name, volume_x_mm, volume_y_mm, volume_z_mm, materials_json, availability, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetPrinterByID = `
		SELECT ` + printerColumns + `
		FROM printers WHERE id = ? AND tenant_id = ?
	`

	ListPrinters = `
		SELECT ` + printerColumns + `
		FROM printers WHERE tenant_id = ? ORDER BY name ASC, id ASC
	`

	ListIdlePrinters = `
		SELECT ` + printerColumns + `
		FROM printers
		WHERE tenant_id = ? AND availability = 'idle' AND is_active = 1
		ORDER BY volume_x_mm * volume_y_mm * volume_z_mm ASC, name ASC, id ASC
	`

	UpdatePrinter = `
		UPDATE printers SET
			name = ?, volume_x_mm = ?, volume_y_mm = ?, volume_z_mm = ?,
			materials_json = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ?
	`

	DeletePrinter = `DELETE FROM printers WHERE id = ? AND tenant_id = ?`

	// Guarded availability moves: rows affected tells the caller whether
	// the compare-and-set won.
	ReservePrinter = `
		UPDATE printers SET availability = 'reserved', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND availability = 'idle' AND is_active = 1
	`

	TransitionPrinterAvailability = `
		UPDATE printers SET availability = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND availability = ?
	`

	MarkPrinterError = `
		UPDATE printers SET availability = 'error', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND availability IN ('reserved', 'printing')
	`
)

const (
	InsertModel = `
		INSERT INTO product_models (id, tenant_id, ref, name, bound_x_mm, bound_y_mm, bound_z_mm, materials_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetModelByRef = `
		SELECT id, tenant_id, ref, name, bound_x_mm, bound_y_mm, bound_z_mm, materials_json, created_at
		FROM product_models WHERE tenant_id = ? AND ref = ?
	`

	ListModels = `
		SELECT id, tenant_id, ref, name, bound_x_mm, bound_y_mm, bound_z_mm, materials_json, created_at
		FROM product_models WHERE tenant_id = ? ORDER BY ref ASC
	`
)

const (
	InsertJob = `
		INSERT INTO print_jobs (id, tenant_id, model_ref, bound_x_mm, bound_y_mm, bound_z_mm, materials_json, priority, status, estimated_seconds, reference, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?)
	`

	GetJobByID = `
		SELECT ` + jobColumns + `
		FROM print_jobs WHERE id = ? AND tenant_id = ?
	`

	// Scheduling order: priority rank, then FIFO on creation time, with id as
	// the final tie-break so re-evaluation is byte-stable.
	ListPendingJobs = `
		SELECT ` + jobColumns + `
		FROM print_jobs
		WHERE tenant_id = ? AND status = 'pending'
		ORDER BY ` + priorityRank + ` ASC, created_at ASC, id ASC
		LIMIT ?
	`

	UpdateJobFields = `
		UPDATE print_jobs SET
			priority = ?, estimated_seconds = ?, reference = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND status NOT IN ('completed', 'failed', 'cancelled')
	`

	// Lifecycle moves are guarded on the current status so a lost race shows
	// up as zero rows affected instead of a silent overwrite.
	MarkJobQueued = `
		UPDATE print_jobs SET status = 'queued', printer_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND status = 'pending'
	`

	MarkJobPrinting = `
		UPDATE print_jobs SET status = 'printing', started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND status = 'queued'
	`

	MarkJobCompleted = `
		UPDATE print_jobs SET status = 'completed', completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND status = 'printing'
	`

	MarkJobFailed = `
		UPDATE print_jobs SET status = 'failed', error_message = ?, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND status IN ('queued', 'printing')
	`

	MarkJobCancelled = `
		UPDATE print_jobs SET status = 'cancelled', completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND status IN ('pending', 'queued')
	`

	DeleteTerminalJob = `
		DELETE FROM print_jobs
		WHERE id = ? AND tenant_id = ? AND status IN ('completed', 'failed', 'cancelled')
	`

	CountJobsByStatus = `
		SELECT status, COUNT(*) FROM print_jobs WHERE tenant_id = ? GROUP BY status
	`

	GetActiveJobForPrinter = `
		SELECT ` + jobColumns + `
		FROM print_jobs
		WHERE tenant_id = ? AND printer_id = ? AND status IN ('queued', 'printing')
		LIMIT 1
	`
)

const (
	InsertWebhook = `
		INSERT INTO webhooks (id, tenant_id, name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	GetWebhookByID = `
		SELECT id, tenant_id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE id = ? AND tenant_id = ?
	`

	ListWebhooks = `
		SELECT id, tenant_id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE tenant_id = ? ORDER BY name ASC
	`

	ListWebhooksForEvent = `
		SELECT id, tenant_id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE tenant_id = ? AND enabled = 1 AND events_json LIKE ?
	`

	UpdateWebhook = `
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ?
		WHERE id = ? AND tenant_id = ?
	`

	DeleteWebhook = `DELETE FROM webhooks WHERE id = ? AND tenant_id = ?`
)
