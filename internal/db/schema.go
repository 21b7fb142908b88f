package db

func schemaMigrations() []Migration {
	return []Migration{
		{
			Version: "001_tenants",
			SQL: `
				CREATE TABLE tenants (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					api_key_hash TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			Version: "002_printers",
			SQL: `
				CREATE TABLE printers (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL REFERENCES tenants(id),
					name TEXT NOT NULL,
					volume_x_mm REAL NOT NULL,
					volume_y_mm REAL NOT NULL,
					volume_z_mm REAL NOT NULL,
					materials_json TEXT NOT NULL DEFAULT '[]',
					availability TEXT NOT NULL DEFAULT 'idle',
					is_active INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
				CREATE INDEX idx_printers_tenant ON printers(tenant_id);
				CREATE INDEX idx_printers_availability ON printers(tenant_id, availability);
			`,
		},
		{
			Version: "003_product_models",
			SQL: `
				CREATE TABLE product_models (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL REFERENCES tenants(id),
					ref TEXT NOT NULL,
					name TEXT NOT NULL,
					bound_x_mm REAL NOT NULL,
					bound_y_mm REAL NOT NULL,
					bound_z_mm REAL NOT NULL,
					materials_json TEXT NOT NULL DEFAULT '[]',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(tenant_id, ref)
				);
			`,
		},
		{
			Version: "004_print_jobs",
			SQL: `
				CREATE TABLE print_jobs (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL REFERENCES tenants(id),
					model_ref TEXT NOT NULL,
					bound_x_mm REAL NOT NULL,
					bound_y_mm REAL NOT NULL,
					bound_z_mm REAL NOT NULL,
					materials_json TEXT NOT NULL DEFAULT '[]',
					priority TEXT NOT NULL DEFAULT 'normal',
					status TEXT NOT NULL DEFAULT 'pending',
					printer_id TEXT REFERENCES printers(id),
					estimated_seconds INTEGER,
					reference TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					error_message TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					started_at DATETIME,
					completed_at DATETIME
				);
				CREATE INDEX idx_jobs_tenant_status ON print_jobs(tenant_id, status);
				CREATE INDEX idx_jobs_printer ON print_jobs(printer_id, status);
			`,
		},
		{
			Version: "005_webhooks",
			SQL: `
				CREATE TABLE webhooks (
					id TEXT PRIMARY KEY,
					tenant_id TEXT NOT NULL REFERENCES tenants(id),
					name TEXT NOT NULL,
					url TEXT NOT NULL,
					secret TEXT NOT NULL DEFAULT '',
					events_json TEXT NOT NULL DEFAULT '[]',
					enabled INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				);
				CREATE INDEX idx_webhooks_tenant ON webhooks(tenant_id);
			`,
		},
	}
}
