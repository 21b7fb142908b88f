package db

import (
	"time"
)

type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type Printer struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	VolumeXMM    float64   `json:"volume_x_mm"`
	VolumeYMM    float64   `json:"volume_y_mm"`
	VolumeZMM    float64   `json:"volume_z_mm"`
	MaterialsJSON string   `json:"materials_json"`
	Availability string    `json:"availability"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ProductModel struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Ref           string    `json:"ref"`
	Name          string    `json:"name"`
	BoundXMM      float64   `json:"bound_x_mm"`
	BoundYMM      float64   `json:"bound_y_mm"`
	BoundZMM      float64   `json:"bound_z_mm"`
	MaterialsJSON string    `json:"materials_json"`
	CreatedAt     time.Time `json:"created_at"`
}

type PrintJob struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	ModelRef         string     `json:"model_ref"`
	BoundXMM         float64    `json:"bound_x_mm"`
	BoundYMM         float64    `json:"bound_y_mm"`
	BoundZMM         float64    `json:"bound_z_mm"`
	MaterialsJSON    string     `json:"materials_json"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	PrinterID        *string    `json:"printer_id"`
	EstimatedSeconds *int64     `json:"estimated_seconds"`
	Reference        string     `json:"reference"`
	Notes            string     `json:"notes"`
	ErrorMessage     string     `json:"error_message"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}

type Webhook struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Secret     string    `json:"secret,omitempty"`
	EventsJSON string    `json:"events_json"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

type JobFilter struct {
	Status    string
	PrinterID string
	Priority  string
	Limit     int
	Offset    int
}

type StatusCount struct {
	Status string
	Count  int
}
