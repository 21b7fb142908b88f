package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/layerline/layerline/internal/db"
)

func newTestScheduler(t *testing.T) (*Scheduler, string) {
	t.Helper()

	handle, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetDB(handle)
	t.Cleanup(func() {
		handle.Close()
		db.SetDB(nil)
	})

	tenantID := uuid.NewString()
	err = db.Tenants.CreateTenant(context.Background(), &db.Tenant{
		ID:         tenantID,
		Name:       "test shop",
		APIKeyHash: "unused",
	})
	require.NoError(t, err)

	assigner := NewAssigner(handle, 3, time.Millisecond)
	scheduler := NewScheduler(handle, assigner, &StoreCatalog{}, nil, 100)
	return scheduler, tenantID
}

func seedModel(t *testing.T, tenantID, ref string, x, y, z float64, materials []string) {
	t.Helper()
	err := db.Models.CreateModel(context.Background(), &db.ProductModel{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		Ref:           ref,
		Name:          ref,
		BoundXMM:      x,
		BoundYMM:      y,
		BoundZMM:      z,
		MaterialsJSON: EncodeMaterials(materials),
	})
	require.NoError(t, err)
}

func seedPrinter(t *testing.T, tenantID, name string, x, y, z float64, materials []string) *db.Printer {
	t.Helper()
	printer := &db.Printer{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		Name:          name,
		VolumeXMM:     x,
		VolumeYMM:     y,
		VolumeZMM:     z,
		MaterialsJSON: EncodeMaterials(materials),
		Availability:  string(AvailabilityIdle),
		IsActive:      true,
	}
	err := db.Printers.CreatePrinter(context.Background(), printer)
	require.NoError(t, err)
	return printer
}

// setCreatedAt backdates a job. The CURRENT_TIMESTAMP default only has
// one-second resolution, so ordering tests set explicit timestamps.
func setCreatedAt(t *testing.T, jobID string, at time.Time) {
	t.Helper()
	_, err := db.GetDB().Exec("UPDATE print_jobs SET created_at = ? WHERE id = ?", at.UTC(), jobID)
	require.NoError(t, err)
}

func createTestJob(t *testing.T, s *Scheduler, tenantID, modelRef, priority string) *db.PrintJob {
	t.Helper()
	estimate := int64(3600)
	job, err := s.CreateJob(context.Background(), tenantID, CreateJobInput{
		ModelRef:         modelRef,
		Priority:         priority,
		EstimatedSeconds: &estimate,
	})
	require.NoError(t, err)
	return job
}
