package core

import (
	"context"
	"sort"

	"github.com/layerline/layerline/internal/db"
)

// PendingQueue returns the tenant's pending jobs in scheduling order:
// priority rank ascending, then creation time ascending, then id. The order
// is fully determined by the snapshot, so two reads of the same state agree
// byte for byte.
func PendingQueue(ctx context.Context, tenantID string, limit int) ([]*db.PrintJob, error) {
	return db.Jobs.ListPendingJobs(ctx, tenantID, limit)
}

// OrderQueue sorts jobs in place using the same ordering as PendingQueue.
func OrderQueue(jobs []*db.PrintJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		ar, br := Priority(a.Priority).Rank(), Priority(b.Priority).Rank()
		if ar != br {
			return ar < br
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
