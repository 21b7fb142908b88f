package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to JobStatus }{
		{JobStatusPending, JobStatusQueued},
		{JobStatusPending, JobStatusCancelled},
		{JobStatusQueued, JobStatusPrinting},
		{JobStatusQueued, JobStatusFailed},
		{JobStatusQueued, JobStatusCancelled},
		{JobStatusPrinting, JobStatusCompleted},
		{JobStatusPrinting, JobStatusFailed},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to JobStatus }{
		{JobStatusPending, JobStatusPrinting},
		{JobStatusPending, JobStatusCompleted},
		{JobStatusPending, JobStatusFailed},
		{JobStatusQueued, JobStatusCompleted},
		{JobStatusPrinting, JobStatusCancelled},
		{JobStatusPrinting, JobStatusQueued},
		{JobStatusCompleted, JobStatusPending},
		{JobStatusFailed, JobStatusQueued},
		{JobStatusCancelled, JobStatusQueued},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(JobStatusCompleted))
	assert.True(t, IsTerminal(JobStatusFailed))
	assert.True(t, IsTerminal(JobStatusCancelled))
	assert.False(t, IsTerminal(JobStatusPending))
	assert.False(t, IsTerminal(JobStatusQueued))
	assert.False(t, IsTerminal(JobStatusPrinting))
}

func TestPriorityRanking(t *testing.T) {
	assert.Less(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Less(t, PriorityNormal.Rank(), PriorityLow.Rank())

	// Unknown priorities sort last rather than panicking.
	assert.Greater(t, Priority("whenever").Rank(), PriorityLow.Rank())
	assert.False(t, Priority("whenever").Valid())
	assert.True(t, PriorityUrgent.Valid())
}

func TestVolumeFits(t *testing.T) {
	within := Volume{X: 100, Y: 100, Z: 100}

	assert.True(t, Volume{X: 100, Y: 100, Z: 100}.Fits(within))
	assert.True(t, Volume{X: 1, Y: 1, Z: 1}.Fits(within))
	assert.False(t, Volume{X: 101, Y: 1, Z: 1}.Fits(within))
	assert.False(t, Volume{X: 1, Y: 101, Z: 1}.Fits(within))
	assert.False(t, Volume{X: 1, Y: 1, Z: 101}.Fits(within))
}

func TestMaterialsRoundTrip(t *testing.T) {
	encoded := EncodeMaterials([]string{"PLA", "PETG"})
	assert.Equal(t, []string{"PLA", "PETG"}, decodeMaterials(encoded))

	assert.Equal(t, "[]", EncodeMaterials(nil))
	assert.Nil(t, decodeMaterials(""))
	assert.Nil(t, decodeMaterials("not json"))
}
