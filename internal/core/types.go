package core

import (
	"encoding/json"

	"github.com/layerline/layerline/internal/db"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusPrinting  JobStatus = "printing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

var terminalStatuses = map[JobStatus]bool{
	JobStatusCompleted: true,
	JobStatusFailed:    true,
	JobStatusCancelled: true,
}

func IsTerminal(status JobStatus) bool {
	return terminalStatuses[status]
}

// allowedTransitions is the job lifecycle DAG. Every mutation goes through a
// guarded UPDATE that re-checks the current status, so this table is the
// single place the legal moves are written down.
var allowedTransitions = map[JobStatus]map[JobStatus]bool{
	JobStatusPending: {
		JobStatusQueued:    true,
		JobStatusCancelled: true,
	},
	JobStatusQueued: {
		JobStatusPrinting:  true,
		JobStatusFailed:    true,
		JobStatusCancelled: true,
	},
	JobStatusPrinting: {
		JobStatusCompleted: true,
		JobStatusFailed:    true,
	},
}

func CanTransition(from, to JobStatus) bool {
	if terminalStatuses[from] {
		return false
	}
	return allowedTransitions[from][to]
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var priorityRanks = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityNormal: 2,
	PriorityLow:    3,
}

func (p Priority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// Rank orders priorities for scheduling; lower runs first. Unknown values
// sort last, matching the SQL read model.
func (p Priority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return len(priorityRanks)
}

type Availability string

const (
	AvailabilityIdle     Availability = "idle"
	AvailabilityReserved Availability = "reserved"
	AvailabilityPrinting Availability = "printing"
	AvailabilityError    Availability = "error"
	AvailabilityDisabled Availability = "disabled"
)

type Volume struct {
	X float64
	Y float64
	Z float64
}

func (v Volume) Fits(within Volume) bool {
	return v.X <= within.X && v.Y <= within.Y && v.Z <= within.Z
}

// Requirements is a job's resolved geometry and material needs, snapshotted
// onto the job record at creation time.
type Requirements struct {
	Bounds    Volume
	Materials []string
}

type Capabilities struct {
	Volume       Volume
	Materials    []string
	Active       bool
	Availability Availability
}

func JobRequirements(j *db.PrintJob) Requirements {
	return Requirements{
		Bounds:    Volume{X: j.BoundXMM, Y: j.BoundYMM, Z: j.BoundZMM},
		Materials: decodeMaterials(j.MaterialsJSON),
	}
}

func PrinterCapabilities(p *db.Printer) Capabilities {
	return Capabilities{
		Volume:       Volume{X: p.VolumeXMM, Y: p.VolumeYMM, Z: p.VolumeZMM},
		Materials:    decodeMaterials(p.MaterialsJSON),
		Active:       p.IsActive,
		Availability: Availability(p.Availability),
	}
}

func decodeMaterials(raw string) []string {
	if raw == "" {
		return nil
	}
	var materials []string
	if err := json.Unmarshal([]byte(raw), &materials); err != nil {
		return nil
	}
	return materials
}

func EncodeMaterials(materials []string) string {
	if materials == nil {
		materials = []string{}
	}
	data, _ := json.Marshal(materials)
	return string(data)
}
