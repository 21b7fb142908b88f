package core

import (
	"github.com/layerline/layerline/internal/db"
)

// Eligible reports whether a printer can legally take a job: it must be
// active, idle, large enough on every axis (no rotation attempted), and
// support every required material. A job with no material requirements
// matches any material set.
func Eligible(req Requirements, cap Capabilities) bool {
	if !cap.Active {
		return false
	}
	if cap.Availability != AvailabilityIdle {
		return false
	}
	if !req.Bounds.Fits(cap.Volume) {
		return false
	}
	return supportsMaterials(cap.Materials, req.Materials)
}

// IneligibilityReason explains why a printer cannot take a job, for error
// messages and auto-assign summaries. The second return is false when the
// printer is in fact eligible.
func IneligibilityReason(req Requirements, cap Capabilities) (string, bool) {
	switch {
	case !cap.Active:
		return "printer is inactive", true
	case cap.Availability != AvailabilityIdle:
		return "printer is not idle", true
	case !req.Bounds.Fits(cap.Volume):
		return "job exceeds printer working volume", true
	case !supportsMaterials(cap.Materials, req.Materials):
		return "printer does not support required materials", true
	}
	return "", false
}

func supportsMaterials(supported, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]bool, len(supported))
	for _, m := range supported {
		set[m] = true
	}
	for _, m := range required {
		if !set[m] {
			return false
		}
	}
	return true
}

// SelectPrinter picks the eligible printer with the smallest working volume
// that still fits the job, so large-format printers stay free for the jobs
// that need them. Ties break on name, then id, keeping selection stable
// across runs. Printers already claimed earlier in the same batch are skipped.
func SelectPrinter(req Requirements, printers []*db.Printer, claimed map[string]bool) *db.Printer {
	var best *db.Printer
	for _, p := range printers {
		if claimed[p.ID] {
			continue
		}
		if !Eligible(req, PrinterCapabilities(p)) {
			continue
		}
		if best == nil || lessPrinter(p, best) {
			best = p
		}
	}
	return best
}

func lessPrinter(a, b *db.Printer) bool {
	av := a.VolumeXMM * a.VolumeYMM * a.VolumeZMM
	bv := b.VolumeXMM * b.VolumeYMM * b.VolumeZMM
	if av != bv {
		return av < bv
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}
