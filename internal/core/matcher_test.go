package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/layerline/layerline/internal/db"
)

func testReq(x, y, z float64, materials ...string) Requirements {
	return Requirements{
		Bounds:    Volume{X: x, Y: y, Z: z},
		Materials: materials,
	}
}

func testCap(x, y, z float64, materials ...string) Capabilities {
	return Capabilities{
		Volume:       Volume{X: x, Y: y, Z: z},
		Materials:    materials,
		Active:       true,
		Availability: AvailabilityIdle,
	}
}

func TestEligible(t *testing.T) {
	req := testReq(100, 100, 100, "PLA")

	assert.True(t, Eligible(req, testCap(200, 200, 200, "PLA", "PETG")))
	assert.True(t, Eligible(req, testCap(100, 100, 100, "PLA")))
}

func TestEligibleRejectsInactive(t *testing.T) {
	cap := testCap(200, 200, 200, "PLA")
	cap.Active = false

	reason, bad := IneligibilityReason(testReq(100, 100, 100, "PLA"), cap)
	assert.True(t, bad)
	assert.Equal(t, "printer is inactive", reason)
}

func TestEligibleRejectsBusyPrinter(t *testing.T) {
	for _, availability := range []Availability{
		AvailabilityReserved, AvailabilityPrinting, AvailabilityError, AvailabilityDisabled,
	} {
		cap := testCap(200, 200, 200, "PLA")
		cap.Availability = availability

		reason, bad := IneligibilityReason(testReq(100, 100, 100, "PLA"), cap)
		assert.True(t, bad, "availability %s", availability)
		assert.Equal(t, "printer is not idle", reason)
	}
}

func TestEligibleChecksEveryAxis(t *testing.T) {
	cap := testCap(100, 100, 100, "PLA")

	// No rotation: a part that would fit sideways still fails.
	for _, req := range []Requirements{
		testReq(101, 50, 50, "PLA"),
		testReq(50, 101, 50, "PLA"),
		testReq(50, 50, 101, "PLA"),
	} {
		reason, bad := IneligibilityReason(req, cap)
		assert.True(t, bad)
		assert.Equal(t, "job exceeds printer working volume", reason)
	}
}

func TestEligibleRequiresAllMaterials(t *testing.T) {
	cap := testCap(200, 200, 200, "PLA", "PETG")

	assert.True(t, Eligible(testReq(10, 10, 10, "PLA", "PETG"), cap))

	reason, bad := IneligibilityReason(testReq(10, 10, 10, "PLA", "TPU"), cap)
	assert.True(t, bad)
	assert.Equal(t, "printer does not support required materials", reason)
}

func TestSelectPrinterPrefersSmallestFit(t *testing.T) {
	small := &db.Printer{ID: "a", Name: "small", VolumeXMM: 120, VolumeYMM: 120, VolumeZMM: 120,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}
	large := &db.Printer{ID: "b", Name: "large", VolumeXMM: 300, VolumeYMM: 300, VolumeZMM: 300,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}
	tiny := &db.Printer{ID: "c", Name: "tiny", VolumeXMM: 80, VolumeYMM: 80, VolumeZMM: 80,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}

	printers := []*db.Printer{large, small, tiny}

	// 100mm part skips the 80mm printer and lands on the smallest that fits.
	selected := SelectPrinter(testReq(100, 100, 100, "PLA"), printers, nil)
	assert.Equal(t, small.ID, selected.ID)

	selected = SelectPrinter(testReq(50, 50, 50, "PLA"), printers, nil)
	assert.Equal(t, tiny.ID, selected.ID)
}

func TestSelectPrinterSkipsClaimed(t *testing.T) {
	first := &db.Printer{ID: "a", Name: "one", VolumeXMM: 100, VolumeYMM: 100, VolumeZMM: 100,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}
	second := &db.Printer{ID: "b", Name: "two", VolumeXMM: 100, VolumeYMM: 100, VolumeZMM: 100,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}

	printers := []*db.Printer{first, second}
	claimed := map[string]bool{"a": true}

	selected := SelectPrinter(testReq(50, 50, 50, "PLA"), printers, claimed)
	assert.Equal(t, second.ID, selected.ID)
}

func TestSelectPrinterNoneFit(t *testing.T) {
	printer := &db.Printer{ID: "a", Name: "small", VolumeXMM: 80, VolumeYMM: 80, VolumeZMM: 80,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}

	selected := SelectPrinter(testReq(100, 100, 100, "PLA"), []*db.Printer{printer}, nil)
	assert.Nil(t, selected)
}

func TestSelectPrinterTieBreaksOnName(t *testing.T) {
	beta := &db.Printer{ID: "b", Name: "beta", VolumeXMM: 100, VolumeYMM: 100, VolumeZMM: 100,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}
	alpha := &db.Printer{ID: "a", Name: "alpha", VolumeXMM: 100, VolumeYMM: 100, VolumeZMM: 100,
		MaterialsJSON: EncodeMaterials([]string{"PLA"}), Availability: "idle", IsActive: true}

	selected := SelectPrinter(testReq(50, 50, 50, "PLA"), []*db.Printer{beta, alpha}, nil)
	assert.Equal(t, "alpha", selected.Name)
}
