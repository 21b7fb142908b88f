package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/layerline/layerline/internal/api/middleware"
	"github.com/layerline/layerline/internal/core"
	"github.com/layerline/layerline/internal/db"
)

type CreatePrinterRequest struct {
	Name      string   `json:"name" binding:"required"`
	VolumeXMM float64  `json:"volume_x_mm" binding:"required,gt=0"`
	VolumeYMM float64  `json:"volume_y_mm" binding:"required,gt=0"`
	VolumeZMM float64  `json:"volume_z_mm" binding:"required,gt=0"`
	Materials []string `json:"materials" binding:"required,min=1"`
}

type UpdatePrinterRequest struct {
	Name      *string   `json:"name"`
	VolumeXMM *float64  `json:"volume_x_mm"`
	VolumeYMM *float64  `json:"volume_y_mm"`
	VolumeZMM *float64  `json:"volume_z_mm"`
	Materials *[]string `json:"materials"`
	IsActive  *bool     `json:"is_active"`
}

type PrinterResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	VolumeXMM    float64   `json:"volume_x_mm"`
	VolumeYMM    float64   `json:"volume_y_mm"`
	VolumeZMM    float64   `json:"volume_z_mm"`
	Materials    []string  `json:"materials"`
	Availability string    `json:"availability"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PrinterHandler struct{}

func NewPrinterHandler() *PrinterHandler {
	return &PrinterHandler{}
}

func (h *PrinterHandler) CreatePrinter(c *gin.Context) {
	var req CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	printer := &db.Printer{
		ID:            uuid.NewString(),
		TenantID:      middleware.TenantID(c),
		Name:          req.Name,
		VolumeXMM:     req.VolumeXMM,
		VolumeYMM:     req.VolumeYMM,
		VolumeZMM:     req.VolumeZMM,
		MaterialsJSON: core.EncodeMaterials(req.Materials),
		Availability:  string(core.AvailabilityIdle),
		IsActive:      true,
	}

	if err := db.Printers.CreatePrinter(c.Request.Context(), printer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create printer"})
		return
	}

	created, err := db.Printers.GetPrinterByID(c.Request.Context(), printer.TenantID, printer.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load printer"})
		return
	}

	c.JSON(http.StatusCreated, toPrinterResponse(created))
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers, err := db.Printers.ListPrinters(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list printers"})
		return
	}

	responses := make([]PrinterResponse, 0, len(printers))
	for _, printer := range printers {
		responses = append(responses, toPrinterResponse(printer))
	}

	c.JSON(http.StatusOK, gin.H{"printers": responses})
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	printer, err := db.Printers.GetPrinterByID(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}

	c.JSON(http.StatusOK, toPrinterResponse(printer))
}

func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	var req UpdatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := middleware.TenantID(c)
	printer, err := db.Printers.GetPrinterByID(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}

	if req.Name != nil {
		printer.Name = *req.Name
	}
	if req.VolumeXMM != nil {
		printer.VolumeXMM = *req.VolumeXMM
	}
	if req.VolumeYMM != nil {
		printer.VolumeYMM = *req.VolumeYMM
	}
	if req.VolumeZMM != nil {
		printer.VolumeZMM = *req.VolumeZMM
	}
	if req.Materials != nil {
		printer.MaterialsJSON = core.EncodeMaterials(*req.Materials)
	}
	if req.IsActive != nil {
		printer.IsActive = *req.IsActive
	}

	if printer.VolumeXMM <= 0 || printer.VolumeYMM <= 0 || printer.VolumeZMM <= 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "working volume must be positive on all axes"})
		return
	}

	if err := db.Printers.UpdatePrinter(c.Request.Context(), printer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update printer"})
		return
	}

	updated, err := db.Printers.GetPrinterByID(c.Request.Context(), tenantID, printer.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load printer"})
		return
	}

	c.JSON(http.StatusOK, toPrinterResponse(updated))
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	printer, err := db.Printers.GetPrinterByID(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}

	// A printer holding a reservation or a live print cannot be removed out
	// from under its job.
	switch core.Availability(printer.Availability) {
	case core.AvailabilityReserved, core.AvailabilityPrinting:
		c.JSON(http.StatusBadRequest, gin.H{"error": "printer has an active job"})
		return
	}

	if err := db.Printers.DeletePrinter(c.Request.Context(), tenantID, printer.ID); err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "printer is referenced by existing jobs"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete printer"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ResetPrinter returns a faulted printer to the idle pool once an operator
// has cleared the hardware fault.
func (h *PrinterHandler) ResetPrinter(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	id := c.Param("id")

	ok, err := db.Printers.TransitionAvailability(c.Request.Context(), tenantID, id,
		string(core.AvailabilityError), string(core.AvailabilityIdle))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset printer"})
		return
	}
	if !ok {
		if _, getErr := db.Printers.GetPrinterByID(c.Request.Context(), tenantID, id); errors.Is(getErr, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "printer is not in an error state"})
		return
	}

	printer, err := db.Printers.GetPrinterByID(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load printer"})
		return
	}

	c.JSON(http.StatusOK, toPrinterResponse(printer))
}

func toPrinterResponse(p *db.Printer) PrinterResponse {
	caps := core.PrinterCapabilities(p)
	materials := caps.Materials
	if materials == nil {
		materials = []string{}
	}

	return PrinterResponse{
		ID:           p.ID,
		Name:         p.Name,
		VolumeXMM:    p.VolumeXMM,
		VolumeYMM:    p.VolumeYMM,
		VolumeZMM:    p.VolumeZMM,
		Materials:    materials,
		Availability: p.Availability,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (h *PrinterHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/printers", h.ListPrinters)
	r.POST("/printers", h.CreatePrinter)
	r.GET("/printers/:id", h.GetPrinter)
	r.PATCH("/printers/:id", h.UpdatePrinter)
	r.DELETE("/printers/:id", h.DeletePrinter)
	r.POST("/printers/:id/reset", h.ResetPrinter)
}
