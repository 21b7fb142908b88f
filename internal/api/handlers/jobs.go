package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layerline/layerline/internal/api/middleware"
	"github.com/layerline/layerline/internal/core"
	"github.com/layerline/layerline/internal/db"
)

type CreateJobRequest struct {
	ModelRef         string `json:"model_ref" binding:"required"`
	Priority         string `json:"priority"`
	EstimatedSeconds *int64 `json:"estimated_seconds"`
	Reference        string `json:"reference"`
	Notes            string `json:"notes"`
}

type UpdateJobRequest struct {
	Priority         *string `json:"priority"`
	EstimatedSeconds *int64  `json:"estimated_seconds"`
	Reference        *string `json:"reference"`
	Notes            *string `json:"notes"`
}

type AssignJobRequest struct {
	PrinterID string `json:"printer_id" binding:"required"`
}

type FailJobRequest struct {
	Message string `json:"message" binding:"required"`
}

type JobResponse struct {
	ID               string     `json:"id"`
	ModelRef         string     `json:"model_ref"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	PrinterID        *string    `json:"printer_id,omitempty"`
	BoundXMM         float64    `json:"bound_x_mm"`
	BoundYMM         float64    `json:"bound_y_mm"`
	BoundZMM         float64    `json:"bound_z_mm"`
	Materials        []string   `json:"materials"`
	EstimatedSeconds *int64     `json:"estimated_seconds,omitempty"`
	Reference        string     `json:"reference,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type ListJobsQuery struct {
	Status    string `form:"status"`
	PrinterID string `form:"printer_id"`
	Priority  string `form:"priority"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

type JobHandler struct {
	scheduler *core.Scheduler
}

func NewJobHandler(scheduler *core.Scheduler) *JobHandler {
	return &JobHandler{scheduler: scheduler}
}

// respondSchedulerError translates the facade's error kinds into HTTP status
// codes. Anything unrecognized is a server-side failure.
func respondSchedulerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrPreconditionFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.scheduler.CreateJob(c.Request.Context(), middleware.TenantID(c), core.CreateJobInput{
		ModelRef:         req.ModelRef,
		Priority:         req.Priority,
		EstimatedSeconds: req.EstimatedSeconds,
		Reference:        req.Reference,
		Notes:            req.Notes,
	})
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toJobResponse(job))
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var query ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 50
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	jobs, err := h.scheduler.ListJobs(c.Request.Context(), middleware.TenantID(c), db.JobFilter{
		Status:    query.Status,
		PrinterID: query.PrinterID,
		Priority:  query.Priority,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toJobResponse(job))
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   responses,
		"limit":  query.Limit,
		"offset": query.Offset,
		"count":  len(responses),
	})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.scheduler.GetJob(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.scheduler.UpdateJob(c.Request.Context(), middleware.TenantID(c), c.Param("id"), core.UpdateJobInput{
		Priority:         req.Priority,
		EstimatedSeconds: req.EstimatedSeconds,
		Reference:        req.Reference,
		Notes:            req.Notes,
	})
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.scheduler.DeleteJob(c.Request.Context(), middleware.TenantID(c), c.Param("id")); err != nil {
		// Delete treats a missing job the same as a non-terminal one.
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondSchedulerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) AssignJob(c *gin.Context) {
	var req AssignJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.scheduler.AssignManual(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.PrinterID)
	if err != nil {
		respondSchedulerError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) AutoAssign(c *gin.Context) {
	summary, err := h.scheduler.AutoAssign(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *JobHandler) StartJob(c *gin.Context) {
	job, err := h.scheduler.StartJob(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) CompleteJob(c *gin.Context) {
	job, err := h.scheduler.CompleteJob(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) FailJob(c *gin.Context) {
	var req FailJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.scheduler.FailJob(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.Message)
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	job, err := h.scheduler.CancelJob(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) GetOverview(c *gin.Context) {
	overview, err := h.scheduler.Overview(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondSchedulerError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func toJobResponse(job *db.PrintJob) JobResponse {
	req := core.JobRequirements(job)
	materials := req.Materials
	if materials == nil {
		materials = []string{}
	}

	return JobResponse{
		ID:               job.ID,
		ModelRef:         job.ModelRef,
		Status:           job.Status,
		Priority:         job.Priority,
		PrinterID:        job.PrinterID,
		BoundXMM:         job.BoundXMM,
		BoundYMM:         job.BoundYMM,
		BoundZMM:         job.BoundZMM,
		Materials:        materials,
		EstimatedSeconds: job.EstimatedSeconds,
		Reference:        job.Reference,
		Notes:            job.Notes,
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
	}
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs/overview", h.GetOverview)
	r.POST("/jobs/auto-assign", h.AutoAssign)
	r.GET("/jobs/:id", h.GetJob)
	r.PATCH("/jobs/:id", h.UpdateJob)
	r.DELETE("/jobs/:id", h.DeleteJob)
	r.PATCH("/jobs/:id/assign", h.AssignJob)
	r.POST("/jobs/:id/start", h.StartJob)
	r.POST("/jobs/:id/complete", h.CompleteJob)
	r.POST("/jobs/:id/fail", h.FailJob)
	r.POST("/jobs/:id/cancel", h.CancelJob)
}
