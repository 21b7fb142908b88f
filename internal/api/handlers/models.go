package handlers

import (
	"database/sql"
	"encoding/json"
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

type CreateModelRequest struct {
	Ref       string   `json:"ref" binding:"required"`
	Name      string   `json:"name" binding:"required"`
	BoundXMM  float64  `json:"bound_x_mm" binding:"required,gt=0"`
	BoundYMM  float64  `json:"bound_y_mm" binding:"required,gt=0"`
	BoundZMM  float64  `json:"bound_z_mm" binding:"required,gt=0"`
	Materials []string `json:"materials" binding:"required,min=1"`
}

type ModelResponse struct {
	ID        string    `json:"id"`
	Ref       string    `json:"ref"`
	Name      string    `json:"name"`
	BoundXMM  float64   `json:"bound_x_mm"`
	BoundYMM  float64   `json:"bound_y_mm"`
	BoundZMM  float64   `json:"bound_z_mm"`
	Materials []string  `json:"materials"`
	CreatedAt time.Time `json:"created_at"`
}

type ModelHandler struct{}

func NewModelHandler() *ModelHandler {
	return &ModelHandler{}
}

func (h *ModelHandler) CreateModel(c *gin.Context) {
	var req CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := &db.ProductModel{
		ID:            uuid.NewString(),
		TenantID:      middleware.TenantID(c),
		Ref:           req.Ref,
		Name:          req.Name,
		BoundXMM:      req.BoundXMM,
		BoundYMM:      req.BoundYMM,
		BoundZMM:      req.BoundZMM,
		MaterialsJSON: core.EncodeMaterials(req.Materials),
	}

	if err := db.Models.CreateModel(c.Request.Context(), model); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			c.JSON(http.StatusConflict, gin.H{"error": "model ref already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create model"})
		return
	}

	c.JSON(http.StatusCreated, toModelResponse(model))
}

func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := db.Models.ListModels(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list models"})
		return
	}

	responses := make([]ModelResponse, 0, len(models))
	for _, model := range models {
		responses = append(responses, toModelResponse(model))
	}

	c.JSON(http.StatusOK, gin.H{"models": responses})
}

func (h *ModelHandler) GetModel(c *gin.Context) {
	model, err := db.Models.GetModelByRef(c.Request.Context(), middleware.TenantID(c), c.Param("ref"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get model"})
		return
	}

	c.JSON(http.StatusOK, toModelResponse(model))
}

func toModelResponse(m *db.ProductModel) ModelResponse {
	var materials []string
	if err := json.Unmarshal([]byte(m.MaterialsJSON), &materials); err != nil || materials == nil {
		materials = []string{}
	}

	return ModelResponse{
		ID:        m.ID,
		Ref:       m.Ref,
		Name:      m.Name,
		BoundXMM:  m.BoundXMM,
		BoundYMM:  m.BoundYMM,
		BoundZMM:  m.BoundZMM,
		Materials: materials,
		CreatedAt: m.CreatedAt,
	}
}

func (h *ModelHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/models", h.ListModels)
	r.POST("/models", h.CreateModel)
	r.GET("/models/:ref", h.GetModel)
}
