package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/services"
)

type SampleHandler struct {
	log     *logger.Logger
	service services.SampleService
}

func NewSampleHandler(log *logger.Logger, svc services.SampleService) *SampleHandler {
	return &SampleHandler{
		log:     log.With("handler", "SampleHandler"),
		service: svc,
	}
}

type submitSampleRequest struct {
	Measurements []float64  `json:"measurements"`
	TakenAt      *time.Time `json:"taken_at,omitempty"`
}

type editSampleRequest struct {
	Measurements []float64 `json:"measurements"`
	Reason       string    `json:"reason"`
	Editor       string    `json:"editor"`
}

type excludeSampleRequest struct {
	Excluded bool   `json:"excluded"`
	Reason   string `json:"reason,omitempty"`
	Editor   string `json:"editor,omitempty"`
}

// POST /api/characteristics/:id/samples
func (h *SampleHandler) Submit(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req submitSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.service.Submit(c.Request.Context(), characteristicID, req.Measurements, req.TakenAt)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, result)
}

// GET /api/samples/:id
func (h *SampleHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sample, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, sample)
}

// PUT /api/samples/:id
func (h *SampleHandler) Edit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req editSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	sample, err := h.service.Edit(c.Request.Context(), id, req.Measurements, req.Reason, req.Editor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, sample)
}

// POST /api/samples/:id/exclude
func (h *SampleHandler) Exclude(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req excludeSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	sample, err := h.service.Exclude(c.Request.Context(), id, req.Excluded, req.Reason, req.Editor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, sample)
}

// GET /api/samples/:id/history
func (h *SampleHandler) History(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	edits, err := h.service.EditHistory(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"edits": edits})
}
