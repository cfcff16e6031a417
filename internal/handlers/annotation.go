package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/services"
)

type AnnotationHandler struct {
	log     *logger.Logger
	service services.AnnotationService
}

func NewAnnotationHandler(log *logger.Logger, svc services.AnnotationService) *AnnotationHandler {
	return &AnnotationHandler{
		log:     log.With("handler", "AnnotationHandler"),
		service: svc,
	}
}

// POST /api/characteristics/:id/annotations
func (h *AnnotationHandler) Create(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in services.AnnotationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), characteristicID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, created)
}

// GET /api/characteristics/:id/annotations
func (h *AnnotationHandler) List(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.service.List(c.Request.Context(), characteristicID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"annotations": out})
}
