package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/services"
)

type CharacteristicHandler struct {
	log     *logger.Logger
	service services.CharacteristicService
}

func NewCharacteristicHandler(log *logger.Logger, svc services.CharacteristicService) *CharacteristicHandler {
	return &CharacteristicHandler{
		log:     log.With("handler", "CharacteristicHandler"),
		service: svc,
	}
}

// POST /api/characteristics
func (h *CharacteristicHandler) Create(c *gin.Context) {
	var in services.CharacteristicInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondCreated(c, created)
}

// GET /api/characteristics/:id
func (h *CharacteristicHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	char, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, char)
}

// PATCH /api/characteristics/:id
func (h *CharacteristicHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in services.CharacteristicUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	updated, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, updated)
}

// GET /api/characteristics?node_id=...
func (h *CharacteristicHandler) List(c *gin.Context) {
	var nodeID *uuid.UUID
	if raw := c.Query("node_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_node_id", err)
			return
		}
		nodeID = &parsed
	}
	out, err := h.service.List(c.Request.Context(), nodeID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"characteristics": out})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}
