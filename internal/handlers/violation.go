package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/services"
)

type ViolationHandler struct {
	log     *logger.Logger
	service services.ViolationService
}

func NewViolationHandler(log *logger.Logger, svc services.ViolationService) *ViolationHandler {
	return &ViolationHandler{
		log:     log.With("handler", "ViolationHandler"),
		service: svc,
	}
}

type batchAckRequest struct {
	ViolationIDs []uuid.UUID `json:"violation_ids"`
	services.AckInput
}

// GET /api/violations
func (h *ViolationHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}
	out, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"violations": out, "total": total})
}

// GET /api/violations/stats
func (h *ViolationHandler) Stats(c *gin.Context) {
	var characteristicID *uuid.UUID
	if raw := c.Query("characteristic_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_characteristic_id", err)
			return
		}
		characteristicID = &parsed
	}
	stats, err := h.service.Stats(c.Request.Context(), characteristicID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, stats)
}

// POST /api/violations/:id/acknowledge
func (h *ViolationHandler) Acknowledge(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in services.AckInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	v, err := h.service.Acknowledge(c.Request.Context(), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, v)
}

// POST /api/violations/acknowledge
func (h *ViolationHandler) BatchAcknowledge(c *gin.Context) {
	var req batchAckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.service.BatchAcknowledge(c.Request.Context(), req.ViolationIDs, req.AckInput)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *ViolationHandler) parseFilter(c *gin.Context) (repos.ViolationFilter, bool) {
	var f repos.ViolationFilter
	if raw := c.Query("characteristic_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_characteristic_id", err)
			return f, false
		}
		f.CharacteristicID = &parsed
	}
	if raw := c.Query("rule"); raw != "" {
		rule, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_rule", err)
			return f, false
		}
		f.Rule = &rule
	}
	f.Severity = c.Query("severity")
	if raw := c.Query("acknowledged"); raw != "" {
		acked, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_acknowledged", err)
			return f, false
		}
		f.Acknowledged = &acked
	}
	if raw := c.Query("include_retired"); raw != "" {
		inc, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_include_retired", err)
			return f, false
		}
		f.IncludeRetired = inc
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return f, true
}
