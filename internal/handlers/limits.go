package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/services"
)

type LimitsHandler struct {
	log      *logger.Logger
	service  services.LimitsService
	detector services.DetectorService
}

func NewLimitsHandler(log *logger.Logger, svc services.LimitsService, detector services.DetectorService) *LimitsHandler {
	return &LimitsHandler{
		log:      log.With("handler", "LimitsHandler"),
		service:  svc,
		detector: detector,
	}
}

type setLimitsRequest struct {
	CenterLine float64 `json:"center_line"`
	UCL        float64 `json:"ucl"`
	LCL        float64 `json:"lcl"`
	Sigma      float64 `json:"sigma"`
}

// GET /api/characteristics/:id/limits
func (h *LimitsHandler) Get(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lim, err := h.service.Get(c.Request.Context(), characteristicID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if lim == nil {
		RespondOK(c, gin.H{"limits": nil})
		return
	}
	RespondOK(c, gin.H{"limits": lim})
}

// PUT /api/characteristics/:id/limits
func (h *LimitsHandler) Set(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req setLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	lim, err := h.service.Set(c.Request.Context(), characteristicID, req.CenterLine, req.UCL, req.LCL, req.Sigma)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"limits": lim})
}

// POST /api/characteristics/:id/limits/recalculate
//
// Recalculation installs the new band and then re-runs detection against the
// latest window so the returned state is already consistent with it.
func (h *LimitsHandler) Recalculate(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lim, err := h.service.Recalculate(c.Request.Context(), characteristicID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	violations, err := h.detector.EvaluateLatest(c.Request.Context(), nil, characteristicID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"limits": lim, "new_violations": violations})
}
