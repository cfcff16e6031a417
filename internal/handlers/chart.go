package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/services"
)

type ChartHandler struct {
	log     *logger.Logger
	service services.ChartService
}

func NewChartHandler(log *logger.Logger, svc services.ChartService) *ChartHandler {
	return &ChartHandler{
		log:     log.With("handler", "ChartHandler"),
		service: svc,
	}
}

// GET /api/characteristics/:id/chart?window=100
func (h *ChartHandler) Get(c *gin.Context) {
	characteristicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	window, _ := strconv.Atoi(c.DefaultQuery("window", "0"))
	data, err := h.service.GetChartData(c.Request.Context(), characteristicID, window)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, data)
}
