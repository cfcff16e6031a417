package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/sse"
)

type StreamHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewStreamHandler(log *logger.Logger, hub *sse.SSEHub) *StreamHandler {
	return &StreamHandler{
		log: log.With("handler", "StreamHandler"),
		hub: hub,
	}
}

// GET /sse/stream?channels=<characteristic-id>,<characteristic-id>
//
// Holds the connection open and pushes sample, violation, and limit events
// for the subscribed characteristics as SSE messages.
func (h *StreamHandler) Stream(c *gin.Context) {
	raw := c.Query("channels")
	if strings.TrimSpace(raw) == "" {
		RespondError(c, http.StatusBadRequest, "missing_channels", nil)
		return
	}

	client := h.hub.NewSSEClient()
	for _, channel := range strings.Split(raw, ",") {
		h.hub.AddChannel(client, channel)
	}
	defer h.hub.CloseClient(client)

	h.log.Debug("SSE stream opened", "clientID", client.ID, "channels", raw)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
