package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// AcceptedResponse acknowledges an authenticated webhook call.
type AcceptedResponse struct {
	Accepted  bool   `json:"accepted"`
	Source    string `json:"source"`
	RequestID string `json:"request_id,omitempty"`
}

// ReceiveHandler acknowledges webhook calls that passed AuthenticationMiddleware.
// Dispatching the payload to business logic is left to whatever is mounted
// behind it; this handler only confirms receipt.
type ReceiveHandler struct {
	logger *slog.Logger
}

// NewReceiveHandler creates a new ReceiveHandler.
func NewReceiveHandler(logger *slog.Logger) *ReceiveHandler {
	return &ReceiveHandler{logger: logger}
}

// ReceiveHandler responds 202 Accepted.
// POST /v1/webhooks/:source
func (h *ReceiveHandler) ReceiveHandler(c *gin.Context) {
	source := c.Param("source")
	h.logger.Info("webhook accepted",
		slog.String("source", source),
		slog.Int64("payload_bytes", c.Request.ContentLength))

	c.JSON(http.StatusAccepted, AcceptedResponse{
		Accepted:  true,
		Source:    source,
		RequestID: requestid.Get(c),
	})
}
