package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	service "github.com/mamadbah2/kitchenledger/internal/service/whatsapp"
)

// ChatHandler serves the WhatsApp webhook and the manual message endpoint.
type ChatHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

// NewChatHandler constructs the chat HTTP adapter.
func NewChatHandler(svc service.MessagingService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{svc: svc, logger: logger}
}

type verifyQuery struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// Verify echoes Meta's subscription challenge when the verify token matches.
func (h *ChatHandler) Verify(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "invalid query")
		return
	}
	challenge, err := h.svc.VerifyWebhookToken(q.Mode, q.Token, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.String("mode", q.Mode), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive runs the staff commands of a callback. Once the body parses the callback is
// acknowledged, even if a reply could not be delivered: redelivery would apply the commands twice.
func (h *ChatHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("webhook reply not delivered", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// Send pushes a manual message, e.g. a note to the manager.
func (h *ChatHandler) Send(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, models.Validationf("message", "", "to and message are required"))
		return
	}
	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("outbound message failed", zap.String("to", req.To), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"to": req.To})
}
