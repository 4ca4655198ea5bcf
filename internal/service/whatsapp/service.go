package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/service/commands"
	client "github.com/mamadbah2/kitchenledger/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

var errorTitles = map[models.ErrorKind]string{
	models.KindValidation:        "Invalid input",
	models.KindNotFound:          "Not found",
	models.KindInsufficientStock: "Not enough stock",
	models.KindConflict:          "Busy, try again",
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads. Only delivery failures are returned; a
// rejected command is answered to the sender.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	if payload.Object != models.WebhookObject {
		s.logger.Debug("ignoring webhook for another object", zap.String("object", payload.Object))
		return nil
	}

	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != models.WebhookFieldMessages {
				continue
			}
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if msg.Text == nil || strings.TrimSpace(msg.Text.Body) == "" {
		s.logger.Debug("ignoring non-text message", zap.String("message_id", msg.ID), zap.String("type", msg.Type))
		return nil
	}

	if !s.cfg.IsStaff(msg.From) {
		s.logger.Warn("ignoring command from unknown sender", zap.String("from", msg.From), zap.String("message_id", msg.ID))
		return nil
	}

	cmd := models.ParseCommand(msg.Text.Body)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: msg.From, Message: s.reply(ctx, cmd, msg.From)})
}

func (s *MetaWhatsAppService) reply(ctx context.Context, cmd models.Command, sender string) string {
	body, err := s.dispatcher.HandleCommand(ctx, cmd, sender)
	if err == nil {
		return body
	}
	if errors.Is(err, commands.ErrUnsupportedCommand) {
		return "Unknown command. Send /help for the list."
	}

	kind := models.KindOf(err)
	title, ok := errorTitles[kind]
	if !ok {
		s.logger.Error("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		return "Something went wrong, please try again later."
	}
	s.logger.Warn("command rejected", zap.String("command", string(cmd.Type)), zap.String("kind", string(kind)), zap.Error(err))

	reply := models.AutomationReply{Title: title, Message: err.Error()}
	return fmt.Sprintf("%s\n%s", reply.Title, reply.Message)
}

// SendOutbound pushes a text message, used for command replies and manager alerts.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   req.To,
		Body: req.Message,
	})
	return err
}
