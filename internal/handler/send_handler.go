package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/provider"
	"github.com/candemir/bulkmail/internal/service"
)

// providerConfigHeader carries the serialized email provider for single
// sends. The name predates the non-SMTP providers and is kept for
// compatibility with existing clients.
const providerConfigHeader = "x-smtp-config"

const testSMTPTimeout = 15 * time.Second

type SendHandler struct {
	dispatcher service.Dispatcher
	logger     *zap.Logger
}

func NewSendHandler(dispatcher service.Dispatcher, logger *zap.Logger) (*SendHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendHandler{dispatcher: dispatcher, logger: logger}, nil
}

func RegisterSendRoutes(router fiber.Router, dispatcher service.Dispatcher, logger *zap.Logger) error {
	h, err := NewSendHandler(dispatcher, logger)
	if err != nil {
		return err
	}

	api := router.Group("/api")
	api.Post("/send-email", h.SendEmail)
	api.Post("/test-smtp", h.TestSMTP)

	return nil
}

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type sendEmailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
}

// SendEmail performs one delivery with the provider carried in the
// request header. Delivery failures answer 500 with a bare error message,
// matching what senders built against this endpoint expect.
func (h *SendHandler) SendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	emailProvider, err := providerFromHeader(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	msg := domain.EmailMessage{
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
	}

	result := h.dispatcher.Dispatch(c.Context(), emailProvider, msg)
	if !result.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": result.Error,
		})
	}

	return c.Status(fiber.StatusOK).JSON(sendEmailResponse{
		Success:   true,
		MessageID: result.MessageID,
	})
}

// TestSMTP opens and authenticates an SMTP session without sending.
func (h *SendHandler) TestSMTP(c *fiber.Ctx) error {
	var cfg domain.SMTPConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sender, err := provider.NewSMTPSender(cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), testSMTPTimeout)
	defer cancel()

	if err := sender.Verify(ctx); err != nil {
		h.logger.Warn("smtp verification failed",
			zap.String("host", cfg.Host),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

func providerFromHeader(c *fiber.Ctx) (*domain.EmailProvider, error) {
	raw := strings.TrimSpace(c.Get(providerConfigHeader))
	if raw == "" {
		return nil, domain.ErrNoProvider
	}

	var emailProvider domain.EmailProvider
	if err := json.Unmarshal([]byte(raw), &emailProvider); err != nil {
		return nil, fmt.Errorf("invalid provider configuration: %v", err)
	}
	return &emailProvider, nil
}
