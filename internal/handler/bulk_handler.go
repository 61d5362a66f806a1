package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/service"
)

type BulkSender interface {
	Start(ctx context.Context, req service.BulkSendRequest) (*domain.BulkProgress, error)
	Progress(ctx context.Context, operationID string) (*domain.BulkProgress, error)
}

type BulkHandler struct {
	sender BulkSender
}

func NewBulkHandler(sender BulkSender) (*BulkHandler, error) {
	if sender == nil {
		return nil, fmt.Errorf("bulk sender is required")
	}
	return &BulkHandler{sender: sender}, nil
}

func RegisterBulkRoutes(router fiber.Router, sender BulkSender) error {
	h, err := NewBulkHandler(sender)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/bulk-sends", h.StartBulkSend)
	v1.Get("/bulk-sends/:id", h.GetProgress)

	return nil
}

type bulkSendRequest struct {
	TableName  string   `json:"tableName"`
	TemplateID string   `json:"templateId"`
	ContactIDs []string `json:"contactIds"`
	ProfileID  string   `json:"profileId"`
}

type bulkSendAcceptedResponse struct {
	OperationID string `json:"operationId"`
	Total       int    `json:"total"`
}

func (h *BulkHandler) StartBulkSend(c *fiber.Ctx) error {
	var req bulkSendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	progress, err := h.sender.Start(c.Context(), service.BulkSendRequest{
		TableName:  req.TableName,
		TemplateID: req.TemplateID,
		ContactIDs: req.ContactIDs,
		ProfileID:  req.ProfileID,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(bulkSendAcceptedResponse{
		OperationID: progress.OperationID,
		Total:       progress.Total,
	})
}

func (h *BulkHandler) GetProgress(c *fiber.Ctx) error {
	progress, err := h.sender.Progress(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(progress)
}
