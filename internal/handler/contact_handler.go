package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/repository"
)

type ContactHandler struct {
	contacts repository.ContactRepository
}

func NewContactHandler(contacts repository.ContactRepository) (*ContactHandler, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	return &ContactHandler{contacts: contacts}, nil
}

func RegisterContactRoutes(router fiber.Router, contacts repository.ContactRepository) error {
	h, err := NewContactHandler(contacts)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/contacts", h.ListContacts)
	v1.Get("/contacts/:id", h.GetContact)

	return nil
}

func (h *ContactHandler) ListContacts(c *fiber.Ctx) error {
	table := c.Query("table")

	params := repository.ContactListParams{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 50),
	}

	if raw := c.Query("opened"); raw != "" {
		opened, err := strconv.ParseBool(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid opened filter")
		}
		params.Opened = &opened
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.DeliveryStatus(raw)
		if !status.IsValid() {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid status filter %q", raw))
		}
		params.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid from filter, expected RFC3339")
		}
		params.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid to filter, expected RFC3339")
		}
		params.To = &to
	}

	contacts, total, err := h.contacts.List(c.Context(), table, params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": contacts,
		"meta": fiber.Map{
			"page":     params.Page,
			"pageSize": params.PageSize,
			"total":    total,
		},
	})
}

func (h *ContactHandler) GetContact(c *fiber.Ctx) error {
	contact, err := h.contacts.GetByID(c.Context(), c.Query("table"), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(contact)
}
