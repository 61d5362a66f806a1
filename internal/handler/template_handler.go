package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/repository"
)

type TemplateHandler struct {
	templates repository.TemplateRepository
}

func NewTemplateHandler(templates repository.TemplateRepository) (*TemplateHandler, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	return &TemplateHandler{templates: templates}, nil
}

func RegisterTemplateRoutes(router fiber.Router, templates repository.TemplateRepository) error {
	h, err := NewTemplateHandler(templates)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/templates", h.CreateTemplate)
	v1.Get("/templates", h.ListTemplates)
	v1.Get("/templates/:id", h.GetTemplate)
	v1.Put("/templates/:id", h.UpdateTemplate)
	v1.Delete("/templates/:id", h.DeleteTemplate)

	return nil
}

type templateRequest struct {
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	template := domain.EmailTemplate{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
	}
	if err := template.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.templates.Create(c.Context(), &template); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.templates.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": templates,
	})
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	template, err := h.templates.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(template)
}

func (h *TemplateHandler) UpdateTemplate(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	template := domain.EmailTemplate{
		ID:          c.Params("id"),
		Name:        req.Name,
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
	}
	if err := template.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.templates.Update(c.Context(), &template); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(template)
}

func (h *TemplateHandler) DeleteTemplate(c *fiber.Ctx) error {
	if err := h.templates.Delete(c.Context(), c.Params("id")); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
