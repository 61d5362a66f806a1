package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/repository"
)

type ProfileHandler struct {
	profiles repository.ProfileRepository
}

func NewProfileHandler(profiles repository.ProfileRepository) (*ProfileHandler, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	return &ProfileHandler{profiles: profiles}, nil
}

func RegisterProfileRoutes(router fiber.Router, profiles repository.ProfileRepository) error {
	h, err := NewProfileHandler(profiles)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/profiles", h.CreateProfile)
	v1.Get("/profiles", h.ListProfiles)
	v1.Get("/profiles/:id", h.GetProfile)
	v1.Put("/profiles/:id", h.UpdateProfile)
	v1.Delete("/profiles/:id", h.DeleteProfile)

	return nil
}

type profileRequest struct {
	Name              string              `json:"name"`
	Description       *string             `json:"description"`
	ContactsTableName string              `json:"contactsTableName"`
	Providers         domain.ProviderList `json:"emailProviders"`
	DefaultProviderID *string             `json:"defaultProviderId"`
}

func (h *ProfileHandler) CreateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	profile := domain.Profile{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Description:       req.Description,
		ContactsTableName: req.ContactsTableName,
		Providers:         req.Providers,
		DefaultProviderID: req.DefaultProviderID,
	}
	if err := profile.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.profiles.Create(c.Context(), &profile); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(profile)
}

func (h *ProfileHandler) ListProfiles(c *fiber.Ctx) error {
	profiles, err := h.profiles.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": profiles,
	})
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.profiles.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	profile := domain.Profile{
		ID:                c.Params("id"),
		Name:              req.Name,
		Description:       req.Description,
		ContactsTableName: req.ContactsTableName,
		Providers:         req.Providers,
		DefaultProviderID: req.DefaultProviderID,
	}
	if err := profile.Validate(); err != nil {
		return toHTTPError(err)
	}

	if err := h.profiles.Update(c.Context(), &profile); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

func (h *ProfileHandler) DeleteProfile(c *fiber.Ctx) error {
	if err := h.profiles.Delete(c.Context(), c.Params("id")); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
