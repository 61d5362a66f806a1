package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/candemir/bulkmail/internal/observability"
	"github.com/candemir/bulkmail/internal/repository"
)

// trackingPixelB64 is a 1x1 transparent PNG answered on every tracked
// open so mail clients render nothing.
const trackingPixelB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var trackingPixel = mustDecodePixel()

func mustDecodePixel() []byte {
	pixel, err := base64.StdEncoding.DecodeString(trackingPixelB64)
	if err != nil {
		panic(fmt.Sprintf("invalid tracking pixel: %v", err))
	}
	return pixel
}

type TrackHandler struct {
	contacts     repository.ContactRepository
	defaultTable string
	metrics      *observability.Metrics
	logger       *zap.Logger
}

func NewTrackHandler(
	contacts repository.ContactRepository,
	defaultTable string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*TrackHandler, error) {
	if contacts == nil {
		return nil, fmt.Errorf("contact repository is required")
	}
	if strings.TrimSpace(defaultTable) == "" {
		defaultTable = "contacts"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TrackHandler{
		contacts:     contacts,
		defaultTable: defaultTable,
		metrics:      metrics,
		logger:       logger,
	}, nil
}

func RegisterTrackRoutes(
	router fiber.Router,
	contacts repository.ContactRepository,
	defaultTable string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) error {
	h, err := NewTrackHandler(contacts, defaultTable, metrics, logger)
	if err != nil {
		return err
	}

	router.Get("/api/track", h.TrackOpen)
	return nil
}

// TrackOpen flips the opened flag for the addressed contact and answers
// the pixel. Mail clients prefetch aggressively, so caching is disabled.
func (h *TrackHandler) TrackOpen(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	table := strings.TrimSpace(c.Query("table"))
	if table == "" {
		table = h.defaultTable
	}

	if err := h.contacts.MarkOpened(c.Context(), table, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "contact not found")
		}
		return toHTTPError(err)
	}

	h.metrics.IncEmailOpened(table)
	h.logger.Debug("email open tracked",
		zap.String("email", email),
		zap.String("table", table),
	)

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")

	return c.Status(fiber.StatusOK).Send(trackingPixel)
}
