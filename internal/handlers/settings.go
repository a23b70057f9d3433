package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/types"
)

// SettingsHandler serves the settings endpoints. Changes only affect jobs
// created afterwards; every job keeps the snapshot taken at creation.
type SettingsHandler struct {
	store *settings.Store
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(store *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Get returns the current settings, or the defaults when none were saved.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	current, err := h.store.Current()
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load settings",
			"code":  "ERR_INTERNAL",
		})
	}
	return c.JSON(current)
}

// Replace stores a full settings document.
func (h *SettingsHandler) Replace(c *fiber.Ctx) error {
	var incoming settings.Settings
	if err := c.BodyParser(&incoming); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	return h.save(c, incoming)
}

// Patch merges a partial overlay onto the current settings, touching only
// provided fields.
func (h *SettingsHandler) Patch(c *fiber.Ctx) error {
	var patch settings.Patch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	current, err := h.store.Current()
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load settings",
			"code":  "ERR_INTERNAL",
		})
	}

	return h.save(c, settings.Merge(current, patch))
}

// Reset restores the defaults.
func (h *SettingsHandler) Reset(c *fiber.Ctx) error {
	defaults, err := h.store.Reset()
	if err != nil {
		log.Printf("Failed to reset settings: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to reset settings",
			"code":  "ERR_INTERNAL",
		})
	}
	return c.JSON(defaults)
}

func (h *SettingsHandler) save(c *fiber.Ctx, s settings.Settings) error {
	if err := s.Validate(); err != nil {
		if errors.Is(err, types.ErrValidation) {
			return c.Status(400).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "ERR_INVALID_SETTINGS",
			})
		}
		log.Printf("Settings validation failed unexpectedly: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to validate settings",
			"code":  "ERR_INTERNAL",
		})
	}

	if err := h.store.Save(s); err != nil {
		log.Printf("Failed to save settings: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to save settings",
			"code":  "ERR_INTERNAL",
		})
	}

	return c.JSON(s)
}
