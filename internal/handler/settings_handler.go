package handler

import (
	"github.com/gofiber/fiber/v2"

	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
	"campus-erp/internal/service/settings"
)

type SettingsHandler struct {
	settingsService settings.Service
}

func NewSettingsHandler(settingsService settings.Service) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) List(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	rows, err := h.settingsService.List(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, rows)
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	row, err := h.settingsService.GetOrCreate(c.Context(), actor, domain.NotificationType(c.Params("type")))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, row)
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	var input domain.UpdateSettingsInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	row, err := h.settingsService.Update(c.Context(), actor, domain.NotificationType(c.Params("type")), input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, row)
}

func (h *SettingsHandler) EnableAll(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	rows, err := h.settingsService.EnableAll(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, rows)
}

func (h *SettingsHandler) DisableAll(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	rows, err := h.settingsService.DisableAll(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, rows)
}

func (h *SettingsHandler) Reset(c *fiber.Ctx) error {
	actor, err := middleware.GetActor(c)
	if err != nil {
		return err
	}

	rows, err := h.settingsService.Reset(c.Context(), actor)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, rows)
}
