package api

import (
	"github.com/nathanctay/instafetch/pkg/internal/http/exts"
	"github.com/nathanctay/instafetch/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getSettings(c *fiber.Ctx) error {
	settings, err := services.GetSettings()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(settings)
}

func updateSettings(c *fiber.Ctx) error {
	var data struct {
		DigestFrequency string `json:"digest_frequency" validate:"required,oneof=daily weekly"`
		InstantAlerts   bool   `json:"instant_alerts"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	settings, err := services.UpdateSettings(data.DigestFrequency, data.InstantAlerts)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(settings)
}
