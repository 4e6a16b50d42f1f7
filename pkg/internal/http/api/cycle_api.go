package api

import (
	"github.com/nathanctay/instafetch/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func runFetchCycle(c *fiber.Ctx) error {
	report, err := services.RunFetchCycle(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(report)
}
