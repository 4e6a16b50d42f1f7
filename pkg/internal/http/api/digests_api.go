package api

import (
	"errors"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/http/exts"
	"github.com/nathanctay/instafetch/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listDigests(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	digests, err := services.ListDigests(take, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(digests)
}

func composeDigest(c *fiber.Ctx) error {
	var data struct {
		PeriodStart time.Time `json:"period_start" validate:"required"`
		PeriodEnd   time.Time `json:"period_end" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	if !data.PeriodEnd.After(data.PeriodStart) {
		return fiber.NewError(fiber.StatusBadRequest, "period end must be after period start")
	}

	digest, err := services.ComposeAndSendDigest(c.UserContext(), data.PeriodStart, data.PeriodEnd)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(digest)
	case errors.Is(err, services.ErrEmptyDigest):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case digest.ID > 0:
		// Recorded but not delivered; the client can resend it later.
		return c.Status(fiber.StatusAccepted).JSON(digest)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func resendDigest(c *fiber.Ctx) error {
	id, err := c.ParamsInt("digestId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid digest id")
	}

	digest, err := services.ResendDigest(c.UserContext(), uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(digest)
}
