package api

import (
	"errors"

	"github.com/nathanctay/instafetch/pkg/internal/http/exts"
	"github.com/nathanctay/instafetch/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listAccounts(c *fiber.Ctx) error {
	accounts, err := services.ListAccounts()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(accounts)
}

func getAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	account, err := services.GetAccount(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(account)
}

func createAccount(c *fiber.Ctx) error {
	var data struct {
		Handle string `json:"handle" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	account, err := services.AddAccount(data.Handle)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func deleteAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	if err := services.RemoveAccount(uint(id)); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func pauseAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	account, err := services.PauseAccount(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(account)
}

func resumeAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	account, err := services.ResumeAccount(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(account)
}

func fetchAccountNow(c *fiber.Ctx) error {
	id, err := c.ParamsInt("accountId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	account, err := services.RunFetchForAccount(c.UserContext(), uint(id))
	switch {
	case err == nil:
		return c.JSON(account)
	case errors.Is(err, services.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrCapacityExceeded):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
}
