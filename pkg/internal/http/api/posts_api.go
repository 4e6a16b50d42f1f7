package api

import (
	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listPosts(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	tx := database.C
	if accountID := c.QueryInt("account", 0); accountID > 0 {
		tx = services.FilterPostWithAccount(tx, uint(accountID))
	}

	count, err := services.CountPost(tx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	items, err := services.ListPost(tx, take, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  items,
	})
}

func getPost(c *fiber.Ctx) error {
	id, err := c.ParamsInt("postId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	item, err := services.GetPost(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(item)
}

func deletePost(c *fiber.Ctx) error {
	id, err := c.ParamsInt("postId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post id")
	}

	item, err := services.GetPost(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err := services.DeletePost(item); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
