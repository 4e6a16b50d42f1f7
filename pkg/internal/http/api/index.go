package api

import (
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		accounts := api.Group("/accounts").Name("Accounts API")
		{
			accounts.Get("/", listAccounts)
			accounts.Post("/", createAccount)
			accounts.Get("/:accountId", getAccount)
			accounts.Delete("/:accountId", deleteAccount)
			accounts.Post("/:accountId/pause", pauseAccount)
			accounts.Post("/:accountId/resume", resumeAccount)
			accounts.Post("/:accountId/fetch", fetchAccountNow)
		}

		posts := api.Group("/posts").Name("Posts API")
		{
			posts.Get("/", listPosts)
			posts.Get("/:postId", getPost)
			posts.Delete("/:postId", deletePost)
		}

		digests := api.Group("/digests").Name("Digests API")
		{
			digests.Get("/", listDigests)
			digests.Post("/compose", composeDigest)
			digests.Post("/:digestId/resend", resendDigest)
		}

		settings := api.Group("/settings").Name("Settings API")
		{
			settings.Get("/", getSettings)
			settings.Put("/", updateSettings)
		}

		api.Post("/cycle", runFetchCycle)
	}
}
