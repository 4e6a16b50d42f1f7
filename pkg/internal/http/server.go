package http

import (
	"github.com/nathanctay/instafetch/pkg/internal/http/api"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func NewServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnableIPValidation:    true,
		ServerHeader:          "instafetch",
		AppName:               "instafetch",
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
	})

	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
	}))

	api.MapAPIs(app, "/api")

	return app
}

func Listen(app *fiber.App) {
	bind := viper.GetString("bind")
	if len(bind) == 0 {
		bind = "0.0.0.0:8445"
	}

	if err := app.Listen(bind); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting http server.")
	}
}
