package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkg "github.com/nathanctay/instafetch/pkg/internal"
	"github.com/nathanctay/instafetch/pkg/internal/cache"
	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/email"
	"github.com/nathanctay/instafetch/pkg/internal/http"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/nathanctay/instafetch/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.MagentaString(" _           _        __      _       _\n(_)_ __  ___| |_ __ _/ _| ___| |_ ___| |__\n| | '_ \\/ __| __/ _` | |_ / _ \\ __/ __| '_ \\\n| | | | \\__ \\ || (_| |  _|  __/ || (__| | | |\n|_|_| |_|___/\\__\\__,_|_|  \\___|\\__\\___|_| |_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiMagenta).Add(color.Bold).Sprintf("instafetch"), pkg.AppVersion)
	fmt.Printf("Follow public profiles, get digests in your inbox\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Local cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when setting up local cache.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Scraping provider
	if adapter, err := provider.FromConfig(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when selecting a scraping provider.")
	} else {
		services.SetAdapter(adapter)
	}

	// Email transport
	if mailer, err := email.FromConfig(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when selecting a mailer provider.")
	} else {
		services.SetMailer(mailer)
	}

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	fetchSpec := viper.GetString("fetch.cycle_cron")
	if len(fetchSpec) == 0 {
		fetchSpec = "@every 60m"
	}
	quartz.AddFunc(fetchSpec, services.DoScheduledFetchCycle)
	quartz.AddFunc("0 8 * * *", services.RunScheduledDigest)
	quartz.Start()

	// Server
	go http.Listen(http.NewServer())

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
}
