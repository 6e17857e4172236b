package cmd

import (
	"backend/bots"
	"backend/calsync"
	"backend/database"
	"backend/googlecalendar"
	"backend/scheduler"
	"backend/server"
	"context"
	"fmt"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func ServerCli() *cli.Command {
	cmd := &cli.Command{
		Name:  "notetaker",
		Usage: "calendar sync and meeting-bot dispatch service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Sources: cli.EnvVars("DB_BACKEND"),
				Name:    "db-backend",
				Aliases: []string{"db"},
				Value:   "sqlite",
				Usage:   "database driver to use",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("DB_PATH"),
				Name:    "db-path",
				Aliases: []string{"dp"},
				Value:   "data.db",
				Usage:   "For sqlite the path to the database file",
			},
			&cli.BoolFlag{
				Sources: cli.EnvVars("DEBUG"),
				Name:    "debug",
				Aliases: []string{"d"},
				Value:   false,
				Usage:   "enable debug mode",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("HOST"),
				Name:    "host",
				Aliases: []string{"b"},
				Value:   "127.0.0.1",
				Usage:   "server bind address",
			},
			&cli.IntFlag{
				Sources: cli.EnvVars("PORT"),
				Name:    "port",
				Aliases: []string{"p"},
				Value:   1984,
				Usage:   "server port",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("GOOGLE_CLIENT_ID"),
				Name:    "google-client-id",
				Usage:   "google oauth client id used for token refresh",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("GOOGLE_CLIENT_SECRET"),
				Name:    "google-client-secret",
				Usage:   "google oauth client secret used for token refresh",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("MEETING_BAAS_API_KEY"),
				Name:    "baas-api-key",
				Usage:   "api key for the meeting bot provider",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("WEBHOOK_URL"),
				Name:    "webhook-url",
				Usage:   "callback url handed to the bot provider for async status events",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("SYNC_SCHEDULE"),
				Name:    "sync-schedule",
				Value:   "@every 60s",
				Usage:   "tick schedule, must stay below the 5m dispatch lookahead",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			DB := database.SetupDatabase(c.String("db-backend"), c.String("db-path"), c.Bool("debug"))

			oauthConfig := &oauth2.Config{
				ClientID:     c.String("google-client-id"),
				ClientSecret: c.String("google-client-secret"),
				Endpoint:     google.Endpoint,
			}

			engine := calsync.NewEngine(
				DB,
				googlecalendar.NewClient(),
				bots.NewClient(c.String("baas-api-key"), c.String("webhook-url")),
				calsync.NewTokenManager(DB, oauthConfig),
			)

			schedulerService := scheduler.NewSchedulerService(DB, engine, c.String("sync-schedule"))
			schedulerService.RegisterTasks()
			schedulerService.Start()
			defer schedulerService.Stop()

			s, fullHost := server.BackendServer(DB, engine, c.String("host"), c.Int("port"))
			fmt.Printf("Starting server on %s\n", fullHost)

			return s.ListenAndServe()
		},
	}

	return cmd
}
