package main

import (
	"log/slog"
	"os"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "steward",
		Usage:   "community moderation and gamification daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "mongo-url",
			Usage:   "mongodb connection string; empty runs on the in-memory store",
			EnvVars: []string{"STEWARD_MONGO_URL", "MONGO_URL"},
		},
		&cli.StringFlag{
			Name:    "mongo-db",
			Value:   "youyesyou",
			EnvVars: []string{"STEWARD_MONGO_DB"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for counters, flags, and caches; empty runs in-memory",
			EnvVars: []string{"STEWARD_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the internal HTTP API",
			Value:   ":3100",
			EnvVars: []string{"STEWARD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3101",
			EnvVars: []string{"STEWARD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "incoming webhook for moderation and gamification events",
			EnvVars: []string{"STEWARD_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "classifier-endpoint",
			Usage:   "image classifier API endpoint",
			Value:   "https://api.sightengine.com/1.0/check.json",
			EnvVars: []string{"STEWARD_CLASSIFIER_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "classifier-api-user",
			EnvVars: []string{"STEWARD_CLASSIFIER_API_USER"},
		},
		&cli.StringFlag{
			Name:    "classifier-api-secret",
			EnvVars: []string{"STEWARD_CLASSIFIER_API_SECRET"},
		},
		&cli.StringFlag{
			Name:    "word-lists",
			Usage:   "JSON file of word lists, {\"set-name\": [\"term\", ...]}; merged over the built-in defaults",
			EnvVars: []string{"STEWARD_WORD_LISTS"},
		},
		&cli.StringFlag{
			Name:    "blocklist",
			Usage:   "JSON file of hard-block terms and allowlisted containing words",
			EnvVars: []string{"STEWARD_BLOCKLIST"},
		},
		&cli.IntFlag{
			Name:    "flagged-escalation-per-day",
			Usage:   "flagged submissions per user per day before an automatic warning; 0 disables",
			Value:   3,
			EnvVars: []string{"STEWARD_FLAGGED_ESCALATION_PER_DAY"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		srv, err := NewServer(cctx.Context, Config{
			Logger:                  logger,
			MongoURL:                cctx.String("mongo-url"),
			MongoDB:                 cctx.String("mongo-db"),
			RedisURL:                cctx.String("redis-url"),
			Bind:                    cctx.String("bind"),
			SlackWebhookURL:         cctx.String("slack-webhook-url"),
			ClassifierEndpoint:      cctx.String("classifier-endpoint"),
			ClassifierAPIUser:       cctx.String("classifier-api-user"),
			ClassifierAPISecret:     cctx.String("classifier-api-secret"),
			WordListsPath:           cctx.String("word-lists"),
			BlocklistPath:           cctx.String("blocklist"),
			FlaggedEscalationPerDay: cctx.Int("flagged-escalation-per-day"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				os.Exit(-1)
			}
		}()

		return srv.RunAPI()
	},
}
