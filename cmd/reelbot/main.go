// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/reelbot"
	"github.com/poiesic/reelbot/config"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/storage/badger"
	"github.com/poiesic/reelbot/transport/telegram"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reelbot",
		Usage: "Movie catalog bot for a Telegram channel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"REELBOT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Index the source channel and answer users",
				Action: runCommand,
				Flags: append(storageFlags(),
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Telegram bot token",
						EnvVars: []string{"BOT_TOKEN"},
					},
					&cli.Int64Flag{
						Name:    "channel",
						Usage:   "ID of the source channel to index",
						EnvVars: []string{"CHANNEL_ID"},
					},
					&cli.StringFlag{
						Name:    "admins",
						Usage:   "Comma separated operator user IDs",
						EnvVars: []string{"ADMIN_IDS"},
					},
					&cli.IntFlag{
						Name:    "results",
						Usage:   "Maximum results per query",
						EnvVars: []string{"RESULTS_COUNT"},
					},
					&cli.StringFlag{
						Name:    "match-mode",
						Usage:   "How matches are presented (auto, list, all)",
						EnvVars: []string{"MATCH_MODE"},
					},
					&cli.StringFlag{
						Name:    "metrics-addr",
						Usage:   "Address to serve Prometheus metrics on, empty to disable",
						EnvVars: []string{"METRICS_ADDR"},
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Print user, movie, feedback and request counts",
				Action: statsCommand,
				Flags:  storageFlags(),
			},
			{
				Name:   "requests",
				Usage:  "List pending unmatched queries",
				Action: requestsCommand,
				Flags:  storageFlags(),
			},
			{
				Name:   "purge-requests",
				Usage:  "Clear the unmatched query log",
				Action: purgeRequestsCommand,
				Flags:  storageFlags(),
			},
		},
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{"DATABASE_PATH"},
		},
	}
}

// loadConfig reads the configuration file, if any, and applies flags set
// on the command line or through the environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("db") {
		cfg.Storage.DataDir = c.String("db")
	}
	if c.IsSet("token") {
		cfg.Telegram.Token = c.String("token")
	}
	if c.IsSet("channel") {
		cfg.Telegram.SourceChannel = c.Int64("channel")
	}
	if c.IsSet("admins") {
		ids, err := config.ParseIDList(c.String("admins"))
		if err != nil {
			return nil, fmt.Errorf("invalid admins: %w", err)
		}
		cfg.Telegram.OperatorIDs = ids
	}
	if c.IsSet("results") {
		cfg.Search.ResultLimit = c.Int("results")
	}
	if c.IsSet("match-mode") {
		cfg.Search.MatchMode = config.MatchMode(strings.ToLower(c.String("match-mode")))
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	return cfg, nil
}

func runCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default()
	opts := []telegram.Option{
		telegram.WithLogger(logger),
		telegram.WithPollTimeout(cfg.Telegram.PollTimeout),
		telegram.WithWorkers(cfg.Telegram.Workers),
		telegram.WithRequestTimeout(cfg.Telegram.RequestTimeout),
	}
	if cfg.Telegram.Endpoint != "" {
		opts = append(opts, telegram.WithEndpoint(cfg.Telegram.Endpoint))
	}
	bot, err := telegram.New(cfg.Telegram.Token, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}

	m := metrics.New()
	engine, err := reelbot.NewEngine(cfg, bot, reelbot.WithMetrics(m), reelbot.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		server := metrics.NewServer(cfg.Metrics.Addr, m, logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				logger.Error("error stopping metrics server", "err", err)
			}
		}()
	}

	logger.Info("reelbot running",
		"username", bot.Username(),
		"channel", cfg.Telegram.SourceChannel,
		"operators", len(cfg.Telegram.OperatorIDs),
		"match_mode", cfg.Search.MatchMode,
	)
	return bot.Run(ctx, engine.Handler())
}

// openStorage opens the repositories named by the configuration.
func openStorage(c *cli.Context) (*badger.Repositories, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	repos, err := badger.OpenRepositories(cfg.Storage.DataDir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repos, nil
}

func statsCommand(c *cli.Context) error {
	repos, err := openStorage(c)
	if err != nil {
		return err
	}
	defer repos.Close()
	return printStats(c.Context, repos, c.App.Writer)
}

func printStats(ctx context.Context, repos *badger.Repositories, w io.Writer) error {
	users, err := repos.Users.CountUsers(ctx)
	if err != nil {
		return err
	}
	movies, err := repos.Catalog.CountRecords(ctx)
	if err != nil {
		return err
	}
	feedback, err := repos.Feedback.CountFeedback(ctx)
	if err != nil {
		return err
	}
	requests, err := repos.Escalations.CountEscalations(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Users:            %d\n", users)
	fmt.Fprintf(w, "Movies:           %d\n", movies)
	fmt.Fprintf(w, "Feedback:         %d\n", feedback)
	fmt.Fprintf(w, "Pending requests: %d\n", requests)
	return nil
}

func requestsCommand(c *cli.Context) error {
	repos, err := openStorage(c)
	if err != nil {
		return err
	}
	defer repos.Close()
	return printRequests(c.Context, repos, c.App.Writer)
}

func printRequests(ctx context.Context, repos *badger.Repositories, w io.Writer) error {
	entries, err := repos.Escalations.ListEscalations(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No pending requests.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d users\tfirst %s\tlast %s\n",
			e.Query, len(e.Users),
			e.FirstSeen.Format(time.RFC3339), e.LastSeen.Format(time.RFC3339))
	}
	return nil
}

func purgeRequestsCommand(c *cli.Context) error {
	repos, err := openStorage(c)
	if err != nil {
		return err
	}
	defer repos.Close()

	n, err := repos.Escalations.DeleteAllEscalations(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d requests cleared.\n", n)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
