// Copyright 2025 Coverwire Systems
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
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/coverwire/curator"
	"github.com/coverwire/curator/config"
	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/dedup"
	"github.com/coverwire/curator/notify"
	"github.com/coverwire/curator/pipeline"
	"github.com/coverwire/curator/triage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "curator",
		Usage: "Content pipeline for regulatory and industry news",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run an ingest batch over a candidate file",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "candidates",
						Aliases:  []string{"f"},
						Usage:    "Path to JSON file with candidate items",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "deadline",
						Usage: "Overall batch deadline (0 disables)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size (overrides config)",
					},
					&cli.IntFlag{
						Name:  "min-score",
						Usage: "Admission threshold (overrides config)",
					},
					&cli.IntFlag{
						Name:  "auto-approve-score",
						Usage: "Auto-approve threshold (overrides config)",
					},
					&cli.Float64Flag{
						Name:  "dedup-threshold",
						Usage: "Similarity threshold (overrides config)",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List staged items by status",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Lifecycle status to list (pending, changes_requested, approved, rejected, archived)",
						Value:   "pending",
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Filter by staging type (news, regulation-update)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show staging queue counts per status",
				Action: statsCommand,
			},
			{
				Name:   "prune",
				Usage:  "Remove dedup records older than the retention window",
				Action: pruneCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Retention override (defaults to the configured dedup window)",
					},
				},
			},
			{
				Name:   "sweep",
				Usage:  "Publish approved items that missed their immediate publish",
				Action: sweepCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Flag overrides on top of file and environment.
	if c.IsSet("pool-size") {
		cfg.Pipeline.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("min-score") {
		cfg.Triage.MinScore = c.Int("min-score")
	}
	if c.IsSet("auto-approve-score") {
		cfg.Triage.AutoApproveScore = c.Int("auto-approve-score")
	}
	if c.IsSet("dedup-threshold") {
		cfg.Dedup.Threshold = float32(c.Float64("dedup-threshold"))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	candidates, err := readCandidates(c.String("candidates"))
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "candidate file is empty, nothing to do")
		return nil
	}

	store, err := curator.Open(cfg.DataDir, curator.WithAIConfig(cfg.AI.Provider()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	service, err := store.NewReviewService(notifier)
	if err != nil {
		return fmt.Errorf("failed to create review service: %w", err)
	}

	checker, err := store.NewDeduplicator(
		dedup.WithThreshold(cfg.Dedup.Threshold),
		dedup.WithWindow(cfg.Dedup.Window()),
		dedup.WithFailClosed(cfg.Dedup.FailClosed),
	)
	if err != nil {
		return fmt.Errorf("failed to create deduplicator: %w", err)
	}

	gate, err := triage.NewGate(cfg.Triage.MinScore, cfg.Triage.AutoApproveScore)
	if err != nil {
		return err
	}

	pipe, err := store.NewPipeline(checker, service,
		pipeline.WithGate(gate),
		pipeline.WithPoolSize(cfg.Pipeline.PoolSize),
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout()),
		pipeline.WithRetry(cfg.Pipeline.RetryAttempts, cfg.Pipeline.RetryBaseDelay()),
		pipeline.WithRateLimiters(cfg.Pipeline.ReasoningLimiter(), cfg.Pipeline.EmbeddingLimiter()),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipe.Release()

	if deadline := c.Duration("deadline"); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	fmt.Fprintf(os.Stderr, "Data dir: %s\n", cfg.DataDir)
	fmt.Fprintf(os.Stderr, "Candidates: %d\n", len(candidates))
	fmt.Fprintln(os.Stderr)

	result := pipe.Run(ctx, candidates)
	fmt.Print(result.Report())
	return nil
}

func listCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	status, err := core.ParseStatus(c.String("status"))
	if err != nil {
		return err
	}

	store, err := curator.Open(cfg.DataDir, curator.WithAIConfig(cfg.AI.Provider()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var items []*core.StagingItem
	if rawType := c.String("type"); rawType != "" {
		stagingType := core.StagingType(rawType)
		if stagingType != core.TypeNews && stagingType != core.TypeRegulationUpdate {
			return fmt.Errorf("unknown staging type %q", rawType)
		}
		items, err = store.Staging().ListByStatusAndType(ctx, status, stagingType)
	} else {
		items, err = store.Staging().ListByStatus(ctx, status)
	}
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	for _, item := range items {
		fmt.Printf("%-8d %-17s %-8s %-8s %3d  %s\n",
			uint64(item.Id), item.Type, item.DetectionType, item.Priority, item.Score, item.Title)
	}
	fmt.Printf("%d %s item(s)\n", len(items), status)
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := curator.Open(cfg.DataDir, curator.WithAIConfig(cfg.AI.Provider()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	statuses := []core.Status{
		core.StatusPending,
		core.StatusChangesRequested,
		core.StatusApproved,
		core.StatusRejected,
		core.StatusArchived,
	}
	for _, status := range statuses {
		items, err := store.Staging().ListByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("failed to count %s items: %w", status, err)
		}
		fmt.Printf("%-18s %d\n", status, len(items))
	}
	return nil
}

func pruneCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	retention := c.Duration("older-than")
	if retention <= 0 {
		retention = cfg.Dedup.Window()
	}

	store, err := curator.Open(cfg.DataDir, curator.WithAIConfig(cfg.AI.Provider()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	cutoff := time.Now().UTC().Add(-retention)
	removed, err := store.Dedup().Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	fmt.Printf("pruned %d dedup record(s) published before %s\n", removed, cutoff.Format(time.RFC3339))
	return nil
}

func sweepCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	store, err := curator.Open(cfg.DataDir, curator.WithAIConfig(cfg.AI.Provider()))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	publisher, err := store.NewPublisher(cfg.Publish.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Publish.SweepTimeout())
	defer cancel()

	res, err := publisher.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("sweep: scanned %d, published %d, repaired %d, failed %d\n",
		res.Scanned, res.Published, res.Repaired, res.Failed)
	return nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func buildNotifier(cfg config.Config) (notify.Notifier, error) {
	if !cfg.Telegram.Enabled() {
		return notify.NewNopNotifier(), nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect Telegram bot: %w", err)
	}
	return notify.NewTelegramNotifier(bot, cfg.Telegram.ChatID)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
