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


// Package config loads curator settings from a YAML file, applies
// environment overrides for deployment secrets, and validates the
// result before any component starts.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/core"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. A value present in the
// environment overrides the file, so secrets never have to live on disk.
const (
	EnvConfigPath      = "CURATOR_CONFIG"
	EnvDataDir         = "CURATOR_DATA_DIR"
	EnvAIToken         = "CURATOR_AI_TOKEN"
	EnvTelegramToken   = "CURATOR_TELEGRAM_TOKEN"
	EnvTelegramChatID  = "CURATOR_TELEGRAM_CHAT_ID"
	EnvPublishEndpoint = "CURATOR_PUBLISH_ENDPOINT"
)

// DefaultPath is where Load looks when CURATOR_CONFIG is unset.
const DefaultPath = "curator.yaml"

// Config is the root of the curator configuration tree. Defaults are
// applied before the YAML file, so a partial file only has to name the
// fields it changes.
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
	Triage   TriageConfig   `yaml:"triage"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	AI       AIConfig       `yaml:"ai"`
	Review   ReviewConfig   `yaml:"review"`
	Telegram TelegramConfig `yaml:"telegram"`
	Publish  PublishConfig  `yaml:"publish"`
}

// TriageConfig sets the admission bands. Candidates below MinScore are
// rejected, candidates at or above AutoApproveScore skip the validator.
type TriageConfig struct {
	MinScore         int `yaml:"min_score"`
	AutoApproveScore int `yaml:"auto_approve_score"`
}

// DedupConfig controls the semantic duplicate check.
type DedupConfig struct {
	Threshold  float32 `yaml:"threshold"`
	WindowDays int     `yaml:"window_days"`
	FailClosed bool    `yaml:"fail_closed"`
}

// Window returns the similarity lookback as a duration.
func (d DedupConfig) Window() time.Duration {
	return time.Duration(d.WindowDays) * 24 * time.Hour
}

// PipelineConfig sizes the batch orchestrator.
type PipelineConfig struct {
	PoolSize           int `yaml:"pool_size"`
	StageTimeoutSecs   int `yaml:"stage_timeout_secs"`
	RetryAttempts      int `yaml:"retry_attempts"`
	RetryBaseDelaySecs int `yaml:"retry_base_delay_secs"`
	// ReasoningRPM and EmbeddingRPM cap provider calls per minute across
	// all workers. Zero means uncapped.
	ReasoningRPM int `yaml:"reasoning_rpm"`
	EmbeddingRPM int `yaml:"embedding_rpm"`
}

// StageTimeout returns the per-stage deadline as a duration.
func (p PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSecs) * time.Second
}

// RetryBaseDelay returns the first backoff delay as a duration.
func (p PipelineConfig) RetryBaseDelay() time.Duration {
	return time.Duration(p.RetryBaseDelaySecs) * time.Second
}

// ReasoningLimiter builds the shared token bucket for validator and
// enricher calls.
func (p PipelineConfig) ReasoningLimiter() *rate.Limiter {
	return rpmLimiter(p.ReasoningRPM)
}

// EmbeddingLimiter builds the shared token bucket for embedding calls.
func (p PipelineConfig) EmbeddingLimiter() *rate.Limiter {
	return rpmLimiter(p.EmbeddingRPM)
}

func rpmLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rpm)/60.0, 1)
}

// AIConfig points the pipeline at its model endpoints. Token usually
// arrives through CURATOR_AI_TOKEN rather than the file.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	ReasoningHost  string `yaml:"reasoning_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ReasoningModel string `yaml:"reasoning_model"`
	Token          string `yaml:"token"`
}

// Provider converts the section into the client configuration consumed
// by ai.NewProvider.
func (a AIConfig) Provider() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(a.EmbeddingHost),
		ai.WithReasoningHost(a.ReasoningHost),
		ai.WithEmbeddingModel(a.EmbeddingModel),
		ai.WithReasoningModel(a.ReasoningModel),
		ai.WithToken(a.Token),
	)
}

// ReviewConfig configures the review HTTP API.
type ReviewConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TelegramConfig names the channel where review previews are sent. An
// empty token disables Telegram; previews are logged instead.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Enabled reports whether a bot token is present.
func (t TelegramConfig) Enabled() bool {
	return t.Token != ""
}

// PublishConfig points the publisher at the downstream content API and
// schedules the reconciliation sweep.
type PublishConfig struct {
	Endpoint         string `yaml:"endpoint"`
	SweepSchedule    string `yaml:"sweep_schedule"`
	SweepTimeoutSecs int    `yaml:"sweep_timeout_secs"`
}

// SweepTimeout returns the per-sweep deadline as a duration.
func (p PublishConfig) SweepTimeout() time.Duration {
	return time.Duration(p.SweepTimeoutSecs) * time.Second
}

// Default returns the configuration used when no file is present. It
// passes Validate as-is.
func Default() Config {
	return Config{
		DataDir:  "./data",
		LogLevel: "info",
		Triage: TriageConfig{
			MinScore:         40,
			AutoApproveScore: 75,
		},
		Dedup: DedupConfig{
			Threshold:  0.88,
			WindowDays: 5,
		},
		Pipeline: PipelineConfig{
			PoolSize:           4,
			StageTimeoutSecs:   30,
			RetryAttempts:      2,
			RetryBaseDelaySecs: 2,
			ReasoningRPM:       60,
			EmbeddingRPM:       300,
		},
		AI: AIConfig{
			EmbeddingHost:  "http://localhost:11434/v1",
			ReasoningHost:  "http://localhost:11434/v1",
			EmbeddingModel: "embeddinggemma",
			ReasoningModel: "qwen2.5:3b",
			Token:          "none",
		},
		Review: ReviewConfig{
			ListenAddr: ":8085",
		},
		Publish: PublishConfig{
			Endpoint:         "http://localhost:8090/api/v1/content",
			SweepSchedule:    "@every 15m",
			SweepTimeoutSecs: 120,
		},
	}
}

// Load resolves the configuration for a curator process: defaults, then
// the YAML file named by CURATOR_CONFIG (or curator.yaml when the
// variable is unset), then environment overrides. A missing default
// file is not an error; a missing explicit file is.
func Load() (Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFrom(path)
	}
	cfg := Default()
	if err := readInto(&cfg, DefaultPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return finish(cfg)
}

// LoadFrom reads the file at path over the defaults, applies environment
// overrides and validates the result.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	if err := readInto(&cfg, path); err != nil {
		return Config{}, err
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readInto(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvAIToken); v != "" {
		c.AI.Token = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("ignoring malformed chat id override", "env", EnvTelegramChatID, "err", err)
		} else {
			c.Telegram.ChatID = id
		}
	}
	if v := os.Getenv(EnvPublishEndpoint); v != "" {
		c.Publish.Endpoint = v
	}
}

// Validate checks every section and reports the first problem as a
// ConfigurationError. It runs before any store or client is opened.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return core.NewConfigurationError("data_dir", errors.New("must not be empty"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return core.NewConfigurationError("log_level", err)
	}
	if c.Triage.MinScore < 0 || c.Triage.MinScore > 100 {
		return core.NewConfigurationError("triage.min_score", errors.New("must be between 0 and 100"))
	}
	if c.Triage.AutoApproveScore < 0 || c.Triage.AutoApproveScore > 100 {
		return core.NewConfigurationError("triage.auto_approve_score", errors.New("must be between 0 and 100"))
	}
	if c.Triage.MinScore > c.Triage.AutoApproveScore {
		return core.NewConfigurationError("triage.min_score", errors.New("must not exceed triage.auto_approve_score"))
	}
	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		return core.NewConfigurationError("dedup.threshold", errors.New("must be in (0, 1]"))
	}
	if c.Dedup.WindowDays <= 0 {
		return core.NewConfigurationError("dedup.window_days", errors.New("must be positive"))
	}
	if c.Pipeline.PoolSize <= 0 {
		return core.NewConfigurationError("pipeline.pool_size", errors.New("must be positive"))
	}
	if c.Pipeline.StageTimeoutSecs <= 0 {
		return core.NewConfigurationError("pipeline.stage_timeout_secs", errors.New("must be positive"))
	}
	if c.Pipeline.RetryAttempts <= 0 {
		return core.NewConfigurationError("pipeline.retry_attempts", errors.New("must be positive"))
	}
	if c.Pipeline.RetryBaseDelaySecs <= 0 {
		return core.NewConfigurationError("pipeline.retry_base_delay_secs", errors.New("must be positive"))
	}
	if c.Pipeline.ReasoningRPM < 0 {
		return core.NewConfigurationError("pipeline.reasoning_rpm", errors.New("must not be negative"))
	}
	if c.Pipeline.EmbeddingRPM < 0 {
		return core.NewConfigurationError("pipeline.embedding_rpm", errors.New("must not be negative"))
	}
	if c.AI.EmbeddingHost == "" {
		return core.NewConfigurationError("ai.embedding_host", errors.New("must not be empty"))
	}
	if c.AI.ReasoningHost == "" {
		return core.NewConfigurationError("ai.reasoning_host", errors.New("must not be empty"))
	}
	if c.AI.EmbeddingModel == "" {
		return core.NewConfigurationError("ai.embedding_model", errors.New("must not be empty"))
	}
	if c.AI.ReasoningModel == "" {
		return core.NewConfigurationError("ai.reasoning_model", errors.New("must not be empty"))
	}
	if c.AI.Token == "" {
		return core.NewConfigurationError("ai.token", errors.New("must not be empty, use \"none\" for unauthenticated hosts"))
	}
	if c.Review.ListenAddr == "" {
		return core.NewConfigurationError("review.listen_addr", errors.New("must not be empty"))
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return core.NewConfigurationError("telegram.chat_id", errors.New("required when telegram.token is set"))
	}
	if c.Publish.Endpoint == "" {
		return core.NewConfigurationError("publish.endpoint", errors.New("must not be empty"))
	}
	if c.Publish.SweepSchedule == "" {
		return core.NewConfigurationError("publish.sweep_schedule", errors.New("must not be empty"))
	}
	if c.Publish.SweepTimeoutSecs <= 0 {
		return core.NewConfigurationError("publish.sweep_timeout_secs", errors.New("must be positive"))
	}
	return nil
}

// Level resolves the configured log level. Unknown names were already
// rejected by Validate.
func (c Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q", name)
	}
}
