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


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxDraftTags bounds how many topic tags a draft may carry.
const maxDraftTags = 5

// Writer implements ai.Writer using OpenAI-compatible chat APIs.
type Writer struct {
	client llms.Model
	logger *slog.Logger
}

// draft is an internal type used for JSON unmarshaling.
// It matches the structure the drafting prompt demands.
type draft struct {
	Headline string   `json:"headline"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
}

// newWriter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newWriter(config *ai.Config) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ReasoningHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ReasoningModel),
	)
	if err != nil {
		return nil, err
	}

	return &Writer{
		client: client,
		logger: slog.Default().With("component", "openai-writer"),
	}, nil
}

// NewWriter creates a new writer using the provided configuration.
//
// Returns ai.Writer interface to enforce abstraction.
func NewWriter(config *ai.Config) (ai.Writer, error) {
	return newWriter(config)
}

// Write drafts the long-form article for an admitted candidate.
func (w *Writer) Write(ctx context.Context, req ai.WriteRequest) (ai.Draft, error) {
	payload, err := json.Marshal(map[string]any{
		"title":       req.Title,
		"summary":     req.Summary,
		"category":    req.Category,
		"source_name": req.SourceName,
		"source_url":  req.SourceURL,
	})
	if err != nil {
		return ai.Draft{}, fmt.Errorf("encode draft request: %w", err)
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildDraftPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(string(payload)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result draft
	var lastErr error
	var lastRaw string
	for attempt := 0; attempt < 3; attempt++ {
		response, err := w.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			w.logger.Error("failed to generate draft", "attempt", attempt+1, "err", err)
			return ai.Draft{}, classifyProviderError(err)
		}

		if len(response.Choices) < 1 {
			lastErr = errors.New("no choices returned from model")
			lastRaw = ""
			continue
		}

		lastRaw = response.Choices[0].Content
		cleaned := extractJSON(lastRaw)
		if cleaned == "" {
			lastErr = errors.New("no JSON object in response")
			w.logger.Warn("draft response contained no JSON", "attempt", attempt+1, "response", lastRaw)
			continue
		}

		if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
			lastErr = err
			w.logger.Warn("error parsing draft response",
				"attempt", attempt+1,
				"response", cleaned,
				"err", err)
			continue
		}

		if strings.TrimSpace(result.Headline) == "" || strings.TrimSpace(result.Body) == "" {
			lastErr = errors.New("draft missing headline or body")
			w.logger.Warn("draft response incomplete", "attempt", attempt+1)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		w.logger.Error("failed to parse draft response after retries", "err", lastErr)
		return ai.Draft{}, core.NewMalformedResponseError(lastErr, lastRaw)
	}

	tags := make([]string, 0, len(result.Tags))
	for _, tag := range result.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxDraftTags {
			break
		}
	}

	w.logger.Debug("draft generated",
		"headline_length", len(result.Headline),
		"body_length", len(result.Body),
		"tags", len(tags))

	return ai.Draft{
		Headline: strings.TrimSpace(result.Headline),
		Body:     strings.TrimSpace(result.Body),
		Tags:     tags,
	}, nil
}
