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

	"github.com/coverwire/curator/ai"
	"github.com/coverwire/curator/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Validator implements ai.Validator using OpenAI-compatible chat APIs.
type Validator struct {
	client llms.Model
	logger *slog.Logger
}

// verdict is an internal type used for JSON unmarshaling.
// It matches the structure the validation prompt demands.
type verdict struct {
	Approved bool   `json:"approved"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

// newValidator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newValidator(config *ai.Config) (*Validator, error) {
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

	return &Validator{
		client: client,
		logger: slog.Default().With("component", "openai-validator"),
	}, nil
}

// NewValidator creates a new validator using the provided configuration.
//
// Returns ai.Validator interface to enforce abstraction.
func NewValidator(config *ai.Config) (ai.Validator, error) {
	return newValidator(config)
}

// Validate asks the reasoning model whether a borderline candidate deserves
// enrichment. Unparseable responses surface as a MalformedResponseError
// carrying the raw output, never as a panic or batch abort.
func (v *Validator) Validate(ctx context.Context, req ai.ValidationRequest) (ai.ValidationResult, error) {
	payload, err := json.Marshal(map[string]any{
		"title":    req.Title,
		"summary":  req.Summary,
		"category": req.Category,
		"score":    req.Score,
		"reason":   req.Reason,
	})
	if err != nil {
		return ai.ValidationResult{}, fmt.Errorf("encode validation request: %w", err)
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildValidationPrompt()),
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
	var result verdict
	var lastErr error
	var lastRaw string
	for attempt := 0; attempt < 3; attempt++ {
		response, err := v.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			v.logger.Error("failed to generate validation verdict", "attempt", attempt+1, "err", err)
			return ai.ValidationResult{}, classifyProviderError(err)
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
			v.logger.Warn("validator response contained no JSON", "attempt", attempt+1, "response", lastRaw)
			continue
		}

		if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
			lastErr = err
			v.logger.Warn("error parsing validator response",
				"attempt", attempt+1,
				"response", cleaned,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		v.logger.Error("failed to parse validator response after retries", "err", lastErr)
		return ai.ValidationResult{}, core.NewMalformedResponseError(lastErr, lastRaw)
	}

	out := ai.ValidationResult{
		Approved: result.Approved,
		Notes:    result.Notes,
	}
	if result.Category != "" {
		if ai.ValidCategory(result.Category) {
			out.Category = result.Category
		} else {
			v.logger.Warn("ignoring unknown category override", "category", result.Category)
		}
	}
	if result.Priority != "" {
		if ai.ValidPriority(result.Priority) {
			out.Priority = result.Priority
		} else {
			v.logger.Warn("ignoring unknown priority override", "priority", result.Priority)
		}
	}

	v.logger.Debug("validation verdict",
		"approved", out.Approved,
		"category_override", out.Category,
		"priority_override", out.Priority)

	return out, nil
}
