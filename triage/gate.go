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


package triage

import (
	"fmt"

	"github.com/coverwire/curator/core"
)

const (
	// DefaultMinScore is the score below which candidates are rejected
	// outright.
	DefaultMinScore = 40
	// DefaultAutoApproveScore is the score at or above which candidates
	// skip the validator.
	DefaultAutoApproveScore = 75
)

// Decision is the admission gate's verdict for a scored candidate.
type Decision int

const (
	// DecisionReject discards the item with no further processing.
	DecisionReject Decision = iota
	// DecisionSendToValidator routes a borderline item to the validator.
	DecisionSendToValidator
	// DecisionAutoApprove sends the item straight to enrichment.
	DecisionAutoApprove
)

// String returns the decision name for logs and batch reports.
func (d Decision) String() string {
	switch d {
	case DecisionReject:
		return "reject"
	case DecisionSendToValidator:
		return "send_to_validator"
	case DecisionAutoApprove:
		return "auto_approve"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Gate applies the three-band admission policy. The bands bound provider
// cost: nothing below MinScore reaches a provider, nothing at or above
// AutoApproveScore reaches the validator.
type Gate struct {
	minScore         int
	autoApproveScore int
}

// NewGate creates a gate with the given thresholds.
// Both must lie in [0, 100] and MinScore must not exceed AutoApproveScore.
func NewGate(minScore, autoApproveScore int) (*Gate, error) {
	if minScore < 0 || minScore > 100 {
		return nil, core.NewConfigurationError("triage.minScore", fmt.Errorf("must be in [0, 100], got %d", minScore))
	}
	if autoApproveScore < 0 || autoApproveScore > 100 {
		return nil, core.NewConfigurationError("triage.autoApproveScore", fmt.Errorf("must be in [0, 100], got %d", autoApproveScore))
	}
	if minScore > autoApproveScore {
		return nil, core.NewConfigurationError("triage.autoApproveScore", fmt.Errorf("must be >= minScore %d, got %d", minScore, autoApproveScore))
	}
	return &Gate{
		minScore:         minScore,
		autoApproveScore: autoApproveScore,
	}, nil
}

// Admit places a scored item into one of the three bands.
// Boundary values belong to the higher band.
func (g *Gate) Admit(item core.ScoredItem) Decision {
	switch {
	case item.Score < g.minScore:
		return DecisionReject
	case item.Score >= g.autoApproveScore:
		return DecisionAutoApprove
	default:
		return DecisionSendToValidator
	}
}
