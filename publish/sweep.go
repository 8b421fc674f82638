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


package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coverwire/curator/core"
)

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Scanned   int // approved items without a publish stamp
	Published int
	Repaired  int // already in the ledger, stamp restored
	Failed    int
}

// Sweep publishes every approved item that has no publish stamp yet.
// It is the crash-recovery path for approvals whose immediate publish
// was missed by a restart. Per-item failures are logged and counted,
// never propagated.
func (p *Publisher) Sweep(ctx context.Context) (SweepResult, error) {
	items, err := p.staging.ListByStatus(ctx, core.StatusApproved)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list approved items: %w", err)
	}

	var res SweepResult
	for _, item := range items {
		if !item.PublishedAt.IsZero() {
			continue
		}
		res.Scanned++

		outcome, err := p.Publish(ctx, item)
		if err != nil {
			res.Failed++
			p.logger.Warn("sweep publish failed",
				"id", uint64(item.Id), "err", err)
			continue
		}
		switch outcome {
		case Published:
			res.Published++
		case AlreadyPublished:
			res.Repaired++
		}
	}

	if res.Scanned > 0 {
		p.logger.Info("reconciliation sweep",
			"scanned", res.Scanned,
			"published", res.Published,
			"repaired", res.Repaired,
			"failed", res.Failed,
		)
	}
	return res, nil
}

// Sweeper runs reconciliation sweeps on a cron schedule.
type Sweeper struct {
	publisher *Publisher
	cron      *cron.Cron
	timeout   time.Duration

	mu      sync.Mutex
	started bool
}

// NewSweeper schedules periodic sweeps. The schedule accepts standard
// cron expressions as well as @every syntax, for example "@every 15m".
func NewSweeper(publisher *Publisher, schedule string, timeout time.Duration) (*Sweeper, error) {
	if publisher == nil {
		return nil, fmt.Errorf("sweeper: publisher is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	s := &Sweeper{
		publisher: publisher,
		cron:      cron.New(),
		timeout:   timeout,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, core.NewConfigurationError("publish.sweep_schedule", err)
	}
	return s, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.publisher.Sweep(ctx); err != nil {
		s.publisher.logger.Error("scheduled sweep failed", "err", err)
	}
}

// Start begins scheduled sweeping.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		<-s.cron.Stop().Done()
		s.started = false
	}
}
