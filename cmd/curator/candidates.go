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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/coverwire/curator/core"
)

// candidateEntry is the JSON shape of one candidate in an ingest file.
// Feed adapters that fetch live sources produce the same fields.
type candidateEntry struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	SourceURL   string    `json:"source_url"`
	SourceName  string    `json:"source_name"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// readCandidates loads a JSON candidate file and converts each entry
// into a pipeline candidate with its fingerprint computed. A missing
// fetched_at defaults to the current time.
func readCandidates(path string) ([]core.CandidateItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var entries []candidateEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse candidates %s: %w", path, err)
	}

	items := make([]core.CandidateItem, 0, len(entries))
	for i, entry := range entries {
		if entry.Title == "" {
			return nil, fmt.Errorf("candidate %d in %s has no title", i, path)
		}
		fetchedAt := entry.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now().UTC()
		}
		items = append(items, core.NewCandidateItem(
			entry.Title,
			entry.Summary,
			entry.SourceURL,
			entry.SourceName,
			entry.Category,
			entry.PublishedAt,
			fetchedAt,
		))
	}
	return items, nil
}
