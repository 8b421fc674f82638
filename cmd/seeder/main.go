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


// Seeder writes a sample candidate file for exercising `curator run`
// without a live feed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type seedCandidate struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	SourceURL   string    `json:"source_url"`
	SourceName  string    `json:"source_name"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

var samples = []seedCandidate{
	{
		Title:      "ESMA publishes final guidelines on MiFID II transaction reporting",
		Summary:    "The authority finalized validation rules for transaction reports, with a twelve month implementation window for investment firms.",
		SourceURL:  "https://example.org/esma/mifid-transaction-reporting",
		SourceName: "ESMA",
		Category:   "regulation",
	},
	{
		Title:      "Federal Reserve proposes amendment to capital requirements for regional banks",
		Summary:    "The draft rule would raise the supplementary leverage ratio for banks above fifty billion dollars in assets.",
		SourceURL:  "https://example.org/fed/capital-requirements-amendment",
		SourceName: "Federal Reserve",
		Category:   "banking",
	},
	{
		Title:      "EBA consults on draft technical standards for operational resilience",
		Summary:    "A consultation paper covering incident classification and reporting timelines under DORA.",
		SourceURL:  "https://example.org/eba/dora-consultation",
		SourceName: "EBA",
		Category:   "regulation",
	},
	{
		Title:      "FCA fines payment institution for safeguarding failures",
		Summary:    "The enforcement notice cites commingled client funds and late reconciliations over an eighteen month period.",
		SourceURL:  "https://example.org/fca/safeguarding-enforcement",
		SourceName: "FCA",
		Category:   "enforcement",
	},
	{
		Title:      "Basel Committee issues directive on crypto-asset exposure disclosures",
		Summary:    "Banks must disclose gross exposures to tokenized assets and stablecoins starting next reporting cycle.",
		SourceURL:  "https://example.org/bis/crypto-exposure-directive",
		SourceName: "BIS",
		Category:   "banking",
	},
	{
		Title:      "Payments consortium pilots cross-border instant settlement corridor",
		Summary:    "Six clearing banks connected their domestic instant payment rails for a three month pilot.",
		SourceURL:  "https://example.org/newswire/instant-settlement-pilot",
		SourceName: "Newswire",
		Category:   "payments",
	},
	{
		Title:      "SEC adopts amendment to customer identification program rules",
		Summary:    "Broker-dealers get a two year transition period to verify beneficial ownership under the amended rule.",
		SourceURL:  "https://example.org/sec/cip-amendment",
		SourceName: "SEC",
		Category:   "compliance",
	},
	{
		Title:      "Industry survey finds compliance budgets flat for third consecutive year",
		Summary:    "A vendor-sponsored survey of two hundred compliance officers reports steady headcount and growing tooling spend.",
		SourceURL:  "https://example.org/newswire/compliance-budget-survey",
		SourceName: "Newswire",
		Category:   "industry",
	},
	{
		Title:      "ECB announces enforcement action over AML monitoring gaps",
		Summary:    "The sanction follows an on-site inspection that found transaction monitoring scenarios disabled for high-risk corridors.",
		SourceURL:  "https://example.org/ecb/aml-enforcement",
		SourceName: "ECB",
		Category:   "enforcement",
	},
	{
		Title:      "FinCEN guidance clarifies beneficial ownership reporting for trusts",
		Summary:    "The interpretive guidance resolves open questions on reporting obligations for trustees of foreign trusts.",
		SourceURL:  "https://example.org/fincen/trust-guidance",
		SourceName: "FinCEN",
		Category:   "compliance",
	},
	{
		Title:      "Regtech vendor raises series B to expand transaction screening platform",
		Summary:    "The round values the screening startup at four hundred million dollars.",
		SourceURL:  "https://example.org/newswire/regtech-series-b",
		SourceName: "Newswire",
		Category:   "industry",
	},
	{
		Title:      "PRA consults on updated requirement for outsourcing registers",
		Summary:    "Firms would submit material outsourcing registers annually instead of on request.",
		SourceURL:  "https://example.org/pra/outsourcing-consultation",
		SourceName: "PRA",
		Category:   "regulation",
	},
}

var (
	outFileName = flag.String("out", "candidates.json", "output file for the seed candidates")
	count       = flag.Int("n", 0, "number of candidates to write (0 means all)")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

func main() {
	entries := samples
	if *count > 0 && *count < len(samples) {
		entries = samples[:*count]
	}

	// Spread publication times over the last two days so recency
	// scoring has something to work with.
	now := time.Now().UTC()
	for i := range entries {
		entries[i].PublishedAt = now.Add(-time.Duration(i+1) * 4 * time.Hour)
		entries[i].FetchedAt = now
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		slog.Error("encode candidates", "err", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if err := os.WriteFile(*outFileName, data, 0644); err != nil {
		slog.Error("write candidate file", "err", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d candidate(s) to %s\n", len(entries), *outFileName)
}
