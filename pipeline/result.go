package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/coverwire/curator/core"
)

// Outcome is the terminal disposition of one candidate within a batch.
type Outcome string

const (
	// OutcomeDeduped means the semantic check matched recent content.
	OutcomeDeduped Outcome = "deduped"

	// OutcomeScoreRejected means the heuristic score fell below the gate
	// minimum. No provider was called.
	OutcomeScoreRejected Outcome = "score_rejected"

	// OutcomeValidatorRejected means the validator declined the candidate,
	// or its verdict could not be obtained and the candidate was rejected
	// conservatively.
	OutcomeValidatorRejected Outcome = "validator_rejected"

	// OutcomeEnrichmentFailed means drafting failed after bounded retries.
	// Nothing was staged; a later run may retry the candidate.
	OutcomeEnrichmentFailed Outcome = "enrichment_failed"

	// OutcomeStaged means a StagingItem exists and awaits human review.
	OutcomeStaged Outcome = "staged"

	// OutcomeSkipped means the batch deadline passed before the candidate
	// started.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means a stage hit an unrecoverable error.
	OutcomeFailed Outcome = "failed"
)

// ItemResult records how one candidate left the pipeline.
type ItemResult struct {
	Fingerprint core.Fingerprint
	Title       string
	Outcome     Outcome

	// Stage names the stage behind a failed or enrichment_failed outcome.
	Stage string

	// Detail is a short human-readable explanation of the outcome.
	Detail string

	// ItemId is set when the candidate was staged.
	ItemId core.ID

	// Notified reports that the review preview went out during this run.
	Notified bool
}

// BatchResult is the per-run summary returned by the orchestrator. Counts
// are per outcome; Notified counts the staged subset whose preview was
// sent during this run.
type BatchResult struct {
	RunId   string
	Started time.Time
	Elapsed time.Duration

	Total             int
	Deduped           int
	ScoreRejected     int
	ValidatorRejected int
	EnrichmentFailed  int
	Staged            int
	Notified          int
	Skipped           int
	Failed            int

	Items []ItemResult
}

func (r *BatchResult) add(item ItemResult) {
	r.Items = append(r.Items, item)

	switch item.Outcome {
	case OutcomeDeduped:
		r.Deduped++
	case OutcomeScoreRejected:
		r.ScoreRejected++
	case OutcomeValidatorRejected:
		r.ValidatorRejected++
	case OutcomeEnrichmentFailed:
		r.EnrichmentFailed++
	case OutcomeStaged:
		r.Staged++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}

	if item.Notified {
		r.Notified++
	}
}

// Report renders a human-readable batch summary. Failed and
// enrichment-failed items are listed individually so an operator can act
// on them without digging through logs.
func (r *BatchResult) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s: %d candidates in %s\n", r.RunId, r.Total, r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "  staged %d (notified %d)\n", r.Staged, r.Notified)
	fmt.Fprintf(&b, "  deduped %d, score-rejected %d, validator-rejected %d\n", r.Deduped, r.ScoreRejected, r.ValidatorRejected)
	fmt.Fprintf(&b, "  enrichment-failed %d, skipped %d, failed %d\n", r.EnrichmentFailed, r.Skipped, r.Failed)

	for _, item := range r.Items {
		switch item.Outcome {
		case OutcomeEnrichmentFailed, OutcomeFailed:
			fmt.Fprintf(&b, "  ! %s [%s at %s]: %s\n", item.Title, item.Outcome, item.Stage, item.Detail)
		}
	}

	return b.String()
}
