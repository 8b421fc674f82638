package triage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coverwire/curator/core"
)

// Component caps. Keyword hits dominate, source authority and recency
// refine. The caps sum to 100 so a perfect candidate scores exactly 100.
const (
	keywordCap = 60
	sourceCap  = 25
	recencyCap = 15
)

// categoryRule maps a category to the phrases that signal it. Rules are
// checked in slice order so category resolution stays deterministic.
type categoryRule struct {
	name     string
	keywords []string
}

// Ruleset holds the tables the scorer draws from. The zero value is not
// usable; start from DefaultRuleset.
type Ruleset struct {
	// Keywords maps a lowercase phrase to its point weight. Title hits
	// count double.
	Keywords map[string]int
	// UrgentKeywords escalate priority when present at high scores.
	UrgentKeywords []string
	// SourceWeights maps a lowercase source name to its authority bonus.
	SourceWeights map[string]int
	// UnknownSourceWeight applies to sources missing from SourceWeights.
	UnknownSourceWeight int

	categories []categoryRule
}

// DefaultRuleset returns the built-in scoring tables for regulatory and
// compliance news.
func DefaultRuleset() Ruleset {
	return Ruleset{
		Keywords: map[string]int{
			"final rule":          8,
			"enforcement action":  8,
			"enforcement":         6,
			"fine":                8,
			"penalty":             8,
			"consultation":        8,
			"deadline":            8,
			"directive":           7,
			"regulation":          7,
			"technical standards": 7,
			"guidelines":          7,
			"circular":            6,
			"amendment":           5,
			"supervisory":         5,
			"compliance":          5,
			"framework":           4,
			"requirements":        4,
			"statement":           3,
			"review":              3,
			"report":              2,
			"speech":              2,
			"opinion":             2,
		},
		UrgentKeywords: []string{
			"enforcement", "fine", "penalty", "deadline", "sanction",
			"asset freeze", "immediate effect",
		},
		SourceWeights: map[string]int{
			"ecb":                 25,
			"eba":                 25,
			"esma":                25,
			"eiopa":               22,
			"fca":                 25,
			"pra":                 22,
			"bank of england":     22,
			"bafin":               22,
			"finma":               20,
			"sec":                 25,
			"cftc":                20,
			"finra":               18,
			"fatf":                22,
			"bis":                 20,
			"mas":                 20,
			"european commission": 20,
		},
		UnknownSourceWeight: 6,
		categories: []categoryRule{
			{"aml", []string{"money laundering", "aml", "terrorist financing", "kyc", "beneficial ownership"}},
			{"banking", []string{"basel", "capital requirements", "crd", "crr", "deposit guarantee", "lending"}},
			{"consumer-protection", []string{"consumer duty", "consumer protection", "retail customer", "mis-selling"}},
			{"data-privacy", []string{"gdpr", "data protection", "personal data", "privacy"}},
			{"esg", []string{"esg", "sustainability", "climate risk", "sfdr", "csrd", "greenwashing"}},
			{"insurance", []string{"solvency", "insurance", "insurer", "underwriting", "ifrs 17"}},
			{"market-infrastructure", []string{"clearing", "settlement", "ccp", "csd", "emir", "t+1"}},
			{"payments", []string{"psd2", "psd3", "instant payments", "digital euro", "open banking", "payment services"}},
			{"prudential", []string{"stress test", "prudential", "capital buffer", "leverage ratio", "liquidity coverage"}},
			{"reporting", []string{"regulatory reporting", "disclosure", "xbrl", "reporting obligations"}},
			{"sanctions", []string{"sanction", "embargo", "asset freeze", "ofac", "designated person"}},
			{"securities", []string{"mifid", "mifir", "prospectus", "market abuse", "short selling", "securities"}},
			{"tax", []string{"fatca", "crs", "withholding", "pillar two", "tax"}},
		},
	}
}

// Scorer assigns a 0-100 relevance score to candidates using keyword,
// source and recency rules. It is pure: no I/O, no clock reads, the same
// candidate and ruleset always produce the same ScoredItem.
type Scorer struct {
	rules Ruleset
}

// NewScorer creates a scorer with the default ruleset.
func NewScorer() *Scorer {
	return NewScorerWithRules(DefaultRuleset())
}

// NewScorerWithRules creates a scorer with a custom ruleset. Categories
// always come from the built-in tables.
func NewScorerWithRules(rules Ruleset) *Scorer {
	if len(rules.categories) == 0 {
		rules.categories = DefaultRuleset().categories
	}
	return &Scorer{rules: rules}
}

// Score produces the ScoredItem for a candidate. It never fails: a
// candidate with no signal simply scores low.
func (s *Scorer) Score(candidate core.CandidateItem) core.ScoredItem {
	title := core.NormalizeContent(candidate.Title)
	text := title + " " + core.NormalizeContent(candidate.Summary)

	keywordPoints, hits := s.keywordScore(title, text)
	sourcePoints := s.sourceScore(candidate.SourceName)
	recencyPoints := s.recencyScore(candidate.PublishedAt, candidate.FetchedAt)

	score := keywordPoints + sourcePoints + recencyPoints
	if score > 100 {
		score = 100
	}

	urgent := s.hasUrgentSignal(text)

	return core.ScoredItem{
		Candidate: candidate,
		Score:     score,
		Reason:    buildReason(hits, keywordPoints, candidate.SourceName, sourcePoints, recencyPoints),
		Category:  s.resolveCategory(text, candidate.Category),
		Priority:  priorityFor(score, urgent),
	}
}

// keywordScore sums keyword weights over the text, doubling title hits,
// capped at keywordCap. Returns the points and the sorted hit list.
func (s *Scorer) keywordScore(title, text string) (int, []string) {
	var points int
	var hits []string
	for phrase, weight := range s.rules.Keywords {
		if !strings.Contains(text, phrase) {
			continue
		}
		if strings.Contains(title, phrase) {
			points += weight * 2
		} else {
			points += weight
		}
		hits = append(hits, phrase)
	}
	if points > keywordCap {
		points = keywordCap
	}
	sort.Strings(hits)
	return points, hits
}

func (s *Scorer) sourceScore(sourceName string) int {
	name := strings.ToLower(strings.TrimSpace(sourceName))
	if weight, ok := s.rules.SourceWeights[name]; ok {
		if weight > sourceCap {
			return sourceCap
		}
		return weight
	}
	return s.rules.UnknownSourceWeight
}

// recencyScore rewards freshness measured between publication and fetch
// time, so scoring stays deterministic across re-runs of the same batch.
func (s *Scorer) recencyScore(publishedAt, fetchedAt time.Time) int {
	if publishedAt.IsZero() || fetchedAt.IsZero() {
		return 0
	}
	age := fetchedAt.Sub(publishedAt)
	switch {
	case age <= 6*time.Hour:
		return recencyCap
	case age <= 24*time.Hour:
		return 12
	case age <= 72*time.Hour:
		return 8
	case age <= 7*24*time.Hour:
		return 4
	default:
		return 0
	}
}

func (s *Scorer) hasUrgentSignal(text string) bool {
	for _, phrase := range s.rules.UrgentKeywords {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// resolveCategory picks the category whose keyword rules hit the text
// most often. Ties go to the earlier rule. Falls back to the adapter's
// category, then to general.
func (s *Scorer) resolveCategory(text, adapterCategory string) string {
	best := ""
	bestHits := 0
	for _, rule := range s.rules.categories {
		hits := 0
		for _, phrase := range rule.keywords {
			if strings.Contains(text, phrase) {
				hits++
			}
		}
		if hits > bestHits {
			best = rule.name
			bestHits = hits
		}
	}
	if best != "" {
		return best
	}
	if adapterCategory != "" {
		return strings.ToLower(strings.TrimSpace(adapterCategory))
	}
	return "general"
}

func priorityFor(score int, urgent bool) core.Priority {
	switch {
	case score >= 80 && urgent:
		return core.PriorityCritical
	case score >= 70:
		return core.PriorityHigh
	case score >= 45:
		return core.PriorityNormal
	default:
		return core.PriorityLow
	}
}

func buildReason(hits []string, keywordPoints int, sourceName string, sourcePoints, recencyPoints int) string {
	var parts []string
	if len(hits) > 0 {
		shown := hits
		if len(shown) > 4 {
			shown = shown[:4]
		}
		parts = append(parts, fmt.Sprintf("keywords %s (+%d)", strings.Join(shown, ", "), keywordPoints))
	} else {
		parts = append(parts, "no keyword signal")
	}
	source := strings.TrimSpace(sourceName)
	if source == "" {
		source = "unknown source"
	}
	parts = append(parts, fmt.Sprintf("source %s (+%d)", source, sourcePoints))
	parts = append(parts, fmt.Sprintf("recency +%d", recencyPoints))
	return strings.Join(parts, "; ")
}
