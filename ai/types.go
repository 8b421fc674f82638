package ai

// ValidationRequest carries the candidate fields the validator sees.
type ValidationRequest struct {
	// Title is the candidate headline.
	Title string

	// Summary is the candidate's short description, possibly empty.
	Summary string

	// Category is the category assigned by the heuristic scorer.
	Category string

	// Score is the heuristic relevance score (0-100).
	Score int

	// Reason is the scorer's human-readable justification.
	Reason string
}

// ValidationResult is the validator's verdict on a candidate.
type ValidationResult struct {
	// Approved reports whether the candidate should proceed to enrichment.
	Approved bool

	// Category optionally overrides the scorer's category. Empty keeps it.
	Category string

	// Priority optionally overrides the scorer's priority. Empty keeps it.
	// Must be one of Priorities when set.
	Priority string

	// Notes is the provider's free-text reasoning, kept for the audit trail.
	Notes string
}

// WriteRequest carries the candidate fields the writer drafts from.
type WriteRequest struct {
	Title      string
	Summary    string
	Category   string
	SourceName string
	SourceURL  string
}

// Draft is the writer's long-form output for a candidate.
type Draft struct {
	// Headline is the final article title.
	Headline string

	// Body is the article content in markdown.
	Body string

	// Tags are short topical labels, lowercase, at most five.
	Tags []string
}

// Categories defines the valid content categories for candidates.
// Validators may only override a category to one of these values.
var Categories = []string{
	"aml",
	"banking",
	"consumer-protection",
	"data-privacy",
	"esg",
	"general",
	"insurance",
	"market-infrastructure",
	"payments",
	"prudential",
	"reporting",
	"sanctions",
	"securities",
	"tax",
}

// Priorities defines the valid priority labels, least to most urgent.
var Priorities = []string{
	"low",
	"normal",
	"high",
	"critical",
}

// ValidCategory reports whether name is one of the known categories.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// ValidPriority reports whether name is one of the known priority labels.
func ValidPriority(name string) bool {
	for _, p := range Priorities {
		if p == name {
			return true
		}
	}
	return false
}
