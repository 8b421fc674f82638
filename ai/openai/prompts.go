package openai

import (
	"fmt"
	"strings"

	"github.com/coverwire/curator/ai"
)

const validationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "approved": {
      "type": "boolean"
    },
    "category": {
      "type": "string"
    },
    "priority": {
      "type": "string",
      "enum": ["low", "normal", "high", "critical"]
    },
    "notes": {
      "type": "string"
    }
  },
  "required": ["approved"],
  "additionalProperties": false
}`

const validationPromptTemplate = `You review candidate items for a regulatory and compliance news monitor.
Decide whether the candidate below deserves a full article. The heuristic scorer already
ranked it as borderline, so judge substance, not style: is this a real regulatory or
industry development our compliance readers must know about?

Output ONLY valid JSON which complies with the schema given below. Do not include any
preamble, explanation, greeting, or acknowledgment. Start your response directly with the
opening brace { and end with the closing brace }. Your output must exactly follow this schema:

%s

Rules:
- "approved" is true only when the item reports a concrete development: new rules,
  enforcement, consultations, deadlines, guidance, or market-moving supervision news.
- Reject advertisements, opinion pieces, event promotions, recycled summaries, and
  anything without a regulatory angle.
- "category", when present, must be exactly one of: %s. Omit it to keep the current category.
- "priority", when present, must be one of "low", "normal", "high", "critical". Omit it to
  keep the current priority.
- "notes" is one short sentence explaining the decision.
- The JSON must parse without errors; no trailing commas, no extra keys, and no text
  outside the object.

Example:
Input: {"title":"FCA fines payment firm over AML failings","summary":"The FCA issued a final notice...","category":"payments","score":58,"reason":"keyword match: fine, AML"}
Output:
{"approved":true,"category":"aml","priority":"high","notes":"Concrete enforcement action with AML relevance."}

Example:
Input: {"title":"Webinar: the future of RegTech","summary":"Join our panel...","category":"general","score":52,"reason":"keyword match: regtech"}
Output:
{"approved":false,"notes":"Event promotion, not a regulatory development."}`

const draftResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "headline": {
      "type": "string"
    },
    "body": {
      "type": "string"
    },
    "tags": {
      "type": "array",
      "items": {
        "type": "string",
        "pattern": "^[a-z]+(-[a-z]+)*$"
      },
      "maxItems": 5
    }
  },
  "required": ["headline", "body"],
  "additionalProperties": false
}`

const draftPromptTemplate = `You write concise briefing articles for a regulatory and compliance news monitor.
Draft an article for the candidate below. The readers are compliance officers who need the
facts, the affected parties, the deadlines, and what to do next.

Output ONLY valid JSON which complies with the schema given below. Do not include any
preamble, explanation, greeting, or acknowledgment. Start your response directly with the
opening brace { and end with the closing brace }. Your output must exactly follow this schema:

%s

Rules:
- "headline" is a single factual sentence, no clickbait, at most 120 characters.
- "body" is markdown: an opening paragraph with the core development, then sections for
  background, impact, and required actions where the source material supports them.
- Stick strictly to the provided title and summary. Do not invent figures, dates, quotes,
  or citations that are not implied by the input.
- Attribute the development to the named source.
- "tags" are up to five lowercase topic labels (hyphenated-words allowed).
- The JSON must parse without errors; no trailing commas, no extra keys, and no text
  outside the object.`

// buildValidationPrompt returns the system prompt for candidate validation.
func buildValidationPrompt() string {
	return fmt.Sprintf(validationPromptTemplate, validationResponseSchema, strings.Join(ai.Categories, ", "))
}

// buildDraftPrompt returns the system prompt for article drafting.
func buildDraftPrompt() string {
	return fmt.Sprintf(draftPromptTemplate, draftResponseSchema)
}
