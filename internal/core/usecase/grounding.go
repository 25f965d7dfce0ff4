package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// GroundingDecision is one terminal policy outcome. For non-grounded
// outcomes Message is the fixed user-facing answer text; the generative
// model is never invoked.
type GroundingDecision struct {
	Outcome domain.Outcome
	Message string
}

type groundingRule struct {
	name    string
	applies func(query domain.Query, ranked domain.RankedResult) bool
	decide  func(query domain.Query) GroundingDecision
}

// GroundingPolicy enforces the strict-RAG guarantee: no model call without
// in-corpus evidence, and likely-trivia questions are flagged even when a
// weak keyword overlap exists. Rules are evaluated in fixed order; the
// no-context rule must run first since an empty candidate set cannot be
// inspected for keyword overlap.
type GroundingPolicy struct {
	rules []groundingRule
}

func NewGroundingPolicy(generalKnowledgeTriggers []string) *GroundingPolicy {
	triggers := make([]string, 0, len(generalKnowledgeTriggers))
	for _, trigger := range generalKnowledgeTriggers {
		trigger = strings.ToLower(strings.TrimSpace(trigger))
		if trigger != "" {
			triggers = append(triggers, trigger)
		}
	}

	return &GroundingPolicy{
		rules: []groundingRule{
			{
				name: "no_context",
				applies: func(_ domain.Query, ranked domain.RankedResult) bool {
					return ranked.Empty()
				},
				decide: func(query domain.Query) GroundingDecision {
					return GroundingDecision{
						Outcome: domain.OutcomeNoContext,
						Message: fmt.Sprintf(
							"I couldn't find any relevant information about %q in the uploaded documents. Please try a different question or check that the relevant document has been uploaded.",
							query.Raw,
						),
					}
				},
			},
			{
				name: "out_of_corpus",
				applies: func(query domain.Query, ranked domain.RankedResult) bool {
					return matchesAnyTrigger(query.Normalized, triggers) &&
						!passagesMentionQuery(query.Normalized, ranked)
				},
				decide: func(query domain.Query) GroundingDecision {
					return GroundingDecision{
						Outcome: domain.OutcomeOutOfCorpus,
						Message: fmt.Sprintf(
							"I couldn't find specific information about %q in the uploaded documents. This looks like a general knowledge question, but I can only answer from the content of your documents.",
							query.Raw,
						),
					}
				},
			},
		},
	}
}

func (p *GroundingPolicy) Decide(query domain.Query, ranked domain.RankedResult) GroundingDecision {
	for _, rule := range p.rules {
		if rule.applies(query, ranked) {
			return rule.decide(query)
		}
	}
	return GroundingDecision{Outcome: domain.OutcomeGrounded}
}

func matchesAnyTrigger(query string, triggers []string) bool {
	queryLower := strings.ToLower(query)
	for _, trigger := range triggers {
		if strings.Contains(queryLower, trigger) {
			return true
		}
	}
	return false
}

// passagesMentionQuery reports whether any significant query word occurs in
// the concatenated retrieved passage text.
func passagesMentionQuery(query string, ranked domain.RankedResult) bool {
	words := significantWords(query)
	if len(words) == 0 {
		return false
	}

	var joined strings.Builder
	for _, candidate := range ranked {
		joined.WriteString(strings.ToLower(candidate.Passage.Text))
		joined.WriteByte(' ')
	}
	haystack := joined.String()

	for _, word := range words {
		if strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

var groundingStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"what": {}, "who": {}, "how": {}, "why": {}, "when": {}, "where": {},
	"define": {}, "explain": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"for": {}, "and": {}, "or": {}, "do": {}, "does": {}, "me": {}, "my": {},
}

func significantWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, "?!.,;:\"'")
		if len(field) < 3 {
			continue
		}
		if _, stop := groundingStopwords[field]; stop {
			continue
		}
		out = append(out, field)
	}
	return out
}
