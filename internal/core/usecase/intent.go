package usecase

import (
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// applyIntentAdjustment corrects retrieval models conflating near-synonymous
// sections. For every rule whose keyword appears in the query, candidates
// mentioning the keyword get the bonus and candidates mentioning the rival
// concept get the penalty. Deltas accumulate in Adjustment; Score itself is
// never rewritten.
func applyIntentAdjustment(query string, candidates domain.RankedResult, rules []domain.IntentRule) {
	if len(candidates) == 0 || len(rules) == 0 {
		return
	}

	queryLower := strings.ToLower(query)
	for _, rule := range rules {
		if rule.Keyword == "" || !strings.Contains(queryLower, rule.Keyword) {
			continue
		}
		for i := range candidates {
			haystack := strings.ToLower(candidates[i].Passage.Text + " " + candidates[i].Passage.Section)
			if strings.Contains(haystack, rule.Keyword) {
				candidates[i].Adjustment += rule.Bonus
			}
			if rule.Rival != "" && strings.Contains(haystack, rule.Rival) {
				candidates[i].Adjustment += rule.Penalty
			}
		}
	}
}
