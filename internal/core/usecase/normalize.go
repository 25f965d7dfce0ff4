package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

type normalizerFix struct {
	pattern     *regexp.Regexp
	replacement string
}

// Normalizer canonicalizes free-text queries before retrieval and cache
// keying, so near-duplicate phrasings collapse to one form. The fix table is
// ordered and every replacement is a fixed string, which keeps Normalize
// idempotent.
type Normalizer struct {
	fixes []normalizerFix
}

func NewNormalizer(rules []domain.NormalizerFix) *Normalizer {
	fixes := make([]normalizerFix, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			continue
		}
		fixes = append(fixes, normalizerFix{pattern: re, replacement: rule.Replacement})
	}
	return &Normalizer{fixes: fixes}
}

func (n *Normalizer) Normalize(raw string) string {
	out := strings.TrimSpace(raw)
	for _, fix := range n.fixes {
		out = fix.pattern.ReplaceAllString(out, fix.replacement)
	}
	return out
}
