package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
)

// LoadHeuristics reads the retrieval rules file (typo fixes, intent rules,
// general-knowledge triggers). An empty path returns the built-in defaults.
func LoadHeuristics(path string) (domain.Heuristics, error) {
	if path == "" {
		return domain.DefaultHeuristics(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Heuristics{}, fmt.Errorf("read rules file: %w", err)
	}

	var rules domain.Heuristics
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return domain.Heuristics{}, fmt.Errorf("parse rules file: %w", err)
	}

	defaults := domain.DefaultHeuristics()
	if len(rules.NormalizerFixes) == 0 {
		rules.NormalizerFixes = defaults.NormalizerFixes
	}
	if len(rules.IntentRules) == 0 {
		rules.IntentRules = defaults.IntentRules
	}
	if len(rules.GeneralKnowledgeTriggers) == 0 {
		rules.GeneralKnowledgeTriggers = defaults.GeneralKnowledgeTriggers
	}
	return rules, nil
}
