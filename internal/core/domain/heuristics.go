package domain

// Heuristics is the data-driven configuration for the query-side rule tables:
// normalizer fixes, intent disambiguation and general-knowledge detection.
// The built-in defaults are intentionally small; deployments extend them via
// a YAML rules file.
type Heuristics struct {
	NormalizerFixes          []NormalizerFix `yaml:"normalizer_fixes"`
	IntentRules              []IntentRule    `yaml:"intent_rules"`
	GeneralKnowledgeTriggers []string        `yaml:"general_knowledge_triggers"`
}

// NormalizerFix is one ordered case-insensitive pattern -> replacement entry.
// Pattern is a regular expression; replacements must be fixed strings so the
// table stays idempotent.
type NormalizerFix struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// IntentRule corrects retrieval confusion between two competing concepts.
// When the query mentions Keyword, passages mentioning Keyword get Bonus and
// passages mentioning Rival get Penalty (a negative delta). Rules are
// declared one-directionally; symmetric pairs are two entries.
type IntentRule struct {
	Keyword string  `yaml:"keyword"`
	Rival   string  `yaml:"rival"`
	Bonus   float64 `yaml:"bonus"`
	Penalty float64 `yaml:"penalty"`
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		NormalizerFixes: []NormalizerFix{
			{Pattern: `\bintenship\b`, Replacement: "internship"},
			{Pattern: `\bintership\b`, Replacement: "internship"},
			{Pattern: `\bproj(?:ect)?s\b`, Replacement: "project"},
		},
		IntentRules: []IntentRule{
			{Keyword: "project", Rival: "internship", Bonus: 0.2, Penalty: -0.1},
			{Keyword: "internship", Rival: "project", Bonus: 0.2, Penalty: -0.1},
		},
		GeneralKnowledgeTriggers: []string{
			"what is", "define", "explain", "how to cook", "capital of",
			"general knowledge", "common knowledge", "everyone knows",
		},
	}
}
