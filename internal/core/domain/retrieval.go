package domain

// ScoreKind declares how a vector store reports raw relevance so the retrieval
// engine knows which normalization to apply.
type ScoreKind string

const (
	// ScoreSimilarity means raw scores are already in [0,1], higher is better.
	ScoreSimilarity ScoreKind = "similarity"
	// ScoreDistance means raw scores are unbounded distances, lower is better.
	ScoreDistance ScoreKind = "distance"
)

// Provenance records which retrieval path produced a candidate.
type Provenance string

const (
	ProvenanceVector   Provenance = "vector"
	ProvenanceFallback Provenance = "fallback"
)

// Passage is one indexed fragment of an uploaded document. Passages are
// created at ingestion time and read-only afterwards.
type Passage struct {
	SourceID   string `json:"source_id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
	PageNumber int    `json:"page_number,omitempty"`
	Section    string `json:"section,omitempty"`
}

// ScoredCandidate is a passage with its normalized relevance for one query.
type ScoredCandidate struct {
	Passage    Passage    `json:"passage"`
	Score      float64    `json:"score"`
	Adjustment float64    `json:"adjustment"`
	Provenance Provenance `json:"provenance"`
}

// Effective is the rank key: normalized score plus intent adjustment.
func (c ScoredCandidate) Effective() float64 {
	return c.Score + c.Adjustment
}

// RankedResult is an ordered candidate list, non-increasing by Effective().
type RankedResult []ScoredCandidate

func (r RankedResult) Empty() bool {
	return len(r) == 0
}

// AssembledContext is the budget-respecting prefix of a ranked result,
// serialized into a prompt-ready string.
type AssembledContext struct {
	Prompt   string            `json:"prompt"`
	Retained []ScoredCandidate `json:"retained"`
}

// Citation is the short evidence span shown for each retained passage.
type Citation struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
	PageNumber int     `json:"page_number,omitempty"`
}

// Outcome is the grounding policy decision for one query.
type Outcome string

const (
	OutcomeNoContext   Outcome = "no_context"
	OutcomeOutOfCorpus Outcome = "out_of_corpus"
	OutcomeGrounded    Outcome = "grounded"
)

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the final per-request result. Constructed once, never mutated.
type Answer struct {
	ID        string     `json:"answer_id"`
	Text      string     `json:"answer"`
	Outcome   Outcome    `json:"outcome"`
	Citations []Citation `json:"citations"`
	Usage     TokenUsage `json:"usage"`
	LatencyMS float64    `json:"latency_ms"`
}
