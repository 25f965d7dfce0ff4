package domain

// ExtractedText is the extractor output for one document: the concatenated
// text plus per-page slices so passages can be mapped back to page numbers.
type ExtractedText struct {
	Full  string
	Pages []PageText
}

type PageText struct {
	Number int
	Text   string
}

// TextChunk is a splitter output fragment with its position range in the
// full extracted text.
type TextChunk struct {
	Text     string
	StartPos int
	EndPos   int
}

// CompletionRequest is the input contract of the generative model.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type CompletionResult struct {
	Text  string
	Usage TokenUsage
}
