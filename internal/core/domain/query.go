package domain

// Query is the immutable per-request view of a user question. It is built once
// by the answer pipeline and never mutated afterwards.
type Query struct {
	Raw        string
	Normalized string
	Language   string
	ScopeID    string
	TopK       int
}

// SearchFilter restricts retrieval to one uploaded document. An empty
// DocumentID means the whole corpus.
type SearchFilter struct {
	DocumentID string
}
