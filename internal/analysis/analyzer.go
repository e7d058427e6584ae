package analysis

import "context"

// KeyClause is one notable clause extracted from a document, with a short
// explanation in English and Bangla.
type KeyClause struct {
	Clause        string `json:"clause"`
	ExplanationEN string `json:"explanation_en"`
	ExplanationBN string `json:"explanation_bn"`
}

// DocumentSummary contains the extracted text and bilingual summary of a
// scanned terms-and-conditions document.
type DocumentSummary struct {
	FullText   string      `json:"full_text"`
	SummaryEN  string      `json:"summary_en"`
	SummaryBN  string      `json:"summary_bn"`
	KeyClauses []KeyClause `json:"key_clauses"`
}

// Page is one captured page of a document: raw encoded bytes plus the MIME
// type they were captured with.
type Page struct {
	ContentType string
	Data        []byte
}

// Analyzer defines the interface for document analysis operations
type Analyzer interface {
	// AnalyzeDocument reads one or more document pages and produces a
	// summary. At least one page is required.
	AnalyzeDocument(ctx context.Context, pages []Page) (*DocumentSummary, error)

	// NewChat opens a conversation grounded in previously extracted
	// document text. Answers come only from that text.
	NewChat(groundingText string) (Chat, error)

	// Close closes the analyzer and releases resources
	Close() error
}

// Chat is a single grounded conversation session.
type Chat interface {
	// Send submits one user message and streams the reply. onChunk, if
	// non-nil, is called with each incremental piece of text as it
	// arrives. The returned string is the complete reply.
	Send(ctx context.Context, message string, onChunk func(string)) (string, error)
}
