package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxKeyClauses is the most key clauses a summary may carry. Anything the
// model returns beyond this is dropped.
const MaxKeyClauses = 5

// ErrInvalidResponse indicates the model returned output that does not
// conform to the requested summary shape. The raw payload is logged for
// diagnostics but never shown to the user.
var ErrInvalidResponse = errors.New("invalid model response")

// parseSummaryJSON parses and validates the JSON response from the model.
// The request asks for schema-constrained JSON, but models still wrap
// output in markdown fences or prose often enough that we dig the object
// out ourselves before unmarshaling.
func parseSummaryJSON(text string) (*DocumentSummary, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("%w: unterminated JSON object", ErrInvalidResponse)
	}

	text = text[startIdx : endIdx+1]

	var summary DocumentSummary
	if err := json.Unmarshal([]byte(text), &summary); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	summary.FullText = strings.TrimSpace(summary.FullText)
	summary.SummaryEN = strings.TrimSpace(summary.SummaryEN)
	summary.SummaryBN = strings.TrimSpace(summary.SummaryBN)

	// Required fields are rejected when absent, not coerced.
	if summary.FullText == "" {
		return nil, fmt.Errorf("%w: missing full_text", ErrInvalidResponse)
	}
	if summary.SummaryEN == "" {
		return nil, fmt.Errorf("%w: missing summary_en", ErrInvalidResponse)
	}
	if summary.SummaryBN == "" {
		return nil, fmt.Errorf("%w: missing summary_bn", ErrInvalidResponse)
	}

	if summary.KeyClauses == nil {
		summary.KeyClauses = []KeyClause{}
	}
	if len(summary.KeyClauses) > MaxKeyClauses {
		summary.KeyClauses = summary.KeyClauses[:MaxKeyClauses]
	}
	for i, clause := range summary.KeyClauses {
		if strings.TrimSpace(clause.Clause) == "" {
			return nil, fmt.Errorf("%w: key clause %d has no title", ErrInvalidResponse, i)
		}
	}

	return &summary, nil
}
