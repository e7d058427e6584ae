package report

import (
	"errors"
	"time"

	"github.com/clausewise/clausewise/internal/capture"
)

var (
	// ErrReportExists is returned when saving a report whose ID is
	// already in the store. The store is left unchanged.
	ErrReportExists = errors.New("report already exists")

	// ErrReportNotFound is returned when a report ID is not in the store.
	ErrReportNotFound = errors.New("report not found")

	// ErrNoImages is returned when summarization is requested with an
	// empty pending set.
	ErrNoImages = errors.New("no images to summarize")

	// ErrNoSummary is returned when saving is requested before a
	// summarization has completed.
	ErrNoSummary = errors.New("no summary to save")

	// ErrScanBusy is returned when a summarization is requested while
	// another one is still in flight.
	ErrScanBusy = errors.New("summarization already in progress")

	// ErrChatBusy is returned when a chat message is sent while a prior
	// exchange is still in flight.
	ErrChatBusy = errors.New("chat exchange already in progress")
)

// KeyClause is one notable clause of a saved report, explained in English
// and Bangla.
type KeyClause struct {
	Title         string `json:"title"`
	ExplanationEN string `json:"explanation_en"`
	ExplanationBN string `json:"explanation_bn"`
}

// SummaryReport is a saved summarization result for one scanned document.
// Title is the one user-editable field.
type SummaryReport struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	CreatedAt  time.Time             `json:"created_at"`
	FullText   string                `json:"full_text"`
	SummaryEN  string                `json:"summary_en"`
	SummaryBN  string                `json:"summary_bn"`
	KeyClauses []KeyClause           `json:"key_clauses"`
	Images     []capture.ImageRecord `json:"images,omitempty"`
}
