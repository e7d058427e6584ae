package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clausewise/clausewise/internal/analysis"
	"github.com/clausewise/clausewise/internal/capture"
)

// summaryFailureMessage is what the scanner view shows when analysis
// fails. The underlying cause goes to the logs, not the user.
const summaryFailureMessage = "Couldn't read that document. Please try again."

// ScanSession is the transient state of the scanner view: pending page
// images, the in-progress or completed summary, a draft title, and the
// last user-facing error.
type ScanSession struct {
	Images      []capture.ImageRecord     `json:"images"`
	Summary     *analysis.DocumentSummary `json:"summary,omitempty"`
	Title       string                    `json:"title"`
	Error       string                    `json:"error,omitempty"`
	Summarizing bool                      `json:"summarizing"`
}

// Session returns a snapshot of the current scan session
func (s *Service) Session() ScanSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.session
	snapshot.Images = make([]capture.ImageRecord, len(s.session.Images))
	copy(snapshot.Images, s.session.Images)
	return snapshot
}

// AddUpload adds an uploaded file to the pending set
func (s *Service) AddUpload(filename, contentType string, data []byte) (capture.ImageRecord, error) {
	record, err := s.adapter.FromUpload(filename, contentType, data)
	if err != nil {
		return capture.ImageRecord{}, fmt.Errorf("capturing upload: %w", err)
	}
	return s.addImage(record, data)
}

// AddCapture adds a camera frame, delivered as a data URL, to the
// pending set
func (s *Service) AddCapture(name, dataURL string) (capture.ImageRecord, error) {
	record, data, err := s.adapter.FromDataURL(name, dataURL)
	if err != nil {
		return capture.ImageRecord{}, fmt.Errorf("capturing frame: %w", err)
	}
	return s.addImage(record, data)
}

func (s *Service) addImage(record capture.ImageRecord, data []byte) (capture.ImageRecord, error) {
	savedPath, err := s.storage.Save(record.Filename, data)
	if err != nil {
		return capture.ImageRecord{}, fmt.Errorf("saving image: %w", err)
	}
	record.Filename = savedPath

	s.mu.Lock()
	s.session.Images = append(s.session.Images, record)
	s.mu.Unlock()

	return record, nil
}

// RemoveImage drops one pending image and its stored file. Removing an
// unknown ID is a no-op.
func (s *Service) RemoveImage(id string) error {
	s.mu.Lock()
	var removed *capture.ImageRecord
	for i, img := range s.session.Images {
		if img.ID == id {
			removed = &img
			s.session.Images = append(s.session.Images[:i], s.session.Images[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if removed == nil {
		return nil
	}
	if err := s.storage.Delete(removed.Filename); err != nil {
		return fmt.Errorf("deleting image file: %w", err)
	}
	return nil
}

// SetTitle records the draft title for the report about to be saved
func (s *Service) SetTitle(title string) {
	s.mu.Lock()
	s.session.Title = strings.TrimSpace(title)
	s.mu.Unlock()
}

// Reset starts a new scan: pending images, summary, error, and draft
// title are all cleared. The report store is never touched.
func (s *Service) Reset() {
	s.mu.Lock()
	images := s.session.Images
	s.session = ScanSession{Images: []capture.ImageRecord{}}
	s.mu.Unlock()

	for _, img := range images {
		if err := s.storage.Delete(img.Filename); err != nil {
			slog.Warn("Failed to delete pending image", "filename", img.Filename, "error", err)
		}
	}
}

// Summarize sends every pending image to the analyzer in one request and
// records the result on the session. Only one summarization may be in
// flight; on failure the pending images are left untouched so the user
// can retry.
func (s *Service) Summarize(ctx context.Context) (*analysis.DocumentSummary, error) {
	s.mu.Lock()
	if s.session.Summarizing {
		s.mu.Unlock()
		return nil, ErrScanBusy
	}
	if len(s.session.Images) == 0 {
		s.mu.Unlock()
		return nil, ErrNoImages
	}
	records := make([]capture.ImageRecord, len(s.session.Images))
	copy(records, s.session.Images)
	s.session.Summarizing = true
	s.session.Error = ""
	s.mu.Unlock()

	summary, err := s.runAnalysis(ctx, records)

	s.mu.Lock()
	s.session.Summarizing = false
	if err != nil {
		s.session.Error = summaryFailureMessage
	} else {
		s.session.Summary = summary
	}
	s.mu.Unlock()

	if err != nil {
		slog.Error("Failed to summarize document", "images", len(records), "error", err)
		return nil, err
	}
	return summary, nil
}

func (s *Service) runAnalysis(ctx context.Context, records []capture.ImageRecord) (*analysis.DocumentSummary, error) {
	pages := make([]analysis.Page, 0, len(records))
	for _, record := range records {
		data, err := s.storage.Get(record.Filename)
		if err != nil {
			return nil, fmt.Errorf("reading image %s: %w", record.ID, err)
		}
		pages = append(pages, analysis.Page{ContentType: record.ContentType, Data: data})
	}
	return s.analyzer.AnalyzeDocument(ctx, pages)
}

// SaveCurrent persists the session's summary as a report and resets the
// session. The pending image files are kept; they now belong to the
// saved report.
func (s *Service) SaveCurrent() (*SummaryReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Summary == nil {
		return nil, ErrNoSummary
	}

	now := s.timeSource.Now()
	title := s.session.Title
	if title == "" {
		title = "Scanned Document " + now.Format("2006-01-02")
	}

	summary := s.session.Summary
	clauses := make([]KeyClause, 0, len(summary.KeyClauses))
	for _, c := range summary.KeyClauses {
		clauses = append(clauses, KeyClause{
			Title:         c.Clause,
			ExplanationEN: c.ExplanationEN,
			ExplanationBN: c.ExplanationBN,
		})
	}

	report := &SummaryReport{
		ID:         s.idGenerator.Generate(),
		Title:      title,
		CreatedAt:  now,
		FullText:   summary.FullText,
		SummaryEN:  summary.SummaryEN,
		SummaryBN:  summary.SummaryBN,
		KeyClauses: clauses,
		Images:     s.session.Images,
	}

	if err := s.db.SaveReport(report); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	s.session = ScanSession{Images: []capture.ImageRecord{}}
	return report, nil
}
