package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clausewise/clausewise/internal/analysis"
	"github.com/clausewise/clausewise/internal/capture"
)

// IDGenerator generates unique IDs for reports
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service owns the scan session, the report store, and the active chat.
// All session state lives behind its mutex; handlers never mutate it
// directly.
type Service struct {
	db          DB
	analyzer    analysis.Analyzer
	storage     Storage
	adapter     *capture.Adapter
	idGenerator IDGenerator
	timeSource  TimeSource

	mu      sync.Mutex
	session ScanSession

	chatMu       sync.Mutex
	chat         analysis.Chat
	chatReportID string
	chatInFlight bool
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, analyzer analysis.Analyzer, storage Storage) *Service {
	return NewServiceWithDeps(db, analyzer, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, analyzer analysis.Analyzer, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		analyzer:    analyzer,
		storage:     storage,
		adapter:     capture.NewAdapterWithDeps(idGen, timeSrc),
		idGenerator: idGen,
		timeSource:  timeSrc,
		session:     ScanSession{Images: []capture.ImageRecord{}},
	}
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(id string) (*SummaryReport, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return report, nil
}

// ListReports returns all saved reports, newest first
func (s *Service) ListReports() ([]*SummaryReport, error) {
	reports, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

// DeleteReport removes a report and its stored images. Deleting an ID
// that is not in the store is a no-op.
func (s *Service) DeleteReport(id string) error {
	report, err := s.db.GetReport(id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return nil
		}
		return fmt.Errorf("getting report for deletion: %w", err)
	}

	for _, img := range report.Images {
		if err := s.storage.Delete(img.Filename); err != nil {
			slog.Warn("Failed to delete report image", "filename", img.Filename, "error", err)
		}
	}

	if err := s.db.DeleteReport(id); err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}

	// A deleted report's chat has nothing to ground against anymore.
	s.chatMu.Lock()
	if s.chatReportID == id {
		s.chat = nil
		s.chatReportID = ""
	}
	s.chatMu.Unlock()

	return nil
}

// RenameReport updates a report's title, the one mutable field
func (s *Service) RenameReport(id, title string) (*SummaryReport, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report for rename: %w", err)
	}

	report.Title = title
	if err := s.db.UpdateReport(report); err != nil {
		return nil, fmt.Errorf("updating report: %w", err)
	}
	return report, nil
}

// GetReportImage retrieves one stored page image of a saved report
func (s *Service) GetReportImage(reportID, imageID string) ([]byte, string, error) {
	report, err := s.db.GetReport(reportID)
	if err != nil {
		return nil, "", fmt.Errorf("getting report: %w", err)
	}

	for _, img := range report.Images {
		if img.ID != imageID {
			continue
		}
		data, err := s.storage.Get(img.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("getting report image: %w", err)
		}
		return data, img.ContentType, nil
	}

	return nil, "", fmt.Errorf("image %s not found in report %s", imageID, reportID)
}

// Chat sends one user message grounded in the given report's extracted
// text and streams the reply through onChunk. The first message for a
// report opens a fresh session; asking about a different report discards
// the old session and its history. Only one exchange may be in flight.
func (s *Service) Chat(ctx context.Context, reportID, message string, onChunk func(string)) (string, error) {
	s.chatMu.Lock()
	if s.chatInFlight {
		s.chatMu.Unlock()
		return "", ErrChatBusy
	}

	if s.chat == nil || s.chatReportID != reportID {
		report, err := s.db.GetReport(reportID)
		if err != nil {
			s.chatMu.Unlock()
			return "", fmt.Errorf("getting report for chat: %w", err)
		}
		chat, err := s.analyzer.NewChat(report.FullText)
		if err != nil {
			s.chatMu.Unlock()
			return "", fmt.Errorf("opening chat: %w", err)
		}
		s.chat = chat
		s.chatReportID = reportID
	}

	chat := s.chat
	s.chatInFlight = true
	s.chatMu.Unlock()

	defer func() {
		s.chatMu.Lock()
		s.chatInFlight = false
		s.chatMu.Unlock()
	}()

	answer, err := chat.Send(ctx, message, onChunk)
	if err != nil {
		// The session stays alive; the next message is a clean turn.
		return "", fmt.Errorf("sending chat message: %w", err)
	}
	return answer, nil
}
