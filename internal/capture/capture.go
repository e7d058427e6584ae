package capture

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageRecord is one captured document page awaiting analysis. The image
// bytes themselves live in file storage under Filename.
type ImageRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Filename    string    `json:"filename"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// IDGenerator generates unique IDs for image records
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

// Adapter turns uploaded files and camera frames into image records.
type Adapter struct {
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewAdapter creates an Adapter with default ID generator and time source
func NewAdapter() *Adapter {
	return &Adapter{
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewAdapterWithDeps creates an Adapter with custom dependencies for testing
func NewAdapterWithDeps(idGen IDGenerator, timeSrc TimeSource) *Adapter {
	return &Adapter{
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// FromUpload builds an image record for an uploaded file. The media type
// must be determinable from the given content type or the file extension.
func (a *Adapter) FromUpload(filename, contentType string, data []byte) (ImageRecord, error) {
	if len(data) == 0 {
		return ImageRecord{}, fmt.Errorf("file is empty")
	}

	mediaType, err := resolveMediaType(filename, contentType)
	if err != nil {
		return ImageRecord{}, err
	}

	id := a.idGenerator.Generate()
	name := sanitizeFilename(filename)

	return ImageRecord{
		ID:          id,
		Name:        name,
		ContentType: mediaType,
		Filename:    fmt.Sprintf("%s_%s", id, name),
		Size:        len(data),
		CreatedAt:   a.timeSource.Now(),
	}, nil
}

// FromDataURL builds an image record from a base64 data URL, the form
// camera captures arrive in from the browser canvas. An empty name gets a
// synthesized capture name. Returns the record plus the decoded bytes.
func (a *Adapter) FromDataURL(name, dataURL string) (ImageRecord, []byte, error) {
	mediaType, data, err := decodeDataURL(dataURL)
	if err != nil {
		return ImageRecord{}, nil, err
	}

	now := a.timeSource.Now()
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("capture-%s.png", now.Format("20060102-150405"))
	}

	id := a.idGenerator.Generate()
	name = sanitizeFilename(name)

	return ImageRecord{
		ID:          id,
		Name:        name,
		ContentType: mediaType,
		Filename:    fmt.Sprintf("%s_%s", id, name),
		Size:        len(data),
		CreatedAt:   now,
	}, data, nil
}

// resolveMediaType determines the media type from an explicit content type
// or the filename extension. Records without a determinable type are
// rejected rather than passed through as octet-stream.
func resolveMediaType(filename, contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".gif":
		return "image/gif", nil
	case ".pdf":
		return "application/pdf", nil
	case ".heic":
		return "image/heic", nil
	case ".heif":
		return "image/heif", nil
	default:
		return "", fmt.Errorf("cannot determine media type for %q", filename)
	}
}

// decodeDataURL splits a "data:<mime>;base64,<payload>" URL into its media
// type and decoded bytes.
func decodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}

	header, payload, found := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !found {
		return "", nil, fmt.Errorf("malformed data URL")
	}

	mediaType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return "", nil, fmt.Errorf("data URL has no media type")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URL payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("data URL payload is empty")
	}

	return mediaType, data, nil
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "page"
	}

	return base + ext
}
