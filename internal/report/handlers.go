package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/clausewise/clausewise/internal/analysis"
	"github.com/clausewise/clausewise/internal/capture"
)

// maxFormSize bounds uploads; high-resolution phone photos of documents
// run large.
const maxFormSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}

// handleGetSession returns the current scan session state
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Session())
}

// handleAddImage adds pending images, either as multipart file uploads or
// as a JSON data-URL camera capture
func (s *Server) handleAddImage(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		s.handleFileUpload(w, r)
		return
	}

	var req struct {
		Name    string `json:"name"`
		DataURL string `json:"data_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := s.service.AddCapture(req.Name, req.DataURL)
	if err != nil {
		slog.Error("Error adding capture", "error", err)
		jsonError(w, "Could not read the captured image. Please try again.", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, []capture.ImageRecord{record})
}

func isMultipart(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return len(contentType) >= 19 && contentType[:19] == "multipart/form-data"
}

// handleFileUpload adds every file in the multipart form as an
// independent pending image
func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}

	records := make([]capture.ImageRecord, 0, len(files))
	for _, header := range files {
		if header.Size > maxFormSize {
			jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
			return
		}

		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "filename", header.Filename, "error", err)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading file data", "filename", header.Filename, "error", err)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}

		record, err := s.service.AddUpload(header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			slog.Error("Error adding upload", "filename", header.Filename, "error", err)
			jsonError(w, fmt.Sprintf("Could not add %q: unsupported or unreadable file.", header.Filename), http.StatusBadRequest)
			return
		}
		records = append(records, record)
	}

	writeJSON(w, http.StatusCreated, records)
}

// handleRemoveImage drops one pending image
func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, "Image ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.RemoveImage(id); err != nil {
		slog.Error("Error removing image", "id", id, "error", err)
		jsonError(w, "Error removing image", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSummarize runs the analyzer over all pending images
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summarize(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrScanBusy):
			jsonError(w, "A summary is already being generated.", http.StatusConflict)
		case errors.Is(err, ErrNoImages):
			jsonError(w, "Add at least one page before summarizing.", http.StatusBadRequest)
		default:
			// Malformed model output and transport failures alike get
			// the generic retry message; detail is already logged.
			jsonError(w, summaryFailureMessage, http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleSaveReport persists the current summary as a report
func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil {
		// Title is optional; an empty body means the default title.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Title != "" {
		s.service.SetTitle(req.Title)
	}

	report, err := s.service.SaveCurrent()
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSummary):
			jsonError(w, "Nothing to save yet. Summarize a document first.", http.StatusBadRequest)
		case errors.Is(err, ErrReportExists):
			jsonError(w, "This report is already saved.", http.StatusConflict)
		default:
			slog.Error("Error saving report", "error", err)
			jsonError(w, "Error saving report", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// handleResetSession starts a new scan
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s.service.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// handleListReports returns all saved reports, newest first
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports()
	if err != nil {
		slog.Error("Error listing reports", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// handleGetReport returns a single saved report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GetReport(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Report not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleRenameReport updates a report's title
func (s *Server) handleRenameReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := s.service.RenameReport(r.PathValue("id"), req.Title)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			jsonError(w, "Report not found", http.StatusNotFound)
			return
		}
		jsonError(w, "Error renaming report", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleDeleteReport deletes a report; deleting an unknown ID succeeds
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReport(r.PathValue("id")); err != nil {
		slog.Error("Error deleting report", "error", err)
		jsonError(w, "Error deleting report", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetReportImage returns one stored page image of a report
func (s *Server) handleGetReportImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReportImage(r.PathValue("id"), r.PathValue("imageID"))
	if err != nil {
		jsonError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleChat streams a grounded chat reply as server-sent events:
// "chunk" events while text arrives, then one "done" event with the full
// answer, or one "error" event carrying the fixed failure message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		jsonError(w, "Message required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	streaming := false
	writeEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
		streaming = true
	}

	answer, err := s.service.Chat(r.Context(), r.PathValue("id"), req.Message, func(chunk string) {
		writeEvent("chunk", map[string]string{"text": chunk})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrChatBusy) && !streaming:
			jsonError(w, "An answer is already on its way.", http.StatusConflict)
		case errors.Is(err, ErrReportNotFound) && !streaming:
			jsonError(w, "Report not found", http.StatusNotFound)
		default:
			slog.Error("Chat exchange failed", "report", r.PathValue("id"), "error", err)
			writeEvent("error", map[string]string{"text": analysis.ChatFailureMessage})
		}
		return
	}

	writeEvent("done", map[string]string{"text": answer})
}
