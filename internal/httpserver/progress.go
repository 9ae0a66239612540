package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/asmrbible/backend/internal/bible"
	"github.com/asmrbible/backend/internal/tracking"
)

type progressRequest struct {
	BookID        string  `json:"bookId"`
	ChapterID     int     `json:"chapterId"`
	VerseID       *int    `json:"verseId,omitempty"`
	Voice         string  `json:"voice"`
	CurrentTime   float64 `json:"currentTime"`
	TotalDuration float64 `json:"totalDuration"`
}

func (req *progressRequest) validate() error {
	if req.BookID == "" {
		return NewValidationError("bookId is required")
	}
	if req.ChapterID < 1 {
		return NewValidationError("chapterId must be positive")
	}
	if req.Voice == "" {
		return NewValidationError("voice is required")
	}
	if !bible.IsValidVoice(req.Voice) {
		return NewValidationError("Invalid voice")
	}
	return nil
}

func (req *progressRequest) key() tracking.ProgressKey {
	return tracking.ProgressKey{
		BookID:    req.BookID,
		ChapterID: req.ChapterID,
		VerseID:   req.VerseID,
		Voice:     req.Voice,
	}
}

// decodeProgressRequest reads and validates the shared progress body.
func (s *Server) decodeProgressRequest(w http.ResponseWriter, r *http.Request) (*progressRequest, bool) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := req.validate(); err != nil {
		s.handleError(w, err)
		return nil, false
	}
	return &req, true
}

// HandleRecordPlayback folds one playback snapshot into the record.
func (s *Server) HandleRecordPlayback(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProgressRequest(w, r)
	if !ok {
		return
	}

	claims := userClaims(r.Context())
	rec, err := s.tracker.RecordPlayback(r.Context(), claims.UserID, req.key(), req.CurrentTime, req.TotalDuration)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rec)
}

// HandleMarkCompleted force-completes one record.
func (s *Server) HandleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProgressRequest(w, r)
	if !ok {
		return
	}

	claims := userClaims(r.Context())
	rec, err := s.tracker.MarkCompleted(r.Context(), claims.UserID, req.key())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rec)
}

// HandleMarkInProgress marks one record as actively playing.
func (s *Server) HandleMarkInProgress(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProgressRequest(w, r)
	if !ok {
		return
	}

	claims := userClaims(r.Context())
	rec, err := s.tracker.MarkInProgress(r.Context(), claims.UserID, req.key())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rec)
}

// HandleResetProgress clears one record back to not-started. This is
// the only way off the completed status.
func (s *Server) HandleResetProgress(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeProgressRequest(w, r)
	if !ok {
		return
	}

	claims := userClaims(r.Context())
	rec, err := s.tracker.Reset(r.Context(), claims.UserID, req.key())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rec)
}

// HandleGetProgressRecord returns the record for one audio, read when
// the player opens a chapter. Untracked audio comes back not-started.
func (s *Server) HandleGetProgressRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	chapter, err := strconv.Atoi(q.Get("chapterId"))
	if err != nil || chapter < 1 {
		s.respondError(w, http.StatusBadRequest, "Invalid chapterId")
		return
	}

	req := progressRequest{
		BookID:    q.Get("bookId"),
		ChapterID: chapter,
		Voice:     q.Get("voice"),
	}
	if raw := q.Get("verseId"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.respondError(w, http.StatusBadRequest, "Invalid verseId")
			return
		}
		req.VerseID = &v
	}
	if err := req.validate(); err != nil {
		s.handleError(w, err)
		return
	}

	claims := userClaims(r.Context())
	rec, err := s.tracker.GetProgress(r.Context(), claims.UserID, req.key())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rec)
}

// HandleGetBookProgress returns the per-book aggregate.
func (s *Server) HandleGetBookProgress(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")
	if bookID == "" {
		s.respondError(w, http.StatusBadRequest, "bookId is required")
		return
	}

	claims := userClaims(r.Context())
	bp, err := s.tracker.GetBookProgress(r.Context(), claims.UserID, bookID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, bp)
}

// HandleListProgress returns every progress record for the caller.
func (s *Server) HandleListProgress(w http.ResponseWriter, r *http.Request) {
	claims := userClaims(r.Context())
	records, err := s.tracker.ListProgress(r.Context(), claims.UserID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"progress": records,
		"count":    len(records),
	})
}
