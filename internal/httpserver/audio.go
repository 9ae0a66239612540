package httpserver

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/asmrbible/backend/internal/bible"
	"github.com/asmrbible/backend/pkg/audiostore"
)

// audioParams pulls the voice/book/chapter route triple plus the
// optional verse query, writing the error response itself on bad input.
func (s *Server) audioParams(w http.ResponseWriter, r *http.Request) (voice, bookID string, chapter int, verse *int, ok bool) {
	voice = chi.URLParam(r, "voice")
	bookID = chi.URLParam(r, "bookId")

	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil || chapter < 1 {
		s.respondError(w, http.StatusBadRequest, "Invalid chapter")
		return "", "", 0, nil, false
	}

	if !bible.IsValidVoice(voice) {
		s.respondError(w, http.StatusBadRequest, "Invalid voice")
		return "", "", 0, nil, false
	}

	if raw := r.URL.Query().Get("verse"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.respondError(w, http.StatusBadRequest, "Invalid verse")
			return "", "", 0, nil, false
		}
		verse = &v
	}

	return voice, bookID, chapter, verse, true
}

// HandleAudioURL resolves one chapter or verse recording to a
// presigned link, gated on the published availability table.
func (s *Server) HandleAudioURL(w http.ResponseWriter, r *http.Request) {
	voice, bookID, chapter, verse, ok := s.audioParams(w, r)
	if !ok {
		return
	}

	if !bible.IsAudioAvailable(bookID, chapter) {
		s.respondError(w, http.StatusNotFound, "Audio not available for this chapter")
		return
	}

	// The availability table can run ahead of the bucket while new
	// narrations are uploaded, so check the object too.
	found, err := s.audio.Exists(r.Context(), voice, bookID, chapter, verse)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "Audio not available for this chapter")
		return
	}

	url, err := s.audio.AudioURL(r.Context(), voice, bookID, chapter, verse, audiostore.DefaultURLExpiry)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"url":     url,
		"voice":   voice,
		"bookId":  bookID,
		"chapter": chapter,
	})
}

// HandleUploadAudio stores a narration recording. The body is the raw
// mp3; shared-secret auth like the other admin routes.
func (s *Server) HandleUploadAudio(w http.ResponseWriter, r *http.Request) {
	if !s.adminSecretOK(r, "") {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	voice, bookID, chapter, verse, ok := s.audioParams(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		s.respondError(w, http.StatusBadRequest, "Empty audio body")
		return
	}

	object, err := s.audio.UploadRecording(r.Context(), voice, bookID, chapter, verse, data)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.log.Info("Audio recording uploaded", "object", object, "bytes", len(data))
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"object":  object,
	})
}

// HandleDeleteAudio removes a narration recording from the bucket.
func (s *Server) HandleDeleteAudio(w http.ResponseWriter, r *http.Request) {
	if !s.adminSecretOK(r, "") {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	voice, bookID, chapter, verse, ok := s.audioParams(w, r)
	if !ok {
		return
	}

	if err := s.audio.DeleteRecording(r.Context(), voice, bookID, chapter, verse); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
