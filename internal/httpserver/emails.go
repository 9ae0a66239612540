package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/asmrbible/backend/internal/email"
)

type sendEmailRequest struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Data     struct {
		Voice        string `json:"voice"`
		DeliveryType string `json:"deliveryType"`
		Frequency    string `json:"frequency"`
		BookID       string `json:"bookId"`
		BookTitle    string `json:"bookTitle"`
	} `json:"data"`
}

// HandleSendEmail renders one of the named templates and hands it to
// the provider cascade. The site calls this right after someone signs
// up for reminders.
func (s *Server) HandleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.To == "" {
		s.respondError(w, http.StatusBadRequest, "to is required")
		return
	}

	var (
		msg email.Message
		err error
	)
	switch req.Template {
	case "subscription":
		msg, err = email.BuildSubscriptionMessage(req.To, email.SubscriptionData{
			Voice:        req.Data.Voice,
			DeliveryType: req.Data.DeliveryType,
			Frequency:    req.Data.Frequency,
		})
	case "dailyReminder":
		msg, err = email.BuildReminderMessage(email.ReminderData{
			Email:        req.To,
			BookID:       req.Data.BookID,
			BookTitle:    req.Data.BookTitle,
			Voice:        req.Data.Voice,
			DeliveryType: req.Data.DeliveryType,
			BaseURL:      s.cfg.BaseURL,
		})
	default:
		s.respondError(w, http.StatusBadRequest, "Unknown template")
		return
	}
	if err != nil {
		s.handleError(w, err)
		return
	}

	if err := s.mailer.Send(r.Context(), msg); err != nil {
		s.log.Error("Failed to send email", "template", req.Template, "error", err)
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Failed to send email",
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Email sent successfully",
	})
}
