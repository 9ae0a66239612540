package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/asmrbible/backend/internal/payment"
)

type purchaseRequest struct {
	UserID    string `json:"user_id"`
	VariantID string `json:"variantId"`
	ReturnURL string `json:"returnUrl"`
}

// HandlePurchase creates a hosted checkout session for the caller.
func (s *Server) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	variantID := req.VariantID
	if variantID == "" {
		variantID = s.cfg.ProPlanVariantID
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = "/bible"
	}
	successURL := s.cfg.BaseURL + "/payment/success?returnUrl=" + url.QueryEscape(returnURL)

	checkoutURL, err := s.payments.CreateCheckout(r.Context(), payment.CheckoutRequest{
		UserID:            req.UserID,
		VariantID:         variantID,
		RedirectURL:       successURL,
		ReceiptButtonText: "Continue to Bible Reading",
	})
	if err != nil {
		var apiErr *payment.Error
		if errors.As(err, &apiErr) {
			s.log.Error("Checkout creation rejected", "status", apiErr.StatusCode, "detail", apiErr.Detail)
			s.respondJSON(w, http.StatusInternalServerError, map[string]string{
				"message": "An error occurred",
				"error":   apiErr.Detail,
			})
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"checkoutUrl": checkoutURL})
}
