package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// EventOrderCreated is the only purchase event the manager handles.
	EventOrderCreated = "order_created"

	// orderStatusPaid gates every entitlement mutation.
	orderStatusPaid = "paid"

	// RefillAmount is the token grant for a refill purchase.
	RefillAmount = 100
)

// Store is the slice of user storage the manager needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GrantPro(ctx context.Context, id string, until time.Time) error
	AddTokens(ctx context.Context, id string, delta int) error
}

// Manager applies trusted purchase events to user records.
type Manager struct {
	store          Store
	proPlanProduct string
	refillProduct  string
	log            *log.Logger
}

func NewManager(store Store, proPlanProductID, refillProductID string, logger *log.Logger) *Manager {
	return &Manager{
		store:          store,
		proPlanProduct: proPlanProductID,
		refillProduct:  refillProductID,
		log:            logger,
	}
}

// GrantPro sets both Pro flags and an expiry one year out. The store is
// expected to merge the update without clobbering unrelated fields.
func (m *Manager) GrantPro(ctx context.Context, userID string, now time.Time) (time.Time, error) {
	until := now.AddDate(1, 0, 0)
	if err := m.store.GrantPro(ctx, userID, until); err != nil {
		return time.Time{}, fmt.Errorf("failed to grant pro: %w", err)
	}
	return until, nil
}

// PurchaseEvent is the decoded webhook payload. The gateway has shipped
// the buyer id in several places over time, so every known location is
// mapped and tried in order.
type PurchaseEvent struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Attributes struct {
			UserID       string `json:"user_id"`
			Status       string `json:"status"`
			CheckoutData struct {
				Custom struct {
					UserID string `json:"user_id"`
				} `json:"custom"`
			} `json:"checkout_data"`
			FirstOrderItem struct {
				ProductID json.Number `json:"product_id"`
				VariantID json.Number `json:"variant_id"`
			} `json:"first_order_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// buyerExtractors is the ordered list of payload locations tried for the
// buyer id. First non-empty wins.
var buyerExtractors = []func(*PurchaseEvent) string{
	func(e *PurchaseEvent) string { return e.Meta.CustomData.UserID },
	func(e *PurchaseEvent) string { return e.Data.Attributes.CheckoutData.Custom.UserID },
	func(e *PurchaseEvent) string { return e.Data.Attributes.UserID },
}

// BuyerID returns the buyer id from the first payload location that has
// one, or empty when none do.
func (e *PurchaseEvent) BuyerID() string {
	for _, extract := range buyerExtractors {
		if id := extract(e); id != "" {
			return id
		}
	}
	return ""
}

// IsPaid reports whether the order settled.
func (e *PurchaseEvent) IsPaid() bool {
	return e.Data.Attributes.Status == orderStatusPaid
}

// ParsePurchaseEvent decodes a raw webhook body.
func ParsePurchaseEvent(rawBody []byte) (*PurchaseEvent, error) {
	event := new(PurchaseEvent)
	if err := json.Unmarshal(rawBody, event); err != nil {
		return nil, fmt.Errorf("failed to decode purchase event: %w", err)
	}
	return event, nil
}

// ProcessPurchaseEvent handles one order_created event: resolve the
// buyer, check the order is paid, then branch on the purchased product.
// A refill adds tokens, the Pro plan grants a year of Pro, an unmatched
// product is logged and ignored. A missing buyer id is a hard failure
// and nothing is mutated.
func (m *Manager) ProcessPurchaseEvent(ctx context.Context, eventName string, event *PurchaseEvent, now time.Time) error {
	if eventName != EventOrderCreated {
		m.log.Info("Ignoring webhook event", "event", eventName)
		return nil
	}

	userID := event.BuyerID()
	if userID == "" {
		return fmt.Errorf("user id not found in webhook data")
	}

	if event.Data.Attributes.Status != orderStatusPaid {
		m.log.Info(
			"Order not paid, skipping",
			"user_id", userID,
			"status", event.Data.Attributes.Status,
		)
		return nil
	}

	if _, err := m.store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	// The gateway sends ids as strings or numbers depending on the
	// payload version, so everything is compared as strings.
	productID := event.Data.Attributes.FirstOrderItem.ProductID.String()
	variantID := event.Data.Attributes.FirstOrderItem.VariantID.String()

	switch {
	case m.matches(m.refillProduct, productID, variantID):
		if err := m.store.AddTokens(ctx, userID, RefillAmount); err != nil {
			return fmt.Errorf("failed to add tokens: %w", err)
		}
		m.log.Info("Token refill applied", "user_id", userID, "amount", RefillAmount)

	case m.matches(m.proPlanProduct, productID, variantID):
		until, err := m.GrantPro(ctx, userID, now)
		if err != nil {
			return err
		}
		m.log.Info("Pro plan activated", "user_id", userID, "until", until.Format(time.RFC3339))

	default:
		// Soft no-op: an unrecognized product is not our purchase.
		m.log.Warn(
			"No matching product id in order",
			"user_id", userID,
			"product_id", productID,
			"variant_id", variantID,
		)
	}

	return nil
}

func (m *Manager) matches(configured, productID, variantID string) bool {
	if configured == "" {
		return false
	}
	return productID == configured || variantID == configured
}
