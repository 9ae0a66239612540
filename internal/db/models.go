package db

import "time"

// BookSubscription is one (email, book) email delivery preference.
type BookSubscription struct {
	Email        string     `json:"email"`
	BookID       string     `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	Voice        string     `json:"voice"`
	DeliveryType string     `json:"delivery_type"`
	Frequency    string     `json:"frequency"`
	SubscribedAt time.Time  `json:"subscribed_at"`
	LastSentAt   *time.Time `json:"last_sent_at,omitempty"`
}

const (
	DeliveryUnfinished = "unfinished"
	DeliveryWhole      = "whole"

	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// IsValidDeliveryType reports whether v is a known delivery setting.
func IsValidDeliveryType(v string) bool {
	return v == DeliveryUnfinished || v == DeliveryWhole
}

// IsValidFrequency reports whether v is a known cadence.
func IsValidFrequency(v string) bool {
	return v == FrequencyDaily || v == FrequencyWeekly
}
