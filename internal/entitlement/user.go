// Package entitlement implements the Pro entitlement rules: the pure
// predicate over a user record, the purchase webhook state machine and
// the HMAC signature check guarding it.
package entitlement

import (
	"strings"
	"time"
)

// User is the entitlement-relevant view of a user record. Flags are
// strict booleans here; legacy string values are normalized at the
// storage boundary with ParseLegacyFlag and never leak past it.
type User struct {
	ID                 string
	Email              string
	DisplayName        string
	PhotoURL           string
	TokenCount         int
	IsPremium          bool
	IsPro              bool
	ProSubscriptionEnd string // ISO-8601, empty when no expiry is set
	CreatedAt          time.Time
	LastLoginAt        time.Time
}

// ParseLegacyFlag coerces a stored flag value into a strict boolean.
// Old records carry the literal string "true" instead of a boolean.
// Anything that is not a recognized truthy literal is false.
func ParseLegacyFlag(v string) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "true", "t", "1":
		return true
	default:
		return false
	}
}

// IsEntitled reports whether the user holds an active Pro entitlement
// at the given instant: a Pro or Premium flag is set, and either no
// expiry is recorded or the expiry is strictly in the future.
// An unparseable expiry fails closed.
func IsEntitled(u *User, now time.Time) bool {
	if u == nil {
		return false
	}
	if !u.IsPro && !u.IsPremium {
		return false
	}
	if u.ProSubscriptionEnd == "" {
		return true
	}
	end, err := time.Parse(time.RFC3339, u.ProSubscriptionEnd)
	if err != nil {
		return false
	}
	return end.After(now)
}
