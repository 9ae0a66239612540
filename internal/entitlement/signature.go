package entitlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the payment gateway's webhook signature: a
// hex-encoded HMAC-SHA256 of the raw request body under the shared
// secret. Length mismatch or digest mismatch both fail closed.
func VerifySignature(rawBody []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	digest := hex.EncodeToString(mac.Sum(nil))

	if len(digest) != len(signature) {
		return false
	}

	return hmac.Equal([]byte(digest), []byte(signature))
}
