package entitlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"meta":{"event_name":"order_created"}}`)
	secret := "webhook-secret"
	valid := sign(body, secret)

	if !VerifySignature(body, valid, secret) {
		t.Fatal("valid signature rejected")
	}

	// Deterministic: same body, same secret, same digest.
	if sign(body, secret) != valid {
		t.Fatal("signature is not deterministic")
	}

	// Altering any byte of the body invalidates the signature.
	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01
		if VerifySignature(mutated, valid, secret) {
			t.Fatalf("signature accepted after mutating byte %d", i)
		}
	}
}

func TestVerifySignatureRejects(t *testing.T) {
	body := []byte("payload")

	tests := []struct {
		name      string
		signature string
		secret    string
	}{
		{"empty signature", "", "secret"},
		{"empty secret", sign(body, "secret"), ""},
		{"wrong secret", sign(body, "other"), "secret"},
		{"truncated signature", sign(body, "secret")[:10], "secret"},
		{"garbage signature", "zzzz", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(body, tt.signature, tt.secret) {
				t.Error("invalid signature accepted")
			}
		})
	}
}
