package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CheckoutSignature is the hex HMAC-SHA256 the gateway returns to the client
// after a successful checkout.
func CheckoutSignature(secret, remoteOrderID, remotePaymentID string) string {
	return sign(secret, []byte(remoteOrderID+"|"+remotePaymentID))
}

// WebhookSignature is the hex HMAC-SHA256 over the raw webhook body.
func WebhookSignature(secret string, payload []byte) string {
	return sign(secret, payload)
}

func sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func signaturesMatch(expected, provided string) bool {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
