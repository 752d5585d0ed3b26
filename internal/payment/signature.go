package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 the gateway issues for a payment:
// HMAC(secret, orderID + "|" + paymentID).
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is the only authenticity check for online payments. It
// never errors: empty input is simply false. The signature must equal the
// lowercase hex digest character for character; the comparison is
// constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	want := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(signature), []byte(want))
}
