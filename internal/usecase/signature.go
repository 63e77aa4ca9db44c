package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureVerifier checks that a payment confirmation was issued by the gateway.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

// HMACSignatureVerifier signs orderID + "|" + paymentID with HMAC-SHA256 and
// compares hex digests.
type HMACSignatureVerifier struct {
	secret []byte
}

func NewHMACSignatureVerifier(secret string) *HMACSignatureVerifier {
	return &HMACSignatureVerifier{secret: []byte(secret)}
}

func (v *HMACSignatureVerifier) Sign(orderID, paymentID string) string {
	return hmacHex(v.secret, []byte(orderID+"|"+paymentID))
}

// Verify returns false for any mismatch, including empty input or an unset secret.
func (v *HMACSignatureVerifier) Verify(orderID, paymentID, signature string) bool {
	if len(v.secret) == 0 || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(orderID, paymentID)), []byte(signature))
}

// WebhookVerifier authenticates raw gateway callbacks.
type WebhookVerifier interface {
	Enabled() bool
	VerifyWebhook(body []byte, signature string) bool
}

type HMACWebhookVerifier struct {
	secret []byte
}

// NewHMACWebhookVerifier with an empty secret disables callback verification.
func NewHMACWebhookVerifier(secret string) *HMACWebhookVerifier {
	return &HMACWebhookVerifier{secret: []byte(secret)}
}

func (v *HMACWebhookVerifier) Enabled() bool {
	return len(v.secret) > 0
}

func (v *HMACWebhookVerifier) Sign(body []byte) string {
	return hmacHex(v.secret, body)
}

func (v *HMACWebhookVerifier) VerifyWebhook(body []byte, signature string) bool {
	if !v.Enabled() {
		return true
	}
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(body)), []byte(signature))
}

func hmacHex(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
