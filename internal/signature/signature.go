// Package signature implements the Signature Verifier of §4.4: per-provider
// HMAC verification with replay-window checks for inbound webhooks.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/passthekeys/outbound-core/internal/apperr"
)

// ReplayWindow is the maximum age a timestamped signature is accepted for.
const ReplayWindow = 5 * time.Minute

// VerifyProviderA checks an HMAC-SHA256 of the raw body under the tenant's
// Provider A key, hex-encoded, using a constant-time comparison.
func VerifyProviderA(secret string, body []byte, signatureHex string) error {
	expected := hexHMAC(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signatureHex)) {
		return apperr.AuthenticationError("invalid provider A signature")
	}
	return nil
}

// VerifyProviderB checks an HMAC-SHA256 of the raw body under the
// provider-wide static secret, hex-encoded.
func VerifyProviderB(providerSecret string, body []byte, signatureHex string) error {
	expected := hexHMAC(providerSecret, body)
	if !hmac.Equal([]byte(expected), []byte(signatureHex)) {
		return apperr.AuthenticationError("invalid provider B signature")
	}
	return nil
}

// VerifyProviderC checks an HMAC-SHA256 of secret||method||url||body||
// timestamp, base64 encoded, and enforces a 5-minute replay window keyed on
// the timestamp header.
func VerifyProviderC(secret, method, url string, body []byte, timestampHeader, signatureB64 string, now time.Time) error {
	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return apperr.AuthenticationError("invalid provider C timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > ReplayWindow {
		return apperr.AuthenticationError("provider C signature outside replay window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte(url))
	mac.Write(body)
	mac.Write([]byte(timestampHeader))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureB64)) {
		return apperr.AuthenticationError("invalid provider C signature")
	}
	return nil
}

// VerifyTriggerWebhook checks an HMAC-SHA256 of the raw body under a
// per-tenant webhook secret, hex-encoded, with an optional replay window
// when the CRM supplies a timestamp header.
func VerifyTriggerWebhook(tenantSecret string, body []byte, signatureHex string, timestampHeader string, now time.Time) error {
	expected := hexHMAC(tenantSecret, body)
	if !hmac.Equal([]byte(expected), []byte(signatureHex)) {
		return apperr.AuthenticationError("invalid trigger webhook signature")
	}
	if timestampHeader == "" {
		return nil
	}
	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return apperr.AuthenticationError("invalid trigger webhook timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > ReplayWindow {
		return apperr.AuthenticationError("trigger webhook signature outside replay window")
	}
	return nil
}

func hexHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
