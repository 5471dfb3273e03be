package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyProviderA_ValidAndTampered(t *testing.T) {
	secret := "tenant-secret"
	body := []byte(`{"CallSid":"CA123"}`)
	sig := hexHMAC(secret, body)

	require.NoError(t, VerifyProviderA(secret, body, sig))

	tampered := []byte(`{"CallSid":"CA999"}`)
	err := VerifyProviderA(secret, tampered, sig)
	require.Error(t, err)
}

func TestVerifyProviderC_ReplayWindow(t *testing.T) {
	secret := "provider-c-secret"
	method, url := "POST", "/webhook/provider-c"
	body := []byte(`{"dial_id":"d1"}`)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	sign := func(ts int64) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(method))
		mac.Write([]byte(url))
		mac.Write(body)
		mac.Write([]byte(strconv.FormatInt(ts, 10)))
		return base64.StdEncoding.EncodeToString(mac.Sum(nil))
	}

	freshTS := now.Add(-1 * time.Minute).Unix()
	sig := sign(freshTS)
	require.NoError(t, VerifyProviderC(secret, method, url, body, strconv.FormatInt(freshTS, 10), sig, now))

	staleTS := now.Add(-10 * time.Minute).Unix()
	staleSig := sign(staleTS)
	err := VerifyProviderC(secret, method, url, body, strconv.FormatInt(staleTS, 10), staleSig, now)
	require.Error(t, err)
}

func TestVerifyTriggerWebhook_NoTimestampSkipsReplayCheck(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"phone_number":"+14155551234"}`)
	sig := hexHMAC(secret, body)
	require.NoError(t, VerifyTriggerWebhook(secret, body, sig, "", time.Now()))
}

func TestHexHMAC_Deterministic(t *testing.T) {
	a := hexHMAC("s", []byte("body"))
	b := hexHMAC("s", []byte("body"))
	assert.Equal(t, a, b)
	_, err := hex.DecodeString(a)
	assert.NoError(t, err)
}
