package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHMACSignatureService_SignMatchesReference(t *testing.T) {
	svc := NewHMACSignatureService("sk_test_secret")
	payload := []byte(`{"event":"charge.success","data":{"reference":"abc"}}`)

	mac := hmac.New(sha512.New, []byte("sk_test_secret"))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, svc.Sign(payload))
}

func TestHMACSignatureService_Verify(t *testing.T) {
	svc := NewHMACSignatureService("sk_test_secret")
	payload := []byte(`{"event":"charge.success"}`)
	sig := svc.Sign(payload)

	assert.True(t, svc.Verify(payload, sig))
	assert.False(t, svc.Verify(payload, sig+"00"))
	assert.False(t, svc.Verify([]byte(`{"event":"charge.success" }`), sig))
	assert.False(t, svc.Verify(payload, ""))
}

func TestHMACSignatureService_DifferentKeysDisagree(t *testing.T) {
	a := NewHMACSignatureService("key-a")
	b := NewHMACSignatureService("key-b")
	payload := []byte("same payload")

	assert.False(t, b.Verify(payload, a.Sign(payload)))
}
