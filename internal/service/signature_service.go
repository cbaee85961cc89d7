package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA512
// keyed with the gateway secret. The gateway signs webhook bodies the same
// way, so Verify gates every webhook before the payload is parsed.
type HMACSignatureService struct {
	secretKey []byte
}

// NewHMACSignatureService creates a new HMAC-SHA512 signature service.
func NewHMACSignatureService(secretKey string) *HMACSignatureService {
	return &HMACSignatureService{secretKey: []byte(secretKey)}
}

// Sign computes HMAC-SHA512 of payload.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, s.secretKey)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA512(secret, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(payload []byte, signature string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
