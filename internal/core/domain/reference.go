package domain

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// Withdrawal references are WTH- followed by 10 uppercase alphanumerics,
// globally unique. Uniqueness is enforced by the payout store; callers
// retry on the rare collision.

const (
	withdrawalRefPrefix  = "WTH-"
	withdrawalRefLength  = 10
	withdrawalRefCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var withdrawalRefPattern = regexp.MustCompile(`^WTH-[A-Z0-9]{10}$`)

// maxRefByte is the largest multiple of the charset size below 256. Bytes
// at or above it are rejected so every character is equally likely.
const maxRefByte = 256 - 256%len(withdrawalRefCharset)

// NewWithdrawalReference generates a uniformly random withdrawal reference.
func NewWithdrawalReference() string {
	out := make([]byte, 0, withdrawalRefLength)
	buf := make([]byte, 16)
	for {
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand never fails on supported platforms
			panic(fmt.Sprintf("reading random bytes: %v", err))
		}
		for _, b := range buf {
			if int(b) >= maxRefByte {
				continue
			}
			out = append(out, withdrawalRefCharset[int(b)%len(withdrawalRefCharset)])
			if len(out) == withdrawalRefLength {
				return withdrawalRefPrefix + string(out)
			}
		}
	}
}

// IsWithdrawalReference reports whether s is a well-formed withdrawal
// reference.
func IsWithdrawalReference(s string) bool {
	return withdrawalRefPattern.MatchString(s)
}
