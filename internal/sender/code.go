package sender

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

var codeMax = big.NewInt(1_000_000) // 10^6 for 6-digit codes

// GenerateCode generates a cryptographically random six-digit verification
// code. Uses crypto/rand with rejection sampling (via big.Int) to avoid
// modulo bias. The code is zero-padded (e.g. "000123").
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeMax)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CodeMatches compares a submitted code against a stored provided-code
// payload in constant time. Provided-code senders delegate their Check to
// this helper.
func CodeMatches(submittedCode string, payload []byte) bool {
	return subtle.ConstantTimeCompare([]byte(submittedCode), payload) == 1
}
