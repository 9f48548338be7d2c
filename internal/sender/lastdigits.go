package sender

import (
	"context"
	"time"

	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// LastDigitsName is the registered name of the synthetic development sender.
const LastDigitsName = "last-digits"

// Compile-time check: LastDigitsSender satisfies Sender.
var _ Sender = (*LastDigitsSender)(nil)

// LastDigitsSender is a synthetic sender for development and integration
// tests. It never contacts an upstream: the expected code is the last six
// digits of the destination's national number, so tests can derive the
// correct code from the phone number alone.
type LastDigitsSender struct{}

// NewLastDigitsSender creates a LastDigitsSender.
func NewLastDigitsSender() *LastDigitsSender {
	return &LastDigitsSender{}
}

func (s *LastDigitsSender) Name() string { return LastDigitsName }

func (s *LastDigitsSender) SessionTTL() time.Duration { return domain.DefaultSessionTTL }

// Supports accepts every request; there is no upstream to constrain it.
func (s *LastDigitsSender) Supports(domain.Transport, domain.PhoneNumber, []language.Tag, domain.ClientType) bool {
	return true
}

// Send returns the last six digits of the national number as the payload.
// Nothing is delivered anywhere.
func (s *LastDigitsSender) Send(
	_ context.Context,
	_ domain.Transport,
	phone domain.PhoneNumber,
	_ []language.Tag,
	_ domain.ClientType,
) ([]byte, error) {
	national := phone.NationalNumber()
	if len(national) > domain.VerificationCodeLength {
		national = national[len(national)-domain.VerificationCodeLength:]
	}
	return []byte(national), nil
}

// Check compares the submitted code against the stored digits.
func (s *LastDigitsSender) Check(_ context.Context, submittedCode string, payload []byte) (bool, error) {
	return CodeMatches(submittedCode, payload), nil
}
