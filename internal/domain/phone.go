package domain

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nyaruka/phonenumbers"
)

// PhoneNumber is a value object representing a validated E.164 phone number.
// Always valid in memory — use NewPhoneNumber or PhoneNumberFromE164 to
// construct. On the wire the number travels as a uint64 (country code plus
// subscriber digits, no leading '+').
type PhoneNumber struct {
	e164        string // canonical form, '+' prefix
	region      string // ISO 3166-1 alpha-2, e.g. "US"
	countryCode int32
	national    string // national significant number, digits only
}

// NewPhoneNumber parses and validates a raw phone number string. The input
// must carry a '+' prefix; there is no default region. Formatting characters
// (spaces, dashes, dots, parentheses) are tolerated and stripped.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	if raw == "" {
		return PhoneNumber{}, fmt.Errorf("phone number cannot be empty: %w", ErrIllegalPhoneNumber)
	}
	// Pre-screen before handing to the parser: exactly one '+', and only
	// digits plus common formatting characters. The parser alone is lenient
	// about vanity letters and RFC 3966 noise; the wire contract is not.
	plusCount := 0
	for _, r := range raw {
		switch {
		case r == '+':
			plusCount++
		case r >= '0' && r <= '9', r == ' ', r == '-', r == '(', r == ')', r == '.':
			// ok
		default:
			return PhoneNumber{}, fmt.Errorf("phone number contains invalid character %q: %w", r, ErrIllegalPhoneNumber)
		}
	}
	if plusCount != 1 || raw[0] != '+' {
		return PhoneNumber{}, fmt.Errorf("phone number must carry a single leading '+': %w", ErrIllegalPhoneNumber)
	}

	parsed, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return PhoneNumber{}, fmt.Errorf("parse phone number: %v: %w", err, ErrIllegalPhoneNumber)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return PhoneNumber{}, fmt.Errorf("phone number is not a valid E.164 number: %w", ErrIllegalPhoneNumber)
	}
	return PhoneNumber{
		e164:        phonenumbers.Format(parsed, phonenumbers.E164),
		region:      phonenumbers.GetRegionCodeForNumber(parsed),
		countryCode: parsed.GetCountryCode(),
		national:    phonenumbers.GetNationalSignificantNumber(parsed),
	}, nil
}

// PhoneNumberFromE164 constructs a PhoneNumber from the wire representation:
// the full E.164 digit string as an unsigned integer, without the '+'.
func PhoneNumberFromE164(e164 uint64) (PhoneNumber, error) {
	if e164 == 0 {
		return PhoneNumber{}, fmt.Errorf("e164 value is zero: %w", ErrIllegalPhoneNumber)
	}
	return NewPhoneNumber("+" + strconv.FormatUint(e164, 10))
}

// MustPhoneNumber creates a PhoneNumber, panicking on invalid input. Use only in tests.
func MustPhoneNumber(raw string) PhoneNumber {
	p, err := NewPhoneNumber(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// E164 returns the wire representation: all digits as a uint64, no '+'.
func (p PhoneNumber) E164() uint64 {
	if p.e164 == "" {
		return 0
	}
	v, err := strconv.ParseUint(p.e164[1:], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Region returns the ISO 3166-1 alpha-2 region code, e.g. "US".
func (p PhoneNumber) Region() string { return p.region }

// CountryCode returns the E.164 country calling code, e.g. 1 or 49.
func (p PhoneNumber) CountryCode() int32 { return p.countryCode }

// NationalNumber returns the national significant number, digits only.
func (p PhoneNumber) NationalNumber() string { return p.national }

func (p PhoneNumber) String() string { return p.e164 }
func (p PhoneNumber) IsZero() bool   { return p.e164 == "" }

// Masked returns the number with all but the last four digits elided.
// Use for log output; full numbers never appear in logs.
func (p PhoneNumber) Masked() string {
	if len(p.e164) <= 4 {
		return "****"
	}
	return "*******" + p.e164[len(p.e164)-4:]
}

// LogValue implements slog.LogValuer so a PhoneNumber passed to a logger is
// always masked, even without going through Masked() explicitly.
func (p PhoneNumber) LogValue() slog.Value {
	return slog.StringValue(p.Masked())
}

var _ slog.LogValuer = PhoneNumber{}
