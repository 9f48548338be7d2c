package domain

import "log/slog"

// SecretString wraps sensitive string values (provider API keys, signing
// keys). Implements slog.LogValuer so a secret handed to a logger is always
// redacted, and fmt.Stringer so casual formatting never leaks it either.
type SecretString string

// String returns a redacted placeholder, never the actual value.
func (s SecretString) String() string {
	return "[REDACTED]"
}

// LogValue implements slog.LogValuer to ensure secrets are never logged in
// plaintext, even if the handler's ReplaceAttr is misconfigured.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Expose returns the actual secret value. Use only at the point the secret
// is consumed (signing a request, authenticating an upstream call).
func (s SecretString) Expose() string {
	return string(s)
}

// IsEmpty returns true if the secret is empty.
func (s SecretString) IsEmpty() bool {
	return len(s) == 0
}

var _ slog.LogValuer = SecretString("")
