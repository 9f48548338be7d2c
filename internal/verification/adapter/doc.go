// Package adapter contains implementations of the interfaces defined in
// the verification app package: session stores (DynamoDB, in-memory), rate
// limiters (Redis, allow-all), provider senders (Twilio, MessageBird,
// Vonage, SNS), and completion sinks.
package adapter

import (
	"go.opentelemetry.io/otel"
	"golang.org/x/text/language"
)

var tracer = otel.Tracer("verification/adapter")

// messageLocales are the languages verification messages are produced in,
// matching the sender package's body tables. Adapters that pass a locale
// upstream match the caller's preferences against this set.
var messageLocales = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Portuguese,
}

var messageLocaleMatcher = language.NewMatcher(messageLocales)
