package sender

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// routeKey addresses one routing-table entry. A zero Transport means the
// entry applies to every transport.
type routeKey struct {
	countryCode int32
	transport   domain.Transport
}

// Strategy picks one sender per attempt.
//
// A session that already names a sender is routed back to it (sticky
// routing); otherwise the configured routing table keyed by (country
// calling code, transport) decides, falling back to the default sender.
// Selection is pure over a single call: no state is mutated and equal
// inputs yield equal picks.
type Strategy struct {
	registry    *Registry
	routes      map[routeKey]string
	defaultName string
}

// NewStrategy creates a Strategy over the given registry. routes entries
// take the form "<calling code>[:<transport>]=<sender name>", e.g.
// "1:voice=twilio-verify" or "44=messagebird-sms". defaultName is the
// fallback sender for destinations no route covers.
func NewStrategy(registry *Registry, routes []string, defaultName string) (*Strategy, error) {
	if _, err := registry.Get(defaultName); err != nil {
		return nil, fmt.Errorf("selection strategy: default sender: %w", err)
	}

	parsed := make(map[routeKey]string, len(routes))
	for _, route := range routes {
		key, name, err := parseRoute(route)
		if err != nil {
			return nil, err
		}
		if _, err := registry.Get(name); err != nil {
			return nil, fmt.Errorf("selection strategy: route %q: %w", route, err)
		}
		parsed[key] = name
	}

	return &Strategy{
		registry:    registry,
		routes:      parsed,
		defaultName: defaultName,
	}, nil
}

// Choose returns the sender for this attempt. priorName is the session's
// recorded sender name, or empty before the first successful send.
//
// A non-empty priorName is binding: the named sender is returned iff it
// still supports the request, and domain.ErrSenderUnavailable otherwise —
// switching senders mid-session would strand the code the first sender
// already delivered.
func (s *Strategy) Choose(
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	client domain.ClientType,
	priorName string,
) (Sender, error) {
	if priorName != "" {
		prior, err := s.registry.Get(priorName)
		if err != nil {
			return nil, err
		}
		if !prior.Supports(transport, phone, languages, client) {
			return nil, fmt.Errorf("selection strategy: prior sender %q no longer supports the request: %w",
				priorName, domain.ErrSenderUnavailable)
		}
		return prior, nil
	}

	// Transport-specific routes shadow transport-agnostic ones.
	for _, key := range []routeKey{
		{countryCode: phone.CountryCode(), transport: transport},
		{countryCode: phone.CountryCode()},
	} {
		name, ok := s.routes[key]
		if !ok {
			continue
		}
		routed, err := s.registry.Get(name)
		if err != nil {
			return nil, err
		}
		if routed.Supports(transport, phone, languages, client) {
			return routed, nil
		}
	}

	fallback, err := s.registry.Get(s.defaultName)
	if err != nil {
		return nil, err
	}
	if fallback.Supports(transport, phone, languages, client) {
		return fallback, nil
	}

	// Last resort: any registered sender that claims support, in
	// registration order so the pick stays deterministic.
	for _, candidate := range s.registry.All() {
		if candidate.Supports(transport, phone, languages, client) {
			return candidate, nil
		}
	}

	return nil, fmt.Errorf("selection strategy: no sender supports %s to %s: %w",
		transport, phone.Masked(), domain.ErrSenderUnavailable)
}

// parseRoute splits "<calling code>[:<transport>]=<sender name>".
func parseRoute(route string) (routeKey, string, error) {
	lhs, name, ok := strings.Cut(route, "=")
	if !ok || name == "" {
		return routeKey{}, "", fmt.Errorf("selection strategy: malformed route %q (want <code>[:<transport>]=<sender>)", route)
	}

	codePart, transportPart, hasTransport := strings.Cut(lhs, ":")
	code, err := strconv.ParseInt(codePart, 10, 32)
	if err != nil || code <= 0 {
		return routeKey{}, "", fmt.Errorf("selection strategy: route %q: invalid calling code %q", route, codePart)
	}

	key := routeKey{countryCode: int32(code)}
	if hasTransport {
		transport := domain.Transport(transportPart)
		if !transport.IsValid() {
			return routeKey{}, "", fmt.Errorf("selection strategy: route %q: invalid transport %q", route, transportPart)
		}
		key.transport = transport
	}

	return key, name, nil
}
