package adapter

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/sender"
)

// VonageVoiceName identifies the Vonage voice-call sender.
const VonageVoiceName = "vonage-voice"

const (
	vonageDefaultBaseURL = "https://api.nexmo.com"
	vonageJWTLifetime    = time.Minute
)

// Voice languages for the NCCO talk action, keyed by base language of the
// body table.
var vonageVoiceLanguages = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"pt": "pt-PT",
}

// Compile-time check against the sender contract.
var _ sender.Sender = (*VonageVoiceSender)(nil)

// VonageVoiceConfig configures the Vonage voice sender.
type VonageVoiceConfig struct {
	// ApplicationID is the Vonage application whose private key signs the
	// per-request JWT.
	ApplicationID string

	// PrivateKey is the application's RS256 signing key.
	PrivateKey *rsa.PrivateKey

	// FromNumber is the calling line identity, E.164 digits without '+'.
	FromNumber string

	// BaseURL overrides the Vonage API endpoint, for tests.
	BaseURL string

	HTTPClient *http.Client
	SessionTTL time.Duration
	Clock      domain.Clock
}

// VonageVoiceSender places a text-to-speech call that reads a locally
// generated code. The session payload is the code itself.
type VonageVoiceSender struct {
	cfg    VonageVoiceConfig
	bodies *sender.BodyProvider
	client *http.Client
	base   string
	ttl    time.Duration
	clock  domain.Clock
}

// NewVonageVoiceSender creates the sender from its configuration.
func NewVonageVoiceSender(cfg VonageVoiceConfig) (*VonageVoiceSender, error) {
	if cfg.ApplicationID == "" || cfg.PrivateKey == nil || cfg.FromNumber == "" {
		return nil, fmt.Errorf("vonage voice: application id, private key, and from number are required: %w", domain.ErrConfigRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		base = vonageDefaultBaseURL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &VonageVoiceSender{
		cfg:    cfg,
		bodies: sender.NewBodyProvider(""),
		client: defaultedHTTPClient(cfg.HTTPClient),
		base:   base,
		ttl:    defaultedTTL(cfg.SessionTTL),
		clock:  clock,
	}, nil
}

func (s *VonageVoiceSender) Name() string { return VonageVoiceName }

func (s *VonageVoiceSender) SessionTTL() time.Duration { return s.ttl }

// Supports accepts voice calls in any language the script table covers.
func (s *VonageVoiceSender) Supports(transport domain.Transport, _ domain.PhoneNumber, languages []language.Tag, _ domain.ClientType) bool {
	return transport == domain.TransportVoice && s.bodies.SupportsLanguage(languages)
}

// Send generates a code and places the call with an NCCO that speaks it.
func (s *VonageVoiceSender) Send(
	ctx context.Context,
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	_ domain.ClientType,
) ([]byte, error) {
	if transport != domain.TransportVoice {
		return nil, fmt.Errorf("vonage voice: transport %s: %w", transport, domain.ErrSenderUnavailable)
	}

	code, err := sender.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("vonage voice: %w", err)
	}

	token, err := s.mintJWT()
	if err != nil {
		return nil, fmt.Errorf("vonage voice: %w", err)
	}

	payload := map[string]interface{}{
		"to":   []map[string]string{{"type": "phone", "number": fmt.Sprintf("%d", phone.E164())}},
		"from": map[string]string{"type": "phone", "number": s.cfg.FromNumber},
		"ncco": []map[string]interface{}{{
			"action":   "talk",
			"text":     s.bodies.VoiceScript(code, languages),
			"language": vonageLanguage(languages),
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vonage voice: marshal call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vonage voice: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("vonage voice: %v: %w", err, domain.ErrSenderUnavailable)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, twilioMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("vonage voice: read response: %v: %w", err, domain.ErrSenderUnavailable)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vonage voice: send: %w", classifyVonageError(resp.StatusCode, respBody))
	}

	return []byte(code), nil
}

// Check compares the submitted code against the stored one in constant
// time. No upstream round-trip.
func (s *VonageVoiceSender) Check(_ context.Context, submittedCode string, payload []byte) (bool, error) {
	return sender.CodeMatches(submittedCode, payload), nil
}

// mintJWT signs a short-lived application JWT for one API call.
func (s *VonageVoiceSender) mintJWT() (string, error) {
	now := s.clock.Now().UTC()
	claims := jwt.MapClaims{
		"application_id": s.cfg.ApplicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(vonageJWTLifetime).Unix(),
		"jti":            uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign application JWT: %w", err)
	}
	return signed, nil
}

func classifyVonageError(httpStatus int, body []byte) error {
	var envelope struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &envelope)
	base := fmt.Errorf("vonage: status %d: %s: %s", httpStatus, envelope.Title, envelope.Detail)

	switch {
	case httpStatus == http.StatusTooManyRequests || httpStatus >= 500:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderUnavailable)
	case httpStatus == http.StatusBadRequest:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderIllegalArgument)
	default:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderRejected)
	}
}

// vonageLanguage picks the text-to-speech language for the call.
func vonageLanguage(languages []language.Tag) string {
	if len(languages) == 0 {
		return vonageVoiceLanguages["en"]
	}
	tag, _, conf := messageLocaleMatcher.Match(languages...)
	if conf == language.No {
		return vonageVoiceLanguages["en"]
	}
	base, _ := tag.Base()
	if lang, ok := vonageVoiceLanguages[base.String()]; ok {
		return lang
	}
	return vonageVoiceLanguages["en"]
}
