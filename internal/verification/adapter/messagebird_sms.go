package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/sender"
)

// MessageBirdName identifies the MessageBird SMS sender.
const MessageBirdName = "messagebird-sms"

const messageBirdDefaultBaseURL = "https://rest.messagebird.com"

// MessageBird error codes per their REST API documentation.
const (
	messageBirdErrAuth       = 2  // authentication failure
	messageBirdErrThrottled  = 4  // too many requests
	messageBirdErrNotFound   = 20 // resource not found
	messageBirdErrBadRequest = 21 // malformed request
	messageBirdErrParams     = 9  // missing or invalid params (bad recipient)
	messageBirdErrRecipient  = 10 // invalid recipient number
)

// Compile-time check against the sender contract.
var _ sender.Sender = (*MessageBirdSender)(nil)

// MessageBirdConfig configures the MessageBird SMS sender.
type MessageBirdConfig struct {
	AccessKey domain.SecretString

	// Originator is the sender id shown to recipients (alphanumeric or a
	// provisioned number, per destination-country rules).
	Originator string

	// AndroidAppHash, when set, is appended to SMS bodies for Android
	// clients with FCM.
	AndroidAppHash string

	// BaseURL overrides the MessageBird API endpoint, for tests.
	BaseURL string

	HTTPClient *http.Client
	SessionTTL time.Duration
}

// MessageBirdSender delivers locally generated codes as SMS through the
// MessageBird messages API. The session payload is the code itself.
type MessageBirdSender struct {
	cfg    MessageBirdConfig
	bodies *sender.BodyProvider
	client *http.Client
	base   string
	ttl    time.Duration
}

// NewMessageBirdSender creates the sender from its configuration.
func NewMessageBirdSender(cfg MessageBirdConfig) (*MessageBirdSender, error) {
	if cfg.AccessKey.IsEmpty() || cfg.Originator == "" {
		return nil, fmt.Errorf("messagebird: access key and originator are required: %w", domain.ErrConfigRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		base = messageBirdDefaultBaseURL
	}
	return &MessageBirdSender{
		cfg:    cfg,
		bodies: sender.NewBodyProvider(cfg.AndroidAppHash),
		client: defaultedHTTPClient(cfg.HTTPClient),
		base:   base,
		ttl:    defaultedTTL(cfg.SessionTTL),
	}, nil
}

func (s *MessageBirdSender) Name() string { return MessageBirdName }

func (s *MessageBirdSender) SessionTTL() time.Duration { return s.ttl }

// Supports accepts SMS in any language the body table covers.
func (s *MessageBirdSender) Supports(transport domain.Transport, _ domain.PhoneNumber, languages []language.Tag, _ domain.ClientType) bool {
	return transport == domain.TransportSMS && s.bodies.SupportsLanguage(languages)
}

// Send generates a code, posts the message, and returns the code as the
// session payload. MessageBird addresses recipients without the '+'.
func (s *MessageBirdSender) Send(
	ctx context.Context,
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	client domain.ClientType,
) ([]byte, error) {
	if transport != domain.TransportSMS {
		return nil, fmt.Errorf("messagebird: transport %s: %w", transport, domain.ErrSenderUnavailable)
	}

	code, err := sender.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("messagebird: %w", err)
	}

	form := url.Values{}
	form.Set("recipients", fmt.Sprintf("%d", phone.E164()))
	form.Set("originator", s.cfg.Originator)
	form.Set("body", s.bodies.SMSBody(code, client, languages))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/messages", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("messagebird: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "AccessKey "+s.cfg.AccessKey.Expose())

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("messagebird: %v: %w", err, domain.ErrSenderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, twilioMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("messagebird: read response: %v: %w", err, domain.ErrSenderUnavailable)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("messagebird: send: %w", classifyMessageBirdError(resp.StatusCode, body))
	}

	return []byte(code), nil
}

// Check compares the submitted code against the stored one in constant
// time. No upstream round-trip.
func (s *MessageBirdSender) Check(_ context.Context, submittedCode string, payload []byte) (bool, error) {
	return sender.CodeMatches(submittedCode, payload), nil
}

// classifyMessageBirdError maps a MessageBird error envelope onto the
// sender taxonomy.
func classifyMessageBirdError(httpStatus int, body []byte) error {
	var envelope struct {
		Errors []struct {
			Code        int    `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	_ = json.Unmarshal(body, &envelope)

	code := 0
	description := ""
	if len(envelope.Errors) > 0 {
		code = envelope.Errors[0].Code
		description = envelope.Errors[0].Description
	}
	base := fmt.Errorf("messagebird: status %d code %d: %s", httpStatus, code, description)

	switch code {
	case messageBirdErrParams, messageBirdErrRecipient, messageBirdErrBadRequest:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderIllegalArgument)
	case messageBirdErrThrottled:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderUnavailable)
	}

	switch {
	case httpStatus == http.StatusTooManyRequests || httpStatus >= 500:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderUnavailable)
	case httpStatus == http.StatusUnprocessableEntity || httpStatus == http.StatusBadRequest:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderIllegalArgument)
	default:
		return fmt.Errorf("%w: %w", base, domain.ErrSenderRejected)
	}
}
