package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/sender"
)

// TwilioMessagingName identifies the Twilio Programmable Messaging sender.
const TwilioMessagingName = "twilio-programmable-messaging"

const twilioDefaultBaseURL = "https://api.twilio.com"

// Compile-time check against the sender contract.
var _ sender.Sender = (*TwilioMessagingSender)(nil)

// TwilioMessagingConfig configures the Programmable Messaging sender.
type TwilioMessagingConfig struct {
	AccountSID string
	AuthToken  domain.SecretString

	// NANPASenderSID and GlobalSenderSID are the messaging service SIDs
	// used for NANPA (country code 1) and all other destinations. Separate
	// services carry different sender pools and compliance registrations.
	NANPASenderSID  string
	GlobalSenderSID string

	// AndroidAppHash, when set, is appended to SMS bodies for Android
	// clients with FCM so the SMS retriever can auto-read the code.
	AndroidAppHash string

	// BaseURL overrides the Twilio API endpoint, for tests.
	BaseURL string

	HTTPClient *http.Client
	SessionTTL time.Duration
}

// TwilioMessagingSender delivers locally generated codes as SMS through the
// Twilio Programmable Messaging API. The session payload is the code itself.
type TwilioMessagingSender struct {
	cfg    TwilioMessagingConfig
	bodies *sender.BodyProvider
	client *http.Client
	base   string
	ttl    time.Duration
}

// NewTwilioMessagingSender creates the sender from its configuration.
func NewTwilioMessagingSender(cfg TwilioMessagingConfig) (*TwilioMessagingSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken.IsEmpty() {
		return nil, fmt.Errorf("twilio messaging: account SID and auth token are required: %w", domain.ErrConfigRequired)
	}
	if cfg.NANPASenderSID == "" || cfg.GlobalSenderSID == "" {
		return nil, fmt.Errorf("twilio messaging: messaging service SIDs are required: %w", domain.ErrConfigRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		base = twilioDefaultBaseURL
	}
	return &TwilioMessagingSender{
		cfg:    cfg,
		bodies: sender.NewBodyProvider(cfg.AndroidAppHash),
		client: defaultedHTTPClient(cfg.HTTPClient),
		base:   base,
		ttl:    defaultedTTL(cfg.SessionTTL),
	}, nil
}

func (s *TwilioMessagingSender) Name() string { return TwilioMessagingName }

func (s *TwilioMessagingSender) SessionTTL() time.Duration { return s.ttl }

// Supports accepts SMS to any destination in a language the body table
// covers.
func (s *TwilioMessagingSender) Supports(transport domain.Transport, _ domain.PhoneNumber, languages []language.Tag, _ domain.ClientType) bool {
	return transport == domain.TransportSMS && s.bodies.SupportsLanguage(languages)
}

// Send generates a code, posts the message, and returns the code as the
// session payload.
func (s *TwilioMessagingSender) Send(
	ctx context.Context,
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	client domain.ClientType,
) ([]byte, error) {
	if transport != domain.TransportSMS {
		return nil, fmt.Errorf("twilio messaging: transport %s: %w", transport, domain.ErrSenderUnavailable)
	}

	code, err := sender.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("twilio messaging: %w", err)
	}

	serviceSID := s.cfg.GlobalSenderSID
	if phone.CountryCode() == 1 {
		serviceSID = s.cfg.NANPASenderSID
	}

	form := url.Values{}
	form.Set("To", phone.String())
	form.Set("MessagingServiceSid", serviceSID)
	form.Set("Body", s.bodies.SMSBody(code, client, languages))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.base, s.cfg.AccountSID)
	var resp struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := postTwilioForm(ctx, s.client, endpoint, s.cfg.AccountSID, s.cfg.AuthToken, form, &resp); err != nil {
		return nil, fmt.Errorf("twilio messaging: send: %w", err)
	}

	return []byte(code), nil
}

// Check compares the submitted code against the stored one in constant
// time. No upstream round-trip.
func (s *TwilioMessagingSender) Check(_ context.Context, submittedCode string, payload []byte) (bool, error) {
	return sender.CodeMatches(submittedCode, payload), nil
}
