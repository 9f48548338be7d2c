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

// TwilioVerifyName identifies the Twilio Verify sender.
const TwilioVerifyName = "twilio-verify"

const twilioVerifyDefaultBaseURL = "https://verify.twilio.com"

// Twilio Verify owns code lifetime: verifications live for ten minutes.
const twilioVerifyTTL = 10 * time.Minute

// Compile-time check against the sender contract.
var _ sender.Sender = (*TwilioVerifySender)(nil)

// TwilioVerifyConfig configures the Twilio Verify sender.
type TwilioVerifyConfig struct {
	AccountSID string
	AuthToken  domain.SecretString

	// ServiceSID is the Verify service handling this application.
	ServiceSID string

	// AndroidAppHash is forwarded to Verify for SMS-retriever templates.
	AndroidAppHash string

	// BaseURL overrides the Verify API endpoint, for tests.
	BaseURL string

	HTTPClient *http.Client
}

// TwilioVerifySender delegates code generation, delivery, and checking to
// the Twilio Verify v2 API. The session payload is the upstream
// verification SID.
type TwilioVerifySender struct {
	cfg    TwilioVerifyConfig
	client *http.Client
	base   string
}

// NewTwilioVerifySender creates the sender from its configuration.
func NewTwilioVerifySender(cfg TwilioVerifyConfig) (*TwilioVerifySender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken.IsEmpty() || cfg.ServiceSID == "" {
		return nil, fmt.Errorf("twilio verify: account SID, auth token, and service SID are required: %w", domain.ErrConfigRequired)
	}
	base := cfg.BaseURL
	if base == "" {
		base = twilioVerifyDefaultBaseURL
	}
	return &TwilioVerifySender{
		cfg:    cfg,
		client: defaultedHTTPClient(cfg.HTTPClient),
		base:   base,
	}, nil
}

func (s *TwilioVerifySender) Name() string { return TwilioVerifyName }

func (s *TwilioVerifySender) SessionTTL() time.Duration { return twilioVerifyTTL }

// Supports accepts both transports to any destination; Verify falls back
// to English for locales it has no template for, so language preferences
// never disqualify it.
func (s *TwilioVerifySender) Supports(transport domain.Transport, _ domain.PhoneNumber, _ []language.Tag, _ domain.ClientType) bool {
	return transport.IsValid()
}

// Send starts an upstream verification and returns its SID as the session
// payload.
func (s *TwilioVerifySender) Send(
	ctx context.Context,
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	client domain.ClientType,
) ([]byte, error) {
	channel := "sms"
	if transport == domain.TransportVoice {
		channel = "call"
	}

	form := url.Values{}
	form.Set("To", phone.String())
	form.Set("Channel", channel)
	form.Set("Locale", verifyLocale(languages))
	if client == domain.ClientTypeAndroidWithFCM && s.cfg.AndroidAppHash != "" && transport == domain.TransportSMS {
		form.Set("AppHash", s.cfg.AndroidAppHash)
	}

	endpoint := fmt.Sprintf("%s/v2/Services/%s/Verifications", s.base, s.cfg.ServiceSID)
	var resp struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := postTwilioForm(ctx, s.client, endpoint, s.cfg.AccountSID, s.cfg.AuthToken, form, &resp); err != nil {
		return nil, fmt.Errorf("twilio verify: send: %w", err)
	}
	if resp.SID == "" {
		return nil, fmt.Errorf("twilio verify: send: missing verification SID: %w", domain.ErrSenderUnavailable)
	}

	return []byte(resp.SID), nil
}

// Check submits the candidate code to the upstream verification check.
// An upstream 404 means the verification expired or was already consumed,
// which answers as a plain mismatch rather than an error.
func (s *TwilioVerifySender) Check(ctx context.Context, submittedCode string, payload []byte) (bool, error) {
	form := url.Values{}
	form.Set("VerificationSid", string(payload))
	form.Set("Code", submittedCode)

	endpoint := fmt.Sprintf("%s/v2/Services/%s/VerificationCheck", s.base, s.cfg.ServiceSID)
	var resp struct {
		Status string `json:"status"`
	}
	if err := postTwilioForm(ctx, s.client, endpoint, s.cfg.AccountSID, s.cfg.AuthToken, form, &resp); err != nil {
		if isTwilioNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("twilio verify: check: %w", err)
	}

	return resp.Status == "approved", nil
}

// verifyLocale picks the best supported Verify locale for the caller's
// preferences, defaulting to English.
func verifyLocale(languages []language.Tag) string {
	if len(languages) == 0 {
		return "en"
	}
	tag, _, conf := messageLocaleMatcher.Match(languages...)
	if conf == language.No {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}
