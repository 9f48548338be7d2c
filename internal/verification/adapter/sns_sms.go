package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/sender"
)

// SNSSMSName identifies the Amazon SNS SMS sender.
const SNSSMSName = "sns-sms"

// snsPublisher is a narrow, consumer-defined interface for the subset of
// SNS operations the adapters here need. The real *sns.Client satisfies it.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Compile-time check against the sender contract.
var _ sender.Sender = (*SNSSMSSender)(nil)

// SNSSMSConfig configures the SNS SMS sender.
type SNSSMSConfig struct {
	// AndroidAppHash, when set, is appended to SMS bodies for Android
	// clients with FCM.
	AndroidAppHash string

	// SenderID is the optional alphanumeric sender id shown to recipients
	// in countries that support it.
	SenderID string

	SessionTTL time.Duration
}

// SNSSMSSender delivers locally generated codes as SMS via Amazon SNS
// direct publish to a phone number. The session payload is the code itself.
type SNSSMSSender struct {
	client   snsPublisher
	bodies   *sender.BodyProvider
	senderID string
	ttl      time.Duration
}

// NewSNSSMSSender creates the sender over the given SNS client.
func NewSNSSMSSender(client snsPublisher, cfg SNSSMSConfig) *SNSSMSSender {
	return &SNSSMSSender{
		client:   client,
		bodies:   sender.NewBodyProvider(cfg.AndroidAppHash),
		senderID: cfg.SenderID,
		ttl:      defaultedTTL(cfg.SessionTTL),
	}
}

func (s *SNSSMSSender) Name() string { return SNSSMSName }

func (s *SNSSMSSender) SessionTTL() time.Duration { return s.ttl }

// Supports accepts SMS in any language the body table covers.
func (s *SNSSMSSender) Supports(transport domain.Transport, _ domain.PhoneNumber, languages []language.Tag, _ domain.ClientType) bool {
	return transport == domain.TransportSMS && s.bodies.SupportsLanguage(languages)
}

// Send generates a code and publishes it as a transactional SMS.
func (s *SNSSMSSender) Send(
	ctx context.Context,
	transport domain.Transport,
	phone domain.PhoneNumber,
	languages []language.Tag,
	client domain.ClientType,
) ([]byte, error) {
	if transport != domain.TransportSMS {
		return nil, fmt.Errorf("sns sms: transport %s: %w", transport, domain.ErrSenderUnavailable)
	}

	code, err := sender.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("sns sms: %w", err)
	}

	phoneNumber := phone.String()
	message := s.bodies.SMSBody(code, client, languages)
	smsType := "Transactional"

	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    strPtr("String"),
			StringValue: &smsType,
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    strPtr("String"),
			StringValue: &s.senderID,
		}
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       &phoneNumber,
		Message:           &message,
		MessageAttributes: attrs,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("sns sms: send: %w", classifySNSError(err))
	}

	return []byte(code), nil
}

// Check compares the submitted code against the stored one in constant
// time. No upstream round-trip.
func (s *SNSSMSSender) Check(_ context.Context, submittedCode string, payload []byte) (bool, error) {
	return sender.CodeMatches(submittedCode, payload), nil
}

// classifySNSError maps SDK errors onto the sender taxonomy.
func classifySNSError(err error) error {
	var invalidParam *snstypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return fmt.Errorf("%v: %w", err, domain.ErrSenderIllegalArgument)
	}
	var optedOut *snstypes.EndpointDisabledException
	if errors.As(err, &optedOut) {
		return fmt.Errorf("%v: %w", err, domain.ErrSenderRejected)
	}

	var httpErr *smithy.GenericAPIError
	if errors.As(err, &httpErr) && httpErr.ErrorFault() == smithy.FaultClient {
		if httpErr.ErrorCode() == "Throttling" || httpErr.ErrorCode() == "ThrottledException" {
			return fmt.Errorf("%v: %w", err, domain.ErrSenderUnavailable)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrSenderRejected)
	}
	return fmt.Errorf("%v: %w", err, domain.ErrSenderUnavailable)
}

func strPtr(s string) *string { return &s }
