package adapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/verification/adapter"
)

type stubSNS struct {
	publishFn func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (s *stubSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if s.publishFn != nil {
		return s.publishFn(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSSMSSend(t *testing.T) {
	t.Run("publishes a transactional SMS and returns the code", func(t *testing.T) {
		var captured *sns.PublishInput
		client := &stubSNS{
			publishFn: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
				captured = params
				return &sns.PublishOutput{}, nil
			},
		}
		s := adapter.NewSNSSMSSender(client, adapter.SNSSMSConfig{})

		payload, err := s.Send(context.Background(), domain.TransportSMS,
			domain.MustPhoneNumber("+12025550100"), []language.Tag{language.English}, domain.ClientTypeIOS)
		require.NoError(t, err)

		assert.Regexp(t, sixDigits, string(payload))
		require.NotNil(t, captured)
		assert.Equal(t, "+12025550100", *captured.PhoneNumber)
		assert.Contains(t, *captured.Message, string(payload))
		attr, ok := captured.MessageAttributes["AWS.SNS.SMS.SMSType"]
		require.True(t, ok)
		assert.Equal(t, "Transactional", *attr.StringValue)
		assert.NotContains(t, captured.MessageAttributes, "AWS.SNS.SMS.SenderID")
	})

	t.Run("configured sender id is attached as a message attribute", func(t *testing.T) {
		var captured *sns.PublishInput
		client := &stubSNS{
			publishFn: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
				captured = params
				return &sns.PublishOutput{}, nil
			},
		}
		s := adapter.NewSNSSMSSender(client, adapter.SNSSMSConfig{SenderID: "VERIFY"})

		_, err := s.Send(context.Background(), domain.TransportSMS,
			domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
		require.NoError(t, err)
		require.NotNil(t, captured)
		attr, ok := captured.MessageAttributes["AWS.SNS.SMS.SenderID"]
		require.True(t, ok)
		assert.Equal(t, "VERIFY", *attr.StringValue)
	})

	t.Run("android app hash lands in the message body", func(t *testing.T) {
		var message string
		client := &stubSNS{
			publishFn: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
				message = *params.Message
				return &sns.PublishOutput{}, nil
			},
		}
		s := adapter.NewSNSSMSSender(client, adapter.SNSSMSConfig{AndroidAppHash: "APPHASH123"})

		_, err := s.Send(context.Background(), domain.TransportSMS,
			domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeAndroidWithFCM)
		require.NoError(t, err)
		assert.Contains(t, message, "APPHASH123")
	})

	t.Run("voice transport is refused locally", func(t *testing.T) {
		s := adapter.NewSNSSMSSender(&stubSNS{
			publishFn: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
				t.Fatal("no publish expected")
				return nil, nil
			},
		}, adapter.SNSSMSConfig{})

		_, err := s.Send(context.Background(), domain.TransportVoice,
			domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
		assert.ErrorIs(t, err, domain.ErrSenderUnavailable)
	})
}

func TestSNSSMSSendErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			"invalid parameter",
			&snstypes.InvalidParameterException{Message: strRef("Invalid parameter: PhoneNumber")},
			domain.ErrSenderIllegalArgument,
		},
		{
			"opted out",
			&snstypes.EndpointDisabledException{Message: strRef("Endpoint is disabled")},
			domain.ErrSenderRejected,
		},
		{
			"throttled",
			&smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded", Fault: smithy.FaultClient},
			domain.ErrSenderUnavailable,
		},
		{
			"other client fault",
			&smithy.GenericAPIError{Code: "AuthorizationError", Message: "not authorized", Fault: smithy.FaultClient},
			domain.ErrSenderRejected,
		},
		{
			"network failure",
			errors.New("dial tcp: connection refused"),
			domain.ErrSenderUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := adapter.NewSNSSMSSender(&stubSNS{
				publishFn: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
					return nil, tc.err
				},
			}, adapter.SNSSMSConfig{})

			_, err := s.Send(context.Background(), domain.TransportSMS,
				domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSNSSMSSendCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := adapter.NewSNSSMSSender(&stubSNS{
		publishFn: func(ctx context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
			cancel()
			return nil, ctx.Err()
		},
	}, adapter.SNSSMSConfig{})

	_, err := s.Send(ctx, domain.TransportSMS,
		domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	// Cancellation is not a sender failure.
	assert.NotErrorIs(t, err, domain.ErrSenderUnavailable)
}

func TestSNSSMSCheckIsLocal(t *testing.T) {
	s := adapter.NewSNSSMSSender(&stubSNS{}, adapter.SNSSMSConfig{})

	ok, err := s.Check(context.Background(), "123456", []byte("123456"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Check(context.Background(), "999999", []byte("123456"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSNSSMSSupports(t *testing.T) {
	s := adapter.NewSNSSMSSender(&stubSNS{}, adapter.SNSSMSConfig{})
	phone := domain.MustPhoneNumber("+12025550100")

	assert.True(t, s.Supports(domain.TransportSMS, phone, []language.Tag{language.French}, domain.ClientTypeIOS))
	assert.False(t, s.Supports(domain.TransportVoice, phone, nil, domain.ClientTypeIOS))
	assert.Equal(t, domain.DefaultSessionTTL, s.SessionTTL())
}

func strRef(s string) *string { return &s }
