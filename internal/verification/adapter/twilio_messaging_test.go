package adapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/verification/adapter"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func newTwilioMessagingSender(t *testing.T, handler http.HandlerFunc) *adapter.TwilioMessagingSender {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := adapter.NewTwilioMessagingSender(adapter.TwilioMessagingConfig{
		AccountSID:      "AC0000000000000000000000000000test",
		AuthToken:       domain.SecretString("token"),
		NANPASenderSID:  "MGnanpa",
		GlobalSenderSID: "MGglobal",
		AndroidAppHash:  "APPHASH123",
		BaseURL:         server.URL,
		HTTPClient:      server.Client(),
	})
	require.NoError(t, err)
	return s
}

func TestTwilioMessagingSend(t *testing.T) {
	t.Run("posts the message and returns the code", func(t *testing.T) {
		var gotPath, gotUser, gotPass string
		var gotForm map[string][]string
		s := newTwilioMessagingSender(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotUser, gotPass, _ = r.BasicAuth()
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
		})

		payload, err := s.Send(context.Background(), domain.TransportSMS,
			domain.MustPhoneNumber("+12025550100"), []language.Tag{language.English}, domain.ClientTypeIOS)
		require.NoError(t, err)

		assert.Regexp(t, sixDigits, string(payload))
		assert.Equal(t, "/2010-04-01/Accounts/AC0000000000000000000000000000test/Messages.json", gotPath)
		assert.Equal(t, "AC0000000000000000000000000000test", gotUser)
		assert.Equal(t, "token", gotPass)
		assert.Equal(t, "+12025550100", gotForm["To"][0])
		assert.Equal(t, "MGnanpa", gotForm["MessagingServiceSid"][0])
		assert.Contains(t, gotForm["Body"][0], string(payload))
	})

	t.Run("non-NANPA destinations use the global service", func(t *testing.T) {
		var serviceSID string
		s := newTwilioMessagingSender(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			serviceSID = r.PostForm.Get("MessagingServiceSid")
			_, _ = w.Write([]byte(`{"sid":"SM123"}`))
		})

		_, err := s.Send(context.Background(), domain.TransportSMS,
			domain.MustPhoneNumber("+447400123456"), []language.Tag{language.English}, domain.ClientTypeIOS)
		require.NoError(t, err)
		assert.Equal(t, "MGglobal", serviceSID)
	})

	t.Run("android with FCM gets the app hash in the body", func(t *testing.T) {
		var body string
		s := newTwilioMessagingSender(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			body = r.PostForm.Get("Body")
			_, _ = w.Write([]byte(`{"sid":"SM123"}`))
		})

		_, err := s.Send(context.Background(), domain.TransportSMS,
			domain.MustPhoneNumber("+12025550100"), []language.Tag{language.English}, domain.ClientTypeAndroidWithFCM)
		require.NoError(t, err)
		assert.Contains(t, body, "APPHASH123")
	})

	t.Run("voice transport is refused locally", func(t *testing.T) {
		s := newTwilioMessagingSender(t, func(http.ResponseWriter, *http.Request) {
			t.Fatal("no upstream call expected")
		})

		_, err := s.Send(context.Background(), domain.TransportVoice,
			domain.MustPhoneNumber("+12025550100"), []language.Tag{language.English}, domain.ClientTypeIOS)
		assert.ErrorIs(t, err, domain.ErrSenderUnavailable)
	})
}

func TestTwilioMessagingSendErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"invalid to number", http.StatusBadRequest, `{"code":21211,"message":"Invalid 'To' Phone Number"}`, domain.ErrSenderIllegalArgument},
		{"region not enabled", http.StatusBadRequest, `{"code":21408,"message":"Permission to send not enabled"}`, domain.ErrSenderIllegalArgument},
		{"landline", http.StatusBadRequest, `{"code":21614,"message":"not a mobile number"}`, domain.ErrSenderIllegalArgument},
		{"opted out", http.StatusBadRequest, `{"code":21610,"message":"unsubscribed recipient"}`, domain.ErrSenderRejected},
		{"throttled", http.StatusTooManyRequests, `{"code":20429,"message":"too many requests"}`, domain.ErrSenderUnavailable},
		{"upstream outage", http.StatusServiceUnavailable, `{"code":20503,"message":"service unavailable"}`, domain.ErrSenderUnavailable},
		{"unknown 400 without code", http.StatusBadRequest, `not even json`, domain.ErrSenderIllegalArgument},
		{"unknown 403", http.StatusForbidden, `{"code":0}`, domain.ErrSenderRejected},
		{"plain 500", http.StatusInternalServerError, ``, domain.ErrSenderUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTwilioMessagingSender(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := s.Send(context.Background(), domain.TransportSMS,
				domain.MustPhoneNumber("+12025550100"), []language.Tag{language.English}, domain.ClientTypeIOS)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestTwilioMessagingSendUnreachableUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := server.Client()
	server.Close()

	s, err := adapter.NewTwilioMessagingSender(adapter.TwilioMessagingConfig{
		AccountSID:      "AC123",
		AuthToken:       domain.SecretString("token"),
		NANPASenderSID:  "MGnanpa",
		GlobalSenderSID: "MGglobal",
		BaseURL:         server.URL,
		HTTPClient:      client,
	})
	require.NoError(t, err)

	_, err = s.Send(context.Background(), domain.TransportSMS,
		domain.MustPhoneNumber("+12025550100"), []language.Tag{language.English}, domain.ClientTypeIOS)
	assert.ErrorIs(t, err, domain.ErrSenderUnavailable)
}

func TestTwilioMessagingCheckIsLocal(t *testing.T) {
	s := newTwilioMessagingSender(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("check must not call upstream")
	})

	ok, err := s.Check(context.Background(), "123456", []byte("123456"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Check(context.Background(), "654321", []byte("123456"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTwilioMessagingSupports(t *testing.T) {
	s := newTwilioMessagingSender(t, func(http.ResponseWriter, *http.Request) {})
	phone := domain.MustPhoneNumber("+12025550100")

	assert.True(t, s.Supports(domain.TransportSMS, phone, []language.Tag{language.Spanish}, domain.ClientTypeIOS))
	assert.False(t, s.Supports(domain.TransportVoice, phone, []language.Tag{language.English}, domain.ClientTypeIOS))
	assert.False(t, s.Supports(domain.TransportSMS, phone, []language.Tag{language.Japanese}, domain.ClientTypeIOS))
}

func TestNewTwilioMessagingSenderValidation(t *testing.T) {
	_, err := adapter.NewTwilioMessagingSender(adapter.TwilioMessagingConfig{
		AccountSID: "AC123",
		AuthToken:  domain.SecretString("token"),
	})
	assert.ErrorIs(t, err, domain.ErrConfigRequired)

	_, err = adapter.NewTwilioMessagingSender(adapter.TwilioMessagingConfig{
		NANPASenderSID:  "MGnanpa",
		GlobalSenderSID: "MGglobal",
	})
	assert.ErrorIs(t, err, domain.ErrConfigRequired)
}
