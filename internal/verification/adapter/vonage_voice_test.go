package adapter_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/domain/domaintest"
	"github.com/aelexs/phone-verification-service/internal/verification/adapter"
)

type vonageCallRequest struct {
	To []struct {
		Type   string `json:"type"`
		Number string `json:"number"`
	} `json:"to"`
	From struct {
		Type   string `json:"type"`
		Number string `json:"number"`
	} `json:"from"`
	NCCO []struct {
		Action   string `json:"action"`
		Text     string `json:"text"`
		Language string `json:"language"`
	} `json:"ncco"`
}

func newVonageSender(t *testing.T, key *rsa.PrivateKey, handler http.HandlerFunc) *adapter.VonageVoiceSender {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := adapter.NewVonageVoiceSender(adapter.VonageVoiceConfig{
		ApplicationID: "app-1234",
		PrivateKey:    key,
		FromNumber:    "12025550199",
		BaseURL:       server.URL,
		HTTPClient:    server.Client(),
		Clock:         domaintest.NewFakeClock(memTestStart),
	})
	require.NoError(t, err)
	return s
}

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestVonageVoiceSend(t *testing.T) {
	key := testRSAKey(t)

	var gotPath, gotAuth string
	var gotCall vonageCallRequest
	s := newVonageSender(t, key, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCall))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"call-1","status":"started"}`))
	})

	payload, err := s.Send(context.Background(), domain.TransportVoice,
		domain.MustPhoneNumber("+12025550100"), []language.Tag{language.Spanish}, domain.ClientTypeIOS)
	require.NoError(t, err)

	code := string(payload)
	assert.Regexp(t, sixDigits, code)
	assert.Equal(t, "/v1/calls", gotPath)

	// The call is authenticated with a short-lived application JWT signed by
	// the configured key.
	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	token, err := jwt.Parse(strings.TrimPrefix(gotAuth, "Bearer "), func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return memTestStart }))
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "app-1234", claims["application_id"])
	assert.NotEmpty(t, claims["jti"])
	assert.Equal(t, float64(memTestStart.Add(time.Minute).Unix()), claims["exp"])

	// Vonage addresses both legs without the '+'.
	require.Len(t, gotCall.To, 1)
	assert.Equal(t, "phone", gotCall.To[0].Type)
	assert.Equal(t, "12025550100", gotCall.To[0].Number)
	assert.Equal(t, "12025550199", gotCall.From.Number)

	// The NCCO talk action spells the code digit by digit in the matched
	// text-to-speech language.
	require.Len(t, gotCall.NCCO, 1)
	assert.Equal(t, "talk", gotCall.NCCO[0].Action)
	assert.Equal(t, "es-ES", gotCall.NCCO[0].Language)
	spelled := strings.Join(strings.Split(code, ""), " ")
	assert.Contains(t, gotCall.NCCO[0].Text, spelled)
}

func TestVonageVoiceSendDefaultsToUSEnglish(t *testing.T) {
	var gotCall vonageCallRequest
	s := newVonageSender(t, testRSAKey(t), func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCall))
		_, _ = w.Write([]byte(`{"uuid":"call-1"}`))
	})

	_, err := s.Send(context.Background(), domain.TransportVoice,
		domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
	require.NoError(t, err)
	require.Len(t, gotCall.NCCO, 1)
	assert.Equal(t, "en-US", gotCall.NCCO[0].Language)
}

func TestVonageVoiceSendErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"bad request", http.StatusBadRequest, `{"title":"Bad Request","detail":"invalid to number"}`, domain.ErrSenderIllegalArgument},
		{"throttled", http.StatusTooManyRequests, `{"title":"Rate Limit"}`, domain.ErrSenderUnavailable},
		{"server error", http.StatusBadGateway, ``, domain.ErrSenderUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"title":"Unauthorized"}`, domain.ErrSenderRejected},
	}

	key := testRSAKey(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newVonageSender(t, key, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := s.Send(context.Background(), domain.TransportVoice,
				domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestVonageVoiceSendRefusesSMS(t *testing.T) {
	s := newVonageSender(t, testRSAKey(t), func(http.ResponseWriter, *http.Request) {
		t.Fatal("no upstream call expected")
	})

	_, err := s.Send(context.Background(), domain.TransportSMS,
		domain.MustPhoneNumber("+12025550100"), nil, domain.ClientTypeIOS)
	assert.ErrorIs(t, err, domain.ErrSenderUnavailable)
}

func TestVonageVoiceCheckIsLocal(t *testing.T) {
	s := newVonageSender(t, testRSAKey(t), func(http.ResponseWriter, *http.Request) {
		t.Fatal("check must not call upstream")
	})

	ok, err := s.Check(context.Background(), "123456", []byte("123456"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVonageVoiceSupports(t *testing.T) {
	s := newVonageSender(t, testRSAKey(t), func(http.ResponseWriter, *http.Request) {})
	phone := domain.MustPhoneNumber("+12025550100")

	assert.True(t, s.Supports(domain.TransportVoice, phone, []language.Tag{language.German}, domain.ClientTypeIOS))
	assert.False(t, s.Supports(domain.TransportSMS, phone, nil, domain.ClientTypeIOS))
}

func TestNewVonageVoiceSenderValidation(t *testing.T) {
	_, err := adapter.NewVonageVoiceSender(adapter.VonageVoiceConfig{ApplicationID: "app-1234"})
	assert.ErrorIs(t, err, domain.ErrConfigRequired)
}
