package domain_test

import (
	"testing"
	"time"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTransportIsValid(t *testing.T) {
	tests := []struct {
		name      string
		transport domain.Transport
		want      bool
	}{
		{name: "sms is valid", transport: "sms", want: true},
		{name: "voice is valid", transport: "voice", want: true},
		{name: "empty is invalid", transport: "", want: false},
		{name: "email is invalid", transport: "email", want: false},
		{name: "SMS is invalid (case-sensitive)", transport: "SMS", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.transport.IsValid()

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimitSchedules(t *testing.T) {
	tests := []struct {
		name   string
		delays []time.Duration
	}{
		{name: "session creation", delays: domain.SessionCreationDelays},
		{name: "send sms", delays: domain.SendSMSDelays},
		{name: "send voice", delays: domain.SendVoiceDelays},
		{name: "check", delays: domain.CheckDelays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.delays)
			assert.Equal(t, time.Duration(0), tt.delays[0], "first attempt should not be delayed")

			for i := 1; i < len(tt.delays); i++ {
				assert.GreaterOrEqual(t, tt.delays[i], tt.delays[i-1], "delays should not shrink between attempts")
			}
		})
	}
}
