// Package config provides configuration loading using koanf.
// Precedence: environment variables over compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	Logging LoggingConfig `koanf:"logging"`

	// Service configuration
	Verification VerificationConfig `koanf:"verification"`

	// Infrastructure configurations
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
	Redis    RedisConfig    `koanf:"redis"`
	AWS      AWSConfig      `koanf:"aws"`

	// Sender routing and provider credentials
	Senders     SendersConfig     `koanf:"senders"`
	Twilio      TwilioConfig      `koanf:"twilio"`
	MessageBird MessageBirdConfig `koanf:"messagebird"`
	Vonage      VonageConfig      `koanf:"vonage"`
	SNS         SNSConfig         `koanf:"sns"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// VerificationConfig holds the verification service's listen ports.
type VerificationConfig struct {
	HTTPPort int `koanf:"http_port"`
	GRPCPort int `koanf:"grpc_port"`
}

// DynamoDBConfig holds DynamoDB configuration.
type DynamoDBConfig struct {
	Endpoint      string        `koanf:"endpoint"` // Empty for production (uses default AWS endpoint)
	Timeout       time.Duration `koanf:"timeout"`
	SessionsTable string        `koanf:"sessions_table"`
	AttemptsTable string        `koanf:"attempts_table"` // Empty disables the attempt journal
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Required outside local
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// AWSConfig holds AWS SDK configuration.
type AWSConfig struct {
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"` // LocalStack endpoint for development
}

// SendersConfig holds code-sender routing.
//
// Routes entries take the form "<calling code>[:<transport>]=<sender>",
// e.g. "1:voice=twilio-verify" or "44=messagebird-sms". An entry without
// a transport applies to both sms and voice.
type SendersConfig struct {
	Default        string   `koanf:"default"` // Required outside local
	Routes         []string `koanf:"routes"`
	AndroidAppHash string   `koanf:"android_app_hash"` // Appended for android clients with FCM
}

// TwilioConfig holds credentials for the Twilio senders.
type TwilioConfig struct {
	AccountSID      string              `koanf:"account_sid"`
	AuthToken       domain.SecretString `koanf:"auth_token"`
	AuthTokenSecret string              `koanf:"auth_token_secret"` // Secrets Manager name; overrides auth_token

	// Messaging service SIDs for the Programmable Messaging sender: one
	// pool for NANPA destinations, one for the rest of the world.
	NANPAMessagingSID  string `koanf:"nanpa_messaging_sid"`
	GlobalMessagingSID string `koanf:"global_messaging_sid"`

	VerifyServiceSID string `koanf:"verify_service_sid"`
	APIURL           string `koanf:"api_url"`
	VerifyURL        string `koanf:"verify_url"`
}

// MessageBirdConfig holds credentials for the MessageBird sender.
type MessageBirdConfig struct {
	AccessKey       domain.SecretString `koanf:"access_key"`
	AccessKeySecret string              `koanf:"access_key_secret"` // Secrets Manager name; overrides access_key
	Originator      string              `koanf:"originator"`
	APIURL          string              `koanf:"api_url"`
}

// VonageConfig holds credentials for the Vonage voice sender.
type VonageConfig struct {
	ApplicationID       string              `koanf:"application_id"`
	PrivateKey          domain.SecretString `koanf:"private_key"`           // PEM-encoded RSA key
	PrivateKeyParameter string              `koanf:"private_key_parameter"` // SSM parameter name; overrides private_key
	FromNumber          string              `koanf:"from_number"`
	APIURL              string              `koanf:"api_url"`
}

// SNSConfig holds AWS SNS configuration for the SMS sender and the
// completion event topic.
type SNSConfig struct {
	SenderID         string `koanf:"sender_id"`         // Optional alphanumeric sender id
	CompletionsTopic string `koanf:"completions_topic"` // Empty disables completion publishing
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		Verification: VerificationConfig{
			HTTPPort: 8080,
			GRPCPort: 9090,
		},

		DynamoDB: DynamoDBConfig{
			Timeout:       domain.DynamoDBTimeout,
			SessionsTable: "verification-sessions",
			AttemptsTable: "verification-attempts",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},

		Senders: SendersConfig{
			Default: "last-digits",
		},
		Twilio: TwilioConfig{
			APIURL:    "https://api.twilio.com",
			VerifyURL: "https://verify.twilio.com",
		},
		MessageBird: MessageBirdConfig{
			APIURL: "https://rest.messagebird.com",
		},
		Vonage: VonageConfig{
			APIURL: "https://api.nexmo.com",
		},

		OTEL: OTELConfig{
			ServiceName: "phone-verification",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest)
// 2. Compiled defaults (lowest)
//
// Required keys missing outside local cause startup failure.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	// Start with compiled defaults
	cfg := defaults()

	// Load environment variables. Only the first underscore nests, so
	// TWILIO_ACCOUNT_SID maps to twilio.account_sid.
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.Replace(strings.ToLower(s), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	// In local environment, most fields have sensible defaults
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
	}
	if cfg.DynamoDB.SessionsTable == "" {
		return fmt.Errorf("%w: dynamodb.sessions_table", domain.ErrConfigRequired)
	}
	if cfg.Senders.Default == "" {
		return fmt.Errorf("%w: senders.default", domain.ErrConfigRequired)
	}
	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
