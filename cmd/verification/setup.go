package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	verificationv1 "github.com/aelexs/phone-verification-service/api/verification/v1"
	"github.com/aelexs/phone-verification-service/internal/config"
	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/dynamo"
	"github.com/aelexs/phone-verification-service/internal/redis"
	"github.com/aelexs/phone-verification-service/internal/sender"
	"github.com/aelexs/phone-verification-service/internal/server"
	"github.com/aelexs/phone-verification-service/internal/verification/adapter"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
	"github.com/aelexs/phone-verification-service/internal/verification/port"
)

// setup is the verification service composition root. It builds the session
// store, the rate limiters, the sender pipeline, and the completion sinks
// for the configured environment, then registers the gRPC handler and the
// HTTP read mirror.
//
// Local runs entirely in-process: in-memory store, allow-all limiters, and
// the synthetic last-digits sender. Everything else uses DynamoDB, Redis,
// and the configured provider senders.
func setup(ctx context.Context, deps server.SetupDeps) (func(context.Context) error, error) {
	cfg := deps.Config
	logger := deps.Logger
	clock := domain.RealClock{}

	var (
		store       app.SessionStore
		limiters    app.RateLimiters
		senders     []sender.Sender
		completions []app.CompletionSink
		cleanups    []func() error
	)

	if cfg.IsLocal() {
		memStore := adapter.NewMemorySessionStore(clock)
		cleanups = append(cleanups, func() error { memStore.Close(); return nil })
		store = memStore
		limiters = adapter.NewAllowAllRateLimiters()
		senders = []sender.Sender{sender.NewLastDigitsSender()}
		logger.InfoContext(ctx, "using in-memory store, allow-all limiters, and the last-digits sender")
	} else {
		dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
			Endpoint: cfg.DynamoDB.Endpoint,
			Region:   cfg.AWS.Region,
			Timeout:  cfg.DynamoDB.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("verification setup: create dynamo client: %w", err)
		}
		store = adapter.NewDynamoSessionStore(dynamoClient.DB, cfg.DynamoDB.SessionsTable, clock)

		redisClient := redis.NewClient(redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		cleanups = append(cleanups, redisClient.Close)
		limiters = adapter.NewRateLimiters(redisClient.RDB, clock, logger)

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("verification setup: load AWS config: %w", err)
		}
		endpoint := cfg.AWS.Endpoint
		snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
			if endpoint != "" {
				o.BaseEndpoint = &endpoint
			}
		})
		creds := adapter.NewCredentialSource(
			secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
				if endpoint != "" {
					o.BaseEndpoint = &endpoint
				}
			}),
			awsssm.NewFromConfig(awsCfg, func(o *awsssm.Options) {
				if endpoint != "" {
					o.BaseEndpoint = &endpoint
				}
			}),
		)

		senders, err = buildProviderSenders(ctx, cfg, creds, snsClient, clock)
		if err != nil {
			return nil, fmt.Errorf("verification setup: build senders: %w", err)
		}

		if cfg.DynamoDB.AttemptsTable != "" {
			completions = append(completions,
				adapter.NewDynamoCompletionJournal(dynamoClient.DB, cfg.DynamoDB.AttemptsTable))
		}
		if cfg.SNS.CompletionsTopic != "" {
			completions = append(completions,
				adapter.NewSNSCompletionPublisher(snsClient, cfg.SNS.CompletionsTopic))
		}
	}

	registry, err := sender.NewRegistry(senders...)
	if err != nil {
		return nil, fmt.Errorf("verification setup: build sender registry: %w", err)
	}
	strategy, err := sender.NewStrategy(registry, cfg.Senders.Routes, cfg.Senders.Default)
	if err != nil {
		return nil, fmt.Errorf("verification setup: build sender strategy: %w", err)
	}

	svc := app.NewService(app.ServiceConfig{
		Store:       store,
		Limiters:    limiters,
		Senders:     registry,
		Strategy:    strategy,
		Dispatcher:  sender.NewDispatcher(domain.DispatchPoolSize, domain.UpstreamCallTimeout),
		Completions: completions,
		Clock:       clock,
		Logger:      logger,
	})

	handler := port.NewHandler(svc)
	verificationv1.RegisterVerificationServiceServer(deps.GRPCServer, handler)

	gwMux := runtime.NewServeMux()
	if err := port.NewReadMirror(svc).Register(gwMux); err != nil {
		return nil, fmt.Errorf("verification setup: register read mirror: %w", err)
	}
	deps.HTTPMux.Handle("/v1/", gwMux)

	logger.InfoContext(ctx, "verification service initialized",
		slog.Int("senders", len(senders)),
		slog.Int("completion_sinks", len(completions)),
		slog.String("default_sender", cfg.Senders.Default),
	)

	cleanup := func(context.Context) error {
		svc.Wait()
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return cleanup, nil
}

// buildProviderSenders constructs every provider sender the configuration
// carries credentials for. Providers without credentials are skipped;
// NewStrategy fails later if the configured default is among the missing.
func buildProviderSenders(
	ctx context.Context,
	cfg *config.Config,
	creds *adapter.CredentialSource,
	snsClient *sns.Client,
	clock domain.Clock,
) ([]sender.Sender, error) {
	// SNS needs no extra credentials beyond the AWS client itself.
	senders := []sender.Sender{
		adapter.NewSNSSMSSender(snsClient, adapter.SNSSMSConfig{
			AndroidAppHash: cfg.Senders.AndroidAppHash,
			SenderID:       cfg.SNS.SenderID,
		}),
	}

	twilioToken := cfg.Twilio.AuthToken
	if cfg.Twilio.AuthTokenSecret != "" {
		var err error
		twilioToken, err = creds.Secret(ctx, cfg.Twilio.AuthTokenSecret)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Twilio.AccountSID != "" && !twilioToken.IsEmpty() {
		if cfg.Twilio.NANPAMessagingSID != "" && cfg.Twilio.GlobalMessagingSID != "" {
			tm, err := adapter.NewTwilioMessagingSender(adapter.TwilioMessagingConfig{
				AccountSID:      cfg.Twilio.AccountSID,
				AuthToken:       twilioToken,
				NANPASenderSID:  cfg.Twilio.NANPAMessagingSID,
				GlobalSenderSID: cfg.Twilio.GlobalMessagingSID,
				AndroidAppHash:  cfg.Senders.AndroidAppHash,
				BaseURL:         cfg.Twilio.APIURL,
			})
			if err != nil {
				return nil, err
			}
			senders = append(senders, tm)
		}
		if cfg.Twilio.VerifyServiceSID != "" {
			tv, err := adapter.NewTwilioVerifySender(adapter.TwilioVerifyConfig{
				AccountSID:     cfg.Twilio.AccountSID,
				AuthToken:      twilioToken,
				ServiceSID:     cfg.Twilio.VerifyServiceSID,
				AndroidAppHash: cfg.Senders.AndroidAppHash,
				BaseURL:        cfg.Twilio.VerifyURL,
			})
			if err != nil {
				return nil, err
			}
			senders = append(senders, tv)
		}
	}

	mbKey := cfg.MessageBird.AccessKey
	if cfg.MessageBird.AccessKeySecret != "" {
		var err error
		mbKey, err = creds.Secret(ctx, cfg.MessageBird.AccessKeySecret)
		if err != nil {
			return nil, err
		}
	}
	if !mbKey.IsEmpty() {
		mb, err := adapter.NewMessageBirdSender(adapter.MessageBirdConfig{
			AccessKey:      mbKey,
			Originator:     cfg.MessageBird.Originator,
			AndroidAppHash: cfg.Senders.AndroidAppHash,
			BaseURL:        cfg.MessageBird.APIURL,
		})
		if err != nil {
			return nil, err
		}
		senders = append(senders, mb)
	}

	if cfg.Vonage.ApplicationID != "" {
		key, err := vonagePrivateKey(ctx, cfg, creds)
		if err != nil {
			return nil, err
		}
		vv, err := adapter.NewVonageVoiceSender(adapter.VonageVoiceConfig{
			ApplicationID: cfg.Vonage.ApplicationID,
			PrivateKey:    key,
			FromNumber:    cfg.Vonage.FromNumber,
			BaseURL:       cfg.Vonage.APIURL,
			Clock:         clock,
		})
		if err != nil {
			return nil, err
		}
		senders = append(senders, vv)
	}

	return senders, nil
}

// vonagePrivateKey resolves the Vonage signing key: from SSM Parameter
// Store when a parameter name is configured, otherwise from the inline PEM.
func vonagePrivateKey(ctx context.Context, cfg *config.Config, creds *adapter.CredentialSource) (*rsa.PrivateKey, error) {
	if cfg.Vonage.PrivateKeyParameter != "" {
		pemData, err := creds.Parameter(ctx, cfg.Vonage.PrivateKeyParameter)
		if err != nil {
			return nil, err
		}
		return adapter.ParseRSAPrivateKey(pemData)
	}
	return adapter.ParseRSAPrivateKey(cfg.Vonage.PrivateKey.Expose())
}
