package adapter

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// smClient is the narrow consumer-defined interface for Secrets Manager.
type smClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ssmClient is the narrow consumer-defined interface for SSM Parameter Store.
type ssmClient interface {
	GetParameter(ctx context.Context, params *awsssm.GetParameterInput, optFns ...func(*awsssm.Options)) (*awsssm.GetParameterOutput, error)
}

// CredentialSource loads provider credentials from AWS Secrets Manager and
// non-secret provider settings from SSM Parameter Store. The wiring layer
// reads everything eagerly at start-up: the service must not start with a
// partially configured sender.
type CredentialSource struct {
	sm  smClient
	ssm ssmClient
}

// NewCredentialSource creates a source over the given AWS clients.
func NewCredentialSource(sm smClient, ssm ssmClient) *CredentialSource {
	return &CredentialSource{sm: sm, ssm: ssm}
}

// Secret fetches one secret string from Secrets Manager.
func (c *CredentialSource) Secret(ctx context.Context, name string) (domain.SecretString, error) {
	out, err := c.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("credentials: fetch secret %q: %w", name, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("credentials: secret %q has no value: %w", name, domain.ErrConfigRequired)
	}
	return domain.SecretString(*out.SecretString), nil
}

// Parameter fetches one decrypted parameter from SSM.
func (c *CredentialSource) Parameter(ctx context.Context, name string) (string, error) {
	out, err := c.ssm.GetParameter(ctx, &awsssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("credentials: fetch parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", fmt.Errorf("credentials: parameter %q has no value: %w", name, domain.ErrConfigRequired)
	}
	return *out.Parameter.Value, nil
}

// RSAPrivateKey fetches and parses a PEM-encoded RSA private key secret
// (the Vonage application key). PKCS#1 and PKCS#8 encodings are accepted.
func (c *CredentialSource) RSAPrivateKey(ctx context.Context, name string) (*rsa.PrivateKey, error) {
	secret, err := c.Secret(ctx, name)
	if err != nil {
		return nil, err
	}
	key, err := ParseRSAPrivateKey(secret.Expose())
	if err != nil {
		return nil, fmt.Errorf("credentials: secret %q: %w", name, err)
	}
	return key, nil
}

// ParseRSAPrivateKey parses a PEM-encoded RSA private key in PKCS#1 or
// PKCS#8 form. The wiring layer uses it for keys configured inline rather
// than fetched from Secrets Manager.
func ParseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, not RSA", parsed)
	}
	return key, nil
}
