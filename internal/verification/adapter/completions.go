package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/dynamo"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

// Compile-time checks against the app contract.
var (
	_ app.CompletionSink = (*DynamoCompletionJournal)(nil)
	_ app.CompletionSink = (*SNSCompletionPublisher)(nil)
)

// journalDynamoDB is the narrow interface for the completion journal.
type journalDynamoDB interface {
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
}

// completionItem is the DynamoDB row shape for the attempts journal.
// Rows age out via the ttl attribute after the retention period.
type completionItem struct {
	SessionID     string `dynamodbav:"session_id"`
	Region        string `dynamodbav:"region"`
	SenderName    string `dynamodbav:"sender_name,omitempty"`
	SMSAttempts   int    `dynamodbav:"sms_attempts"`
	VoiceAttempts int    `dynamodbav:"voice_attempts"`
	CheckAttempts int    `dynamodbav:"check_attempts"`
	Verified      bool   `dynamodbav:"verified"`
	CreatedAt     string `dynamodbav:"created_at"`
	CompletedAt   string `dynamodbav:"completed_at"`
	TTL           int64  `dynamodbav:"ttl"`
}

// DynamoCompletionJournal writes one journal row per completed
// verification for offline analytics.
type DynamoCompletionJournal struct {
	db        journalDynamoDB
	tableName string
}

// NewDynamoCompletionJournal creates a journal over the given table.
func NewDynamoCompletionJournal(db journalDynamoDB, tableName string) *DynamoCompletionJournal {
	return &DynamoCompletionJournal{db: db, tableName: tableName}
}

// Record writes the completion row. Unconditional put: the session id is
// unique and completions happen once.
func (j *DynamoCompletionJournal) Record(ctx context.Context, record app.CompletionRecord) error {
	ctx, span := tracer.Start(ctx, "dynamo.completions.record")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	item := completionItem{
		SessionID:     record.SessionID.String(),
		Region:        record.Region,
		SenderName:    record.SenderName,
		SMSAttempts:   record.SMSAttempts,
		VoiceAttempts: record.VoiceAttempts,
		CheckAttempts: record.CheckAttempts,
		Verified:      record.Verified,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339Nano),
		CompletedAt:   record.CompletedAt.Format(time.RFC3339Nano),
		TTL:           record.CompletedAt.Add(domain.AttemptRecordTTL).Unix(),
	}

	av, err := dynamo.MarshalMap(item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("completion journal: marshal: %w", err)
	}

	if _, err := j.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName: &j.tableName,
		Item:      av,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("completion journal: put: %w", err)
	}
	return nil
}

// completionEvent is the JSON shape published to the completions topic.
type completionEvent struct {
	SessionID     string `json:"session_id"`
	Region        string `json:"region"`
	SenderName    string `json:"sender_name,omitempty"`
	SMSAttempts   int    `json:"sms_attempts"`
	VoiceAttempts int    `json:"voice_attempts"`
	CheckAttempts int    `json:"check_attempts"`
	Verified      bool   `json:"verified"`
	CreatedAt     string `json:"created_at"`
	CompletedAt   string `json:"completed_at"`
}

// SNSCompletionPublisher fans completion records out to an SNS topic for
// downstream consumers.
type SNSCompletionPublisher struct {
	client   snsPublisher
	topicARN string
}

// NewSNSCompletionPublisher creates a publisher for the given topic.
func NewSNSCompletionPublisher(client snsPublisher, topicARN string) *SNSCompletionPublisher {
	return &SNSCompletionPublisher{client: client, topicARN: topicARN}
}

// Record publishes the completion event as JSON.
func (p *SNSCompletionPublisher) Record(ctx context.Context, record app.CompletionRecord) error {
	ctx, span := tracer.Start(ctx, "sns.completions.publish")
	defer span.End()

	event := completionEvent{
		SessionID:     record.SessionID.String(),
		Region:        record.Region,
		SenderName:    record.SenderName,
		SMSAttempts:   record.SMSAttempts,
		VoiceAttempts: record.VoiceAttempts,
		CheckAttempts: record.CheckAttempts,
		Verified:      record.Verified,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339Nano),
		CompletedAt:   record.CompletedAt.Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("completion publisher: marshal: %w", err)
	}

	message := string(payload)
	if _, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &message,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("completion publisher: publish: %w", err)
	}
	return nil
}
