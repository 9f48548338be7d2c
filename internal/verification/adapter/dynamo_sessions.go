package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/dynamo"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

// Compile-time check: DynamoSessionStore satisfies app.SessionStore.
var _ app.SessionStore = (*DynamoSessionStore)(nil)

// createIDRetries bounds regeneration on session-id collisions. A collision
// needs two identical random UUIDs, so one retry already never happens.
const createIDRetries = 3

// sessionDynamoDB is a narrow, consumer-defined interface for the DynamoDB
// operations required by the session store. The *dynamodb.Client satisfies it.
type sessionDynamoDB interface {
	GetItem(ctx context.Context, params *dynamo.GetItemInput, optFns ...func(*dynamo.Options)) (*dynamo.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamo.PutItemInput, optFns ...func(*dynamo.Options)) (*dynamo.PutItemOutput, error)
}

// sessionItem is the DynamoDB item shape for the verification sessions table.
type sessionItem struct {
	SessionID     string             `dynamodbav:"session_id"`
	Phone         string             `dynamodbav:"phone"`
	CreatedAt     string             `dynamodbav:"created_at"`
	ExpiresAt     string             `dynamodbav:"expires_at"`
	SenderName    string             `dynamodbav:"sender_name,omitempty"`
	SenderData    []byte             `dynamodbav:"sender_data,omitempty"`
	VerifiedCode  string             `dynamodbav:"verified_code,omitempty"`
	SendAttempts  []sendAttemptItem  `dynamodbav:"send_attempts,omitempty"`
	CheckAttempts []checkAttemptItem `dynamodbav:"check_attempts,omitempty"`
	Version       uint64             `dynamodbav:"version"`
	TTL           int64              `dynamodbav:"ttl"`
}

type sendAttemptItem struct {
	Transport string `dynamodbav:"transport"`
	At        string `dynamodbav:"at"`
	Sender    string `dynamodbav:"sender"`
	Outcome   string `dynamodbav:"outcome"`
}

type checkAttemptItem struct {
	At      string `dynamodbav:"at"`
	Outcome string `dynamodbav:"outcome"`
}

func toSessionItem(s *domain.Session) sessionItem {
	item := sessionItem{
		SessionID:    s.ID.String(),
		Phone:        s.Phone.String(),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339Nano),
		ExpiresAt:    s.ExpiresAt.Format(time.RFC3339Nano),
		SenderName:   s.SenderName,
		SenderData:   s.SenderData,
		VerifiedCode: s.VerifiedCode,
		Version:      s.Version,
		TTL:          s.ExpiresAt.Unix(),
	}
	for _, a := range s.SendAttempts {
		item.SendAttempts = append(item.SendAttempts, sendAttemptItem{
			Transport: a.Transport.String(),
			At:        a.At.Format(time.RFC3339Nano),
			Sender:    a.Sender,
			Outcome:   string(a.Outcome),
		})
	}
	for _, a := range s.CheckAttempts {
		item.CheckAttempts = append(item.CheckAttempts, checkAttemptItem{
			At:      a.At.Format(time.RFC3339Nano),
			Outcome: string(a.Outcome),
		})
	}
	return item
}

func fromSessionItem(item sessionItem) (*domain.Session, error) {
	id, err := domain.NewSessionID(item.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session id %q: %w", item.SessionID, err)
	}
	phone, err := domain.NewPhoneNumber(item.Phone)
	if err != nil {
		return nil, fmt.Errorf("phone for session %s: %w", item.SessionID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("created_at for session %s: %w", item.SessionID, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, item.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("expires_at for session %s: %w", item.SessionID, err)
	}

	session := &domain.Session{
		ID:           id,
		Phone:        phone,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		SenderName:   item.SenderName,
		SenderData:   item.SenderData,
		VerifiedCode: item.VerifiedCode,
		Version:      item.Version,
	}
	for _, a := range item.SendAttempts {
		at, parseErr := time.Parse(time.RFC3339Nano, a.At)
		if parseErr != nil {
			return nil, fmt.Errorf("send attempt time for session %s: %w", item.SessionID, parseErr)
		}
		session.SendAttempts = append(session.SendAttempts, domain.SendAttempt{
			Transport: domain.Transport(a.Transport),
			At:        at,
			Sender:    a.Sender,
			Outcome:   domain.AttemptOutcome(a.Outcome),
		})
	}
	for _, a := range item.CheckAttempts {
		at, parseErr := time.Parse(time.RFC3339Nano, a.At)
		if parseErr != nil {
			return nil, fmt.Errorf("check attempt time for session %s: %w", item.SessionID, parseErr)
		}
		session.CheckAttempts = append(session.CheckAttempts, domain.CheckAttempt{
			At:      at,
			Outcome: domain.AttemptOutcome(a.Outcome),
		})
	}
	return session, nil
}

// DynamoSessionStore persists verification sessions in a single DynamoDB
// table. Create uses attribute_not_exists; Update is a full-item
// conditional put on the expected version, which is what makes the
// orchestrator's compare-and-swap loop work. The row TTL attribute handles
// storage-side expiry; reads additionally filter expired rows because DDB
// TTL deletion is eventually consistent.
type DynamoSessionStore struct {
	db        sessionDynamoDB
	tableName string
	clock     domain.Clock
}

// NewDynamoSessionStore creates a store over the given table.
func NewDynamoSessionStore(db sessionDynamoDB, tableName string, clock domain.Clock) *DynamoSessionStore {
	return &DynamoSessionStore{db: db, tableName: tableName, clock: clock}
}

// Create writes a fresh session row, regenerating the id on the
// vanishingly unlikely collision.
func (s *DynamoSessionStore) Create(ctx context.Context, phone domain.PhoneNumber, ttl time.Duration) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "dynamo.sessions.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	now := s.clock.Now().UTC()
	guard, err := dynamo.NewBuilder().
		WithCondition(dynamo.AttributeNotExists(dynamo.Name("session_id"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("dynamo sessions: build create guard: %w", err)
	}

	for attempt := 0; attempt < createIDRetries; attempt++ {
		session := &domain.Session{
			ID:        domain.GenerateSessionID(),
			Phone:     phone,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
			Version:   1,
		}

		av, err := dynamo.MarshalMap(toSessionItem(session))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("dynamo sessions: marshal: %w", err)
		}

		_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
			TableName:                &s.tableName,
			Item:                     av,
			ConditionExpression:      guard.Condition(),
			ExpressionAttributeNames: guard.Names(),
		})
		if err != nil {
			if dynamo.IsConditionalCheckFailed(err) {
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("dynamo sessions: create: %w", err)
		}
		return session, nil
	}
	return nil, fmt.Errorf("dynamo sessions: create: exhausted %d id attempts", createIDRetries)
}

// Get reads the session with a strongly consistent read.
func (s *DynamoSessionStore) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "dynamo.sessions.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "GetItem"),
	)

	session, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return session, nil
}

// Update reads the current row, applies mutate to a copy, and writes the
// result conditioned on the version being unchanged. A condition failure
// maps to domain.ErrConflictingUpdate for the caller's retry loop.
func (s *DynamoSessionStore) Update(ctx context.Context, id domain.SessionID, mutate func(*domain.Session) error) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "dynamo.sessions.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.operation", "PutItem"),
	)

	current, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	expected := current.Version
	updated := current.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	updated.Version = expected + 1

	av, err := dynamo.MarshalMap(toSessionItem(updated))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("dynamo sessions: marshal: %w", err)
	}

	guard, err := dynamo.NewBuilder().
		WithCondition(dynamo.Name("version").Equal(dynamo.Value(expected))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("dynamo sessions: build version guard: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamo.PutItemInput{
		TableName:                 &s.tableName,
		Item:                      av,
		ConditionExpression:       guard.Condition(),
		ExpressionAttributeNames:  guard.Names(),
		ExpressionAttributeValues: guard.Values(),
	})
	if err != nil {
		if dynamo.IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("dynamo sessions: update %s: %w", id, domain.ErrConflictingUpdate)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("dynamo sessions: update: %w", err)
	}
	return updated, nil
}

func (s *DynamoSessionStore) load(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	consistentRead := true
	out, err := s.db.GetItem(ctx, &dynamo.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]dynamo.AttributeValue{
			"session_id": &dynamo.AttributeValueMemberS{Value: id.String()},
		},
		ConsistentRead: &consistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo sessions: get %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dynamo sessions: get %s: %w", id, domain.ErrSessionNotFound)
	}

	var item sessionItem
	if err := dynamo.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamo sessions: unmarshal: %w", err)
	}
	session, err := fromSessionItem(item)
	if err != nil {
		return nil, fmt.Errorf("dynamo sessions: %w", err)
	}
	if session.Expired(s.clock.Now()) {
		return nil, fmt.Errorf("dynamo sessions: get %s: expired: %w", id, domain.ErrSessionNotFound)
	}
	return session, nil
}
