package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"engram/application/ports"
)

// lockDuration bounds how long a crashed process can hold a user's lock.
// The table's TTL attribute clears stale lock items as a second line of
// defense.
const lockDuration = 30 * time.Second

// UserLocker serializes turn processing per user across processes using
// DynamoDB conditional writes. Lock items live under LOCK#<user> and
// expire so a crashed holder cannot wedge the user forever.
type UserLocker struct {
	client    *awsdynamodb.Client
	tableName string
	ownerID   string
	logger    *zap.Logger

	mu   sync.Mutex
	held map[string]string // userID -> lockID
}

// NewUserLocker creates a DynamoDB-backed user locker. Each process gets
// its own owner identity.
func NewUserLocker(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *UserLocker {
	return &UserLocker{
		client:    client,
		tableName: tableName,
		ownerID:   uuid.NewString(),
		logger:    logger,
		held:      make(map[string]string),
	}
}

var _ ports.UserLocker = (*UserLocker)(nil)

// Lock blocks until the user's lock is held or ctx is done.
func (l *UserLocker) Lock(ctx context.Context, userID string) error {
	retryInterval := 100 * time.Millisecond

	for {
		lockID, err := l.tryAcquire(ctx, userID)
		if err == nil {
			l.mu.Lock()
			l.held[userID] = lockID
			l.mu.Unlock()
			return nil
		}

		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if !errors.As(err, &conditionalCheckFailed) {
			return fmt.Errorf("failed to acquire user lock: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

// Unlock releases the user's lock.
func (l *UserLocker) Unlock(userID string) {
	l.mu.Lock()
	lockID, ok := l.held[userID]
	delete(l.held, userID)
	l.mu.Unlock()
	if !ok {
		return
	}

	// Release uses a background context so an aborted request still
	// frees the lock.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "LOCK#" + userID},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			// The lock expired and was taken over. Nothing to release.
			return
		}
		l.logger.Warn("failed to release user lock",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (l *UserLocker) tryAcquire(ctx context.Context, userID string) (string, error) {
	lockID := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(lockDuration)

	_, err := l.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item: map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: "LOCK#" + userID},
			"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
			"LockID":     &types.AttributeValueMemberS{Value: lockID},
			"Owner":      &types.AttributeValueMemberS{Value: l.ownerID},
			"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
			"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return "", err
	}
	return lockID, nil
}
