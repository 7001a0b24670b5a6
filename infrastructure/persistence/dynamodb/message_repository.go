package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	"engram/domain/core/valueobjects"
	pkgerrors "engram/pkg/errors"
)

// MessageRepository persists the conversation log. Messages sort by their
// timestamp within the user's partition, so range queries give the log in
// time order without an index.
type MessageRepository struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewMessageRepository creates a DynamoDB-backed message repository.
func NewMessageRepository(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// Append stores one message at the end of a user's log.
func (r *MessageRepository) Append(ctx context.Context, userID string, message *entities.EnhancedChatMessage) error {
	if message == nil {
		return pkgerrors.NewValidationError("message cannot be nil")
	}

	item := messageItem{
		PK:         userPK(userID),
		SK:         skMsgPrefix + message.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z") + "#" + uuid.NewString(),
		EntityType: entityMessage,
		UserID:     userID,
		Message:    message,
	}
	if message.ContextThreadID != nil {
		item.ThreadID = message.ContextThreadID.String()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// GetByUserID retrieves a user's messages, newest first.
func (r *MessageRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*entities.EnhancedChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var result []*entities.EnhancedChatMessage
	var startKey map[string]types.AttributeValue
	skipped := 0

	for {
		out, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
				":sk": &types.AttributeValueMemberS{Value: skMsgPrefix},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query messages: %w", err)
		}

		for _, raw := range out.Items {
			if skipped < offset {
				skipped++
				continue
			}
			msg, err := unmarshalMessage(raw)
			if err != nil {
				r.logger.Warn("skipping unreadable message item", zap.Error(err))
				continue
			}
			result = append(result, msg)
			if len(result) >= limit {
				return result, nil
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return result, nil
}

// GetByThread retrieves the messages of one conversation thread, oldest first.
func (r *MessageRepository) GetByThread(ctx context.Context, userID string, threadID valueobjects.ThreadID) ([]*entities.EnhancedChatMessage, error) {
	var result []*entities.EnhancedChatMessage
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			FilterExpression:       aws.String("ThreadID = :thread"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
				":sk":     &types.AttributeValueMemberS{Value: skMsgPrefix},
				":thread": &types.AttributeValueMemberS{Value: threadID.String()},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query thread messages: %w", err)
		}
		for _, raw := range out.Items {
			msg, err := unmarshalMessage(raw)
			if err != nil {
				r.logger.Warn("skipping unreadable message item", zap.Error(err))
				continue
			}
			result = append(result, msg)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return result, nil
}

// CountByUserID returns the size of a user's log.
func (r *MessageRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
				":sk": &types.AttributeValueMemberS{Value: skMsgPrefix},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count messages: %w", err)
		}
		count += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return count, nil
}

// DeleteByUserID removes a user's entire log.
func (r *MessageRepository) DeleteByUserID(ctx context.Context, userID string) error {
	var writes []types.WriteRequest
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
				":sk": &types.AttributeValueMemberS{Value: skMsgPrefix},
			},
			ProjectionExpression: aws.String("SK"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return fmt.Errorf("failed to list messages for deletion: %w", err)
		}
		for _, raw := range out.Items {
			writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
					"SK": &types.AttributeValueMemberS{Value: stringAttr(raw, "SK")},
				},
			}})
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	for start := 0; start < len(writes); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(writes) {
			end = len(writes)
		}
		pending := writes[start:end]
		for len(pending) > 0 {
			out, err := r.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					r.tableName: pending,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to delete messages: %w", err)
			}
			pending = out.UnprocessedItems[r.tableName]
		}
	}

	r.logger.Info("message log deleted", zap.String("user_id", userID), zap.Int("messages", len(writes)))
	return nil
}

func unmarshalMessage(raw map[string]types.AttributeValue) (*entities.EnhancedChatMessage, error) {
	var item messageItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, err
	}
	if item.Message == nil {
		return nil, fmt.Errorf("message item %q has no payload", item.SK)
	}
	return item.Message, nil
}
