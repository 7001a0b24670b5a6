package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/events"
)

// EventStore persists domain events as an append-only audit stream.
// Events live under EVENT#<aggregate> partitions; a GSI on EventType
// serves type-scoped reads.
type EventStore struct {
	client    *awsdynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewEventStore creates a DynamoDB-backed event store.
func NewEventStore(client *awsdynamodb.Client, tableName, indexName string, logger *zap.Logger) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

var _ ports.EventStore = (*EventStore)(nil)

type eventItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	EventType   string `dynamodbav:"EventType"`
	AggregateID string `dynamodbav:"AggregateID"`
	Timestamp   string `dynamodbav:"Timestamp"`
	Version     int    `dynamodbav:"Version"`
	Payload     string `dynamodbav:"Payload"`
}

func eventPK(aggregateID string) string { return "EVENT#" + aggregateID }

// SaveEvents persists domain events.
func (s *EventStore) SaveEvents(ctx context.Context, batch []events.DomainEvent) error {
	var writes []types.WriteRequest
	for _, event := range batch {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.GetEventType(), err)
		}

		item := eventItem{
			PK:          eventPK(event.GetAggregateID()),
			SK:          event.GetTimestamp().UTC().Format(time.RFC3339Nano) + "#" + uuid.NewString(),
			EntityType:  "EVENT",
			EventType:   event.GetEventType(),
			AggregateID: event.GetAggregateID(),
			Timestamp:   event.GetTimestamp().UTC().Format(time.RFC3339Nano),
			Version:     event.GetVersion(),
			Payload:     string(payload),
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("failed to marshal event item: %w", err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	for start := 0; start < len(writes); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(writes) {
			end = len(writes)
		}
		pending := writes[start:end]
		for len(pending) > 0 {
			out, err := s.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					s.tableName: pending,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to save events: %w", err)
			}
			pending = out.UnprocessedItems[s.tableName]
		}
	}
	return nil
}

// GetEvents retrieves events for an aggregate, oldest first.
func (s *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	var result []events.DomainEvent
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: eventPK(aggregateID)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}
		for _, raw := range out.Items {
			event, err := s.rehydrate(raw)
			if err != nil {
				s.logger.Warn("skipping unreadable event item", zap.Error(err))
				continue
			}
			result = append(result, event)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return result, nil
}

// GetEventsByType retrieves events of a specific type, newest first.
func (s *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	var result []events.DomainEvent
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(s.indexName),
			KeyConditionExpression: aws.String("EventType = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberS{Value: eventType},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query events by type: %w", err)
		}
		for _, raw := range out.Items {
			event, err := s.rehydrate(raw)
			if err != nil {
				s.logger.Warn("skipping unreadable event item", zap.Error(err))
				continue
			}
			result = append(result, event)
			if limit > 0 && len(result) >= limit {
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

// DeleteEvents removes all events for an aggregate.
func (s *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	var writes []types.WriteRequest
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: eventPK(aggregateID)},
			},
			ProjectionExpression: aws.String("SK"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return fmt.Errorf("failed to list events for deletion: %w", err)
		}
		for _, raw := range out.Items {
			writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: eventPK(aggregateID)},
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
			out, err := s.client.BatchWriteItem(ctx, &awsdynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					s.tableName: pending,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to delete events: %w", err)
			}
			pending = out.UnprocessedItems[s.tableName]
		}
	}
	return nil
}

// rehydrate turns a stored item back into its concrete event type.
func (s *EventStore) rehydrate(raw map[string]types.AttributeValue) (events.DomainEvent, error) {
	var item eventItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, err
	}

	payload := []byte(item.Payload)
	unmarshal := func(target events.DomainEvent) (events.DomainEvent, error) {
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s event: %w", item.EventType, err)
		}
		return target, nil
	}

	switch item.EventType {
	case "memory.stored":
		return unmarshal(&events.MemoryStored{})
	case "memory.forgotten":
		return unmarshal(&events.MemoryForgotten{})
	case "nodes.linked":
		return unmarshal(&events.NodesLinked{})
	case "edge.strengthened":
		return unmarshal(&events.EdgeStrengthened{})
	case "turn.processed":
		return unmarshal(&events.TurnProcessed{})
	case "cycles.debited":
		return unmarshal(&events.CyclesDebited{})
	case "cycles.deposited":
		return unmarshal(&events.CyclesDeposited{})
	case "profile.updated":
		return unmarshal(&events.ProfileUpdated{})
	case "thread.archived":
		return unmarshal(&events.ThreadArchived{})
	case "user.data_deleted":
		return unmarshal(&events.UserDataDeleted{})
	default:
		// Unknown types still round-trip as base events.
		return unmarshal(&events.BaseEvent{})
	}
}
