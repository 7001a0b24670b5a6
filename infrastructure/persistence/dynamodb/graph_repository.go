package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/aggregates"
	"engram/domain/core/entities"
	pkgerrors "engram/pkg/errors"
)

// batchWriteLimit is the DynamoDB BatchWriteItem cap.
const batchWriteLimit = 25

// GraphRepository persists whole knowledge graphs: one metadata item plus
// one item per node, edge and thread, all under the user's partition.
type GraphRepository struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewGraphRepository creates a DynamoDB-backed graph repository.
func NewGraphRepository(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *GraphRepository {
	return &GraphRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.GraphRepository = (*GraphRepository)(nil)

// Save persists the full graph state. Stale node, edge and thread items
// that no longer exist in the aggregate are deleted in the same pass.
func (r *GraphRepository) Save(ctx context.Context, graph *aggregates.PersonalKnowledgeGraph) error {
	if graph == nil {
		return pkgerrors.NewValidationError("graph cannot be nil")
	}
	userID := graph.UserID()

	existing, err := r.listSubItemKeys(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list existing graph items: %w", err)
	}

	meta := graphItem{
		PK:         userPK(userID),
		SK:         skGraph,
		EntityType: entityGraph,
		UserID:     userID,
		NodeCount:  graph.NodeCount(),
		EdgeCount:  graph.EdgeCount(),
		Profile:    graph.Profile(),
		History:    graph.History(),
		CreatedAt:  graph.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  graph.UpdatedAt().Format(time.RFC3339Nano),
	}

	var writes []types.WriteRequest
	put := func(item interface{}) error {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("failed to marshal graph item: %w", err)
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		return nil
	}

	if err := put(meta); err != nil {
		return err
	}

	live := make(map[string]struct{})
	for _, node := range graph.Nodes() {
		item := nodeToItem(userID, node)
		live[item.SK] = struct{}{}
		if err := put(item); err != nil {
			return err
		}
	}
	for _, edge := range graph.Edges() {
		item := edgeToItem(userID, edge)
		live[item.SK] = struct{}{}
		if err := put(item); err != nil {
			return err
		}
	}
	for _, thread := range graph.Threads() {
		item := threadToItem(userID, thread)
		live[item.SK] = struct{}{}
		if err := put(item); err != nil {
			return err
		}
	}

	for _, sk := range existing {
		if _, stillLive := live[sk]; stillLive {
			continue
		}
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &types.AttributeValueMemberS{Value: sk},
			},
		}})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	r.logger.Debug("graph saved",
		zap.String("user_id", userID),
		zap.Int("node_count", graph.NodeCount()),
		zap.Int("edge_count", graph.EdgeCount()),
		zap.Int("writes", len(writes)))
	return nil
}

// GetByUserID retrieves a user's graph.
func (r *GraphRepository) GetByUserID(ctx context.Context, userID string) (*aggregates.PersonalKnowledgeGraph, error) {
	items, err := r.queryPartition(ctx, userID)
	if err != nil {
		return nil, err
	}

	var meta *graphItem
	var nodes []*entities.MemoryNode
	var edges []*aggregates.KnowledgeEdge
	var threads []*entities.ConversationContext

	for _, raw := range items {
		sk := stringAttr(raw, "SK")
		switch {
		case sk == skGraph:
			var item graphItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal graph metadata: %w", err)
			}
			meta = &item
		case strings.HasPrefix(sk, skNodePrefix):
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("skipping unreadable node item", zap.String("sk", sk), zap.Error(err))
				continue
			}
			node, err := itemToNode(item)
			if err != nil {
				r.logger.Warn("skipping invalid node item", zap.String("sk", sk), zap.Error(err))
				continue
			}
			nodes = append(nodes, node)
		case strings.HasPrefix(sk, skEdgePrefix):
			var item edgeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("skipping unreadable edge item", zap.String("sk", sk), zap.Error(err))
				continue
			}
			edge, err := itemToEdge(item)
			if err != nil {
				r.logger.Warn("skipping invalid edge item", zap.String("sk", sk), zap.Error(err))
				continue
			}
			edges = append(edges, edge)
		case strings.HasPrefix(sk, skThreadPrefix):
			var item threadItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("skipping unreadable thread item", zap.String("sk", sk), zap.Error(err))
				continue
			}
			thread, err := itemToThread(item)
			if err != nil {
				r.logger.Warn("skipping invalid thread item", zap.String("sk", sk), zap.Error(err))
				continue
			}
			threads = append(threads, thread)
		}
	}

	if meta == nil {
		return nil, pkgerrors.NewNotFoundError("graph for user " + userID)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, meta.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, meta.UpdatedAt)

	return aggregates.ReconstructPersonalKnowledgeGraph(
		userID,
		nodes,
		edges,
		threads,
		meta.Profile,
		meta.History,
		nil,
		createdAt, updatedAt,
	)
}

// GetOrCreate retrieves a user's graph, creating an empty one when none exists.
func (r *GraphRepository) GetOrCreate(ctx context.Context, userID string) (*aggregates.PersonalKnowledgeGraph, error) {
	graph, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return graph, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	graph, err = aggregates.NewPersonalKnowledgeGraph(userID, nil)
	if err != nil {
		return nil, err
	}
	if err := r.Save(ctx, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

// Delete removes a user's graph with all nodes, edges and threads.
func (r *GraphRepository) Delete(ctx context.Context, userID string) error {
	items, err := r.queryPartition(ctx, userID)
	if err != nil {
		return err
	}

	var writes []types.WriteRequest
	for _, raw := range items {
		sk := stringAttr(raw, "SK")
		// The account and message log have their own repositories.
		if sk == skAccount || strings.HasPrefix(sk, skMsgPrefix) {
			continue
		}
		writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &types.AttributeValueMemberS{Value: sk},
			},
		}})
	}

	if err := r.batchWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}

	r.logger.Info("graph deleted", zap.String("user_id", userID), zap.Int("items", len(writes)))
	return nil
}

// CountUsers returns how many users have a graph. This is an admin-only
// metric, so a filtered scan is acceptable.
func (r *GraphRepository) CountUsers(ctx context.Context) (int, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityGraph))).
		Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build scan expression: %w", err)
	}

	var count int
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Select:                    types.SelectCount,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count users: %w", err)
		}
		count += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return count, nil
}

// listSubItemKeys returns the sort keys of all node, edge and thread items
// currently stored for a user.
func (r *GraphRepository) listSubItemKeys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			},
			ProjectionExpression: aws.String("SK"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, raw := range out.Items {
			sk := stringAttr(raw, "SK")
			if strings.HasPrefix(sk, skNodePrefix) ||
				strings.HasPrefix(sk, skEdgePrefix) ||
				strings.HasPrefix(sk, skThreadPrefix) {
				keys = append(keys, sk)
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return keys, nil
}

func (r *GraphRepository) queryPartition(ctx context.Context, userID string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: userPK(userID)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query user partition: %w", err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return items, nil
}

func (r *GraphRepository) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
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
				return err
			}
			pending = out.UnprocessedItems[r.tableName]
		}
	}
	return nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if av, ok := item[name].(*types.AttributeValueMemberS); ok {
		return av.Value
	}
	return ""
}
