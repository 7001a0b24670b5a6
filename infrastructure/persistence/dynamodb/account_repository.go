package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"engram/application/ports"
	"engram/domain/core/entities"
	pkgerrors "engram/pkg/errors"
)

// AccountRepository persists cycles accounts and the engine-wide rate table.
type AccountRepository struct {
	client    *awsdynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewAccountRepository creates a DynamoDB-backed account repository.
func NewAccountRepository(client *awsdynamodb.Client, tableName string, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

// Save persists an account.
func (r *AccountRepository) Save(ctx context.Context, account *entities.Account) error {
	if account == nil {
		return pkgerrors.NewValidationError("account cannot be nil")
	}

	av, err := attributevalue.MarshalMap(accountToItem(account))
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetByUserID retrieves a user's account.
func (r *AccountRepository) GetByUserID(ctx context.Context, userID string) (*entities.Account, error) {
	out, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skAccount},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("account for user " + userID)
	}

	var item accountItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return itemToAccount(item), nil
}

// GetOrCreate retrieves a user's account, creating an empty one when none exists.
func (r *AccountRepository) GetOrCreate(ctx context.Context, userID string) (*entities.Account, error) {
	account, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !pkgerrors.IsNotFound(err) {
		return nil, err
	}

	account, err = entities.NewAccount(userID)
	if err != nil {
		return nil, err
	}
	if err := r.Save(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete removes a user's account.
func (r *AccountRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skAccount},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// GetRates returns the engine-wide billing rate table, falling back to
// the defaults when none has been stored.
func (r *AccountRepository) GetRates(ctx context.Context) (entities.CyclesRates, error) {
	out, err := r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkSystem},
			"SK": &types.AttributeValueMemberS{Value: skRates},
		},
	})
	if err != nil {
		return entities.CyclesRates{}, fmt.Errorf("failed to get rates: %w", err)
	}
	if out.Item == nil {
		return entities.DefaultCyclesRates(), nil
	}

	var item ratesItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return entities.CyclesRates{}, fmt.Errorf("failed to unmarshal rates: %w", err)
	}
	return entities.CyclesRates{
		QueryBaseCost:         item.QueryBaseCost,
		StorageCostPerKB:      item.StorageCostPerKB,
		ComputationMultiplier: float32(item.ComputationMultiplier),
	}, nil
}

// SaveRates replaces the engine-wide billing rate table.
func (r *AccountRepository) SaveRates(ctx context.Context, rates entities.CyclesRates) error {
	av, err := attributevalue.MarshalMap(ratesItem{
		PK:                    pkSystem,
		SK:                    skRates,
		QueryBaseCost:         rates.QueryBaseCost,
		StorageCostPerKB:      rates.StorageCostPerKB,
		ComputationMultiplier: float64(rates.ComputationMultiplier),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rates: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}

	r.logger.Info("billing rates updated",
		zap.Uint64("query_base_cost", rates.QueryBaseCost),
		zap.Uint64("storage_cost_per_kb", rates.StorageCostPerKB),
		zap.Float32("computation_multiplier", rates.ComputationMultiplier))
	return nil
}

// TotalSpent returns lifetime cycles consumed across all accounts. This is
// an admin-only metric, so a filtered scan is acceptable.
func (r *AccountRepository) TotalSpent(ctx context.Context) (uint64, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityAccount))).
		WithProjection(expression.NamesList(expression.Name("TotalSpent"))).
		Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build scan expression: %w", err)
	}

	var total uint64
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to scan accounts: %w", err)
		}
		for _, raw := range out.Items {
			var item struct {
				TotalSpent uint64 `dynamodbav:"TotalSpent"`
			}
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			total += item.TotalSpent
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return total, nil
}
