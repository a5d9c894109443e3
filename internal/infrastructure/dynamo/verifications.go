package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-account-api/internal/domain"
)

// VerificationRepo manages verification records.
// PK: verification_id. GSIs: secret-index, channel_value-index.
//
// The two state transitions the engine depends on are conditional writes:
// SetSecret only succeeds while no secret exists, and DeleteConsumed only
// succeeds while the record still carries the given secret. Concurrent
// confirms or consumers race at the storage layer and at most one wins.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) Put(ctx context.Context, v *domain.Verification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationRepo) Get(ctx context.Context, verificationID string) (*domain.Verification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("verification_id", verificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.Verification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetBySecret looks up a confirmed record by its consumable secret via GSI.
func (r *VerificationRepo) GetBySecret(ctx context.Context, secret string) (*domain.Verification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("secret-index"),
		KeyConditionExpression: aws.String("#s = :s"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldSecret,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: secret},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.Verification
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SetSecret confirms a record. The condition keeps confirmation one-way: a
// record whose secret is already set cannot be confirmed again, even by two
// racing callers holding the correct token.
func (r *VerificationRepo) SetSecret(ctx context.Context, verificationID, secret string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("verification_id", verificationID),
		UpdateExpression:          aws.String("SET #s = :s"),
		ConditionExpression:       aws.String("attribute_exists(verification_id) AND attribute_not_exists(#s)"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldSecret},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: secret}},
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("verification already confirmed: %w", domain.ErrConflict)
	}
	return err
}

// DeleteConsumed removes a record after an identity operation has applied its
// mutation. The condition guarantees at-most-once consumption: a second
// consumer finds the condition failed and gets ErrNotFound.
func (r *VerificationRepo) DeleteConsumed(ctx context.Context, verificationID, secret string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("verification_id", verificationID),
		ConditionExpression:       aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldSecret},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: secret}},
	})
	if isConditionalCheckFailed(err) {
		return fmt.Errorf("verification already consumed: %w", domain.ErrNotFound)
	}
	return err
}

// DeleteByChannel removes every pending record for the same channel kind and
// value. Called on each new request so the latest request invalidates prior
// ones.
func (r *VerificationRepo) DeleteByChannel(ctx context.Context, ch domain.Channel) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("channel_value-index"),
		KeyConditionExpression: aws.String("channel_value = :v"),
		FilterExpression:       aws.String("channel_kind = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: ch.Value},
			":k": &types.AttributeValueMemberS{Value: string(ch.Kind)},
		},
	}
	var firstErr error
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return err
		}
		if err := r.deleteAll(ctx, out.Items); err != nil && firstErr == nil {
			firstErr = err
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return firstErr
}

// DeleteExpired is the lazy expiry sweep: it removes every record whose
// expires_at is at or before now. Runs synchronously on the calling
// goroutine before any read that depends on freshness.
func (r *VerificationRepo) DeleteExpired(ctx context.Context, now int64) error {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("expires_at <= :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
	}
	var firstErr error
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return err
		}
		if err := r.deleteAll(ctx, out.Items); err != nil && firstErr == nil {
			firstErr = err
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return firstErr
}

func (r *VerificationRepo) deleteAll(ctx context.Context, items []map[string]types.AttributeValue) error {
	var firstErr error
	for _, item := range items {
		idAttr, ok := item["verification_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("verification_id", idAttr.Value),
		})
		if err != nil {
			slog.Warn("failed to delete verification record", "verification_id", idAttr.Value, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// isConditionalCheckFailed reports whether err is a DynamoDB conditional
// write rejection, as opposed to a transport or server error.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
