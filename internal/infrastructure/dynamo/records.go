package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-api/internal/domain"
)

const recipientIndex = "recipient-expires_at-index"

// RecordRepo persists one audit record per issued OTP.
// PK: verification_id. The recipient-expires_at-index GSI backs the
// per-recipient throttle count. This store is never consulted to decide
// whether a code is verifiable — the cache owns that.
type RecordRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRecordRepo(client *dynamodb.Client, tableName string) *RecordRepo {
	return &RecordRepo{client: client, tableName: tableName}
}

func (r *RecordRepo) Create(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RecordRepo) FindByID(ctx context.Context, verificationID string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("verification_id", verificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp record %s: %w", verificationID, domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkVerified flips verified to true, conditional on the record existing
// and being currently unverified. Both failure modes of the condition are
// deliberate no-ops: a missing or already-verified record returns
// (nil, nil), because the cache deletion — not this update — is the
// authoritative success signal.
func (r *RecordRepo) MarkVerified(ctx context.Context, verificationID string) (*domain.OTPRecord, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("verification_id", verificationID),
		UpdateExpression:    aws.String("SET verified = :t"),
		ConditionExpression: aws.String("attribute_exists(verification_id) AND verified = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, err
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountActive returns the number of unverified records for the recipient
// whose expiry lies at or after now. Issue refuses new codes once this
// reaches the configured max-active threshold.
func (r *RecordRepo) CountActive(ctx context.Context, recipient string, now time.Time) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(recipientIndex),
		KeyConditionExpression: aws.String("recipient = :r AND expires_at >= :now"),
		FilterExpression:       aws.String("verified = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r":   &types.AttributeValueMemberS{Value: recipient},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
		},
		Select: types.SelectCount,
	}

	total := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return total, nil
}
