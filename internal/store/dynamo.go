package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design.
const (
	pkKV       = "KV#"
	skValue    = "VALUE"
	pkReceipts = "RECEIPTS"

	// ReceiptTTL bounds how long hosted receipts are kept.
	ReceiptTTL = 90 * 24 * time.Hour
)

// dynamoAPI is the subset of *dynamodb.Client used by Dynamo.
type dynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Dynamo implements KV and History on a DynamoDB table with string PK/SK
// keys and an expiresAt TTL attribute.
type Dynamo struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

var (
	_ KV      = (*Dynamo)(nil)
	_ History = (*Dynamo)(nil)
)

// NewDynamo creates a Dynamo store for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamo(client *dynamodb.Client, tableName string) *Dynamo {
	return newDynamo(client, tableName)
}

func newDynamo(client dynamoAPI, tableName string) *Dynamo {
	return &Dynamo{client: client, tableName: tableName, now: time.Now}
}

// kvItem is the stored shape of a KV entry.
type kvItem struct {
	Value     string `dynamodbav:"value"`
	UpdatedAt int64  `dynamodbav:"updatedAt"`
}

// --- Internal helpers ---

// putItem marshals a domain object and writes it with PK, SK and, when ttl
// is non-zero, an expiresAt attribute.
func (s *Dynamo) putItem(ctx context.Context, pk, sk string, data interface{}, ttl time.Duration) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	if ttl > 0 {
		item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(ttl).Unix(), 10)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads a single item and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *Dynamo) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

// --- KV ---

func (s *Dynamo) Get(ctx context.Context, key string) (string, bool, error) {
	var item kvItem
	found, err := s.getItem(ctx, pkKV+key, skValue, &item)
	if err != nil || !found {
		return "", false, err
	}
	return item.Value, true, nil
}

func (s *Dynamo) Put(ctx context.Context, key, value string) error {
	return s.putItem(ctx, pkKV+key, skValue, kvItem{Value: value, UpdatedAt: s.now().Unix()}, 0)
}

// --- History ---

// receiptSK orders receipts by creation time, with the session as a
// tie-breaker.
func receiptSK(r *Receipt) string {
	return r.CreatedAt.UTC().Format(timeLayout) + "#" + r.Session
}

func (s *Dynamo) AddReceipt(ctx context.Context, r *Receipt) error {
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	return s.putItem(ctx, pkReceipts, receiptSK(&cp), &cp, ReceiptTTL)
}

func (s *Dynamo) ListReceipts(ctx context.Context, limit int) ([]*Receipt, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkReceipts},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var out []*Receipt
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s: %w", pkReceipts, err)
		}
		for _, item := range result.Items {
			var r Receipt
			if err := attributevalue.UnmarshalMap(item, &r); err != nil {
				log.Warn().Err(err).Msg("Skipping unreadable receipt")
				continue
			}
			out = append(out, &r)
		}

		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return out, nil
}
