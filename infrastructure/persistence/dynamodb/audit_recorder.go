package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"carelog-backend/domain/entities"
	"carelog-backend/infrastructure/persistence/keys"
	apperrors "carelog-backend/pkg/errors"
)

// AuditRecorder persists audit records of privileged actions. Records
// partition by calendar date so one day's trail is a single partition query.
type AuditRecorder struct {
	client *Client
	logger *zap.Logger
}

// NewAuditRecorder creates an audit recorder over the shared client.
func NewAuditRecorder(client *Client, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{client: client, logger: logger}
}

// auditItem is the stored shape of one audit record.
type auditItem struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	EntityType string            `dynamodbav:"EntityType"`
	Date       string            `dynamodbav:"date"`
	Timestamp  string            `dynamodbav:"timestamp"`
	Action     string            `dynamodbav:"action"`
	Actor      string            `dynamodbav:"actor"`
	Entity     string            `dynamodbav:"entity"`
	Details    map[string]string `dynamodbav:"details,omitempty"`
}

func (i auditItem) toEntity() entities.AuditRecord {
	return entities.AuditRecord{
		Date:      i.Date,
		Timestamp: parseTime(i.Timestamp),
		Action:    i.Action,
		Actor:     i.Actor,
		Entity:    i.Entity,
		Details:   i.Details,
	}
}

// Record writes one audit record. The trail is append-only; nothing updates
// or deletes audit items.
func (r *AuditRecorder) Record(ctx context.Context, rec entities.AuditRecord) error {
	rec = rec.Normalize(timeNow())
	key := keys.Audit(rec.Date, rec.Timestamp, rec.Action, rec.Actor)

	av, err := attributevalue.MarshalMap(auditItem{
		PK:         key.PK,
		SK:         key.SK,
		EntityType: entityTypeAudit,
		Date:       rec.Date,
		Timestamp:  rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:     rec.Action,
		Actor:      rec.Actor,
		Entity:     rec.Entity,
		Details:    rec.Details,
	})
	if err != nil {
		return apperrors.NewDatabaseError("PutItem", err)
	}

	_, err = r.client.invoke(ctx, "PutItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.client.table),
			Item:      av,
		})
	})
	return err
}

// ListByDate returns one day's audit trail in sort-key order, which is
// chronological.
func (r *AuditRecorder) ListByDate(ctx context.Context, date string) ([]entities.AuditRecord, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(keys.AuditPrefix + date))).
		Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("Query", err)
	}

	var records []entities.AuditRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.invoke(ctx, "Query", func(ctx context.Context) (interface{}, error) {
			return r.client.ddb.Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(r.client.table),
				KeyConditionExpression:    expr.KeyCondition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ExclusiveStartKey:         startKey,
			})
		})
		if err != nil {
			return nil, err
		}
		result := out.(*dynamodb.QueryOutput)

		for _, raw := range result.Items {
			var item auditItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal audit item", zap.Error(err))
				continue
			}
			records = append(records, item.toEntity())
		}

		if result.LastEvaluatedKey == nil {
			return records, nil
		}
		startKey = result.LastEvaluatedKey
	}
}
