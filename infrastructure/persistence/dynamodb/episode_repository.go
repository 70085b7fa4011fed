package dynamodb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	"carelog-backend/infrastructure/persistence/keys"
	apperrors "carelog-backend/pkg/errors"
)

// EpisodeRepository implements ports.EpisodeRepository over the single table.
// Episode items carry both GSI key pairs so the by-form and by-submitter
// listings are index queries rather than scans.
type EpisodeRepository struct {
	client *Client
	logger *zap.Logger
}

// NewEpisodeRepository creates an episode repository over the shared client.
func NewEpisodeRepository(client *Client, logger *zap.Logger) *EpisodeRepository {
	return &EpisodeRepository{client: client, logger: logger}
}

// episodeItem is the stored shape of one episode.
type episodeItem struct {
	PK         string         `dynamodbav:"PK"`
	SK         string         `dynamodbav:"SK"`
	GSI1PK     string         `dynamodbav:"GSI1PK"`
	GSI1SK     string         `dynamodbav:"GSI1SK"`
	GSI2PK     string         `dynamodbav:"GSI2PK"`
	GSI2SK     string         `dynamodbav:"GSI2SK"`
	EntityType string         `dynamodbav:"EntityType"`
	EpisodeID  string         `dynamodbav:"episodeId"`
	FormID     string         `dynamodbav:"formId"`
	Timestamp  string         `dynamodbav:"timestamp"`
	Context    string         `dynamodbav:"context,omitempty"`
	CreatedBy  string         `dynamodbav:"createdBy"`
	Data       map[string]any `dynamodbav:"data"`
	CreatedAt  string         `dynamodbav:"createdAt"`
	UpdatedAt  string         `dynamodbav:"updatedAt"`
}

func (i episodeItem) toEntity() entities.Episode {
	return entities.Episode{
		ID:        i.EpisodeID,
		FormID:    i.FormID,
		Timestamp: parseTime(i.Timestamp),
		Context:   i.Context,
		CreatedBy: i.CreatedBy,
		Data:      i.Data,
		CreatedAt: parseTime(i.CreatedAt),
		UpdatedAt: parseTime(i.UpdatedAt),
	}
}

// newEpisodeItem renders an episode for storage, deriving both GSI key pairs
// from the episode's form, submitter and timestamp.
func newEpisodeItem(ep entities.Episode) episodeItem {
	key := keys.Episode(ep.ID)
	byForm := keys.EpisodesByForm(ep.FormID, &ep.Timestamp)
	bySubmitter := keys.EpisodesBySubmitter(ep.CreatedBy, &ep.Timestamp)
	return episodeItem{
		PK:         key.PK,
		SK:         key.SK,
		GSI1PK:     byForm.PK,
		GSI1SK:     byForm.SK,
		GSI2PK:     bySubmitter.PK,
		GSI2SK:     bySubmitter.SK,
		EntityType: entityTypeEpisode,
		EpisodeID:  ep.ID,
		FormID:     ep.FormID,
		Timestamp:  formatTime(ep.Timestamp),
		Context:    ep.Context,
		CreatedBy:  ep.CreatedBy,
		Data:       ep.Data,
		CreatedAt:  formatTime(ep.CreatedAt),
		UpdatedAt:  formatTime(ep.UpdatedAt),
	}
}

// List returns episodes matching the filter. A form filter queries GSI1, a
// submitter filter queries GSI2; FormID wins when both are set. An empty
// filter falls back to a full table scan. From/To bound the index sort key,
// so a date-ranged listing reads only the matching slice of the partition.
func (r *EpisodeRepository) List(ctx context.Context, filter ports.EpisodeFilter) ([]entities.Episode, error) {
	switch {
	case filter.FormID != "":
		return r.queryIndex(ctx, r.client.gsi1, "GSI1PK", "GSI1SK", keys.EpisodesByForm(filter.FormID, nil).PK, filter)
	case filter.SubmittedBy != "":
		return r.queryIndex(ctx, r.client.gsi2, "GSI2PK", "GSI2SK", keys.EpisodesBySubmitter(filter.SubmittedBy, nil).PK, filter)
	default:
		return r.scanAll(ctx, filter)
	}
}

// timestampKeyCondition narrows a partition's key condition to the filter's
// inclusive time bounds.
func timestampKeyCondition(cond expression.KeyConditionBuilder, skAttr string, filter ports.EpisodeFilter) expression.KeyConditionBuilder {
	switch {
	case filter.From != nil && filter.To != nil:
		return cond.And(expression.Key(skAttr).Between(
			expression.Value(keys.Timestamp(*filter.From)),
			expression.Value(keys.Timestamp(*filter.To))))
	case filter.From != nil:
		return cond.And(expression.Key(skAttr).GreaterThanEqual(expression.Value(keys.Timestamp(*filter.From))))
	case filter.To != nil:
		return cond.And(expression.Key(skAttr).LessThanEqual(expression.Value(keys.Timestamp(*filter.To))))
	default:
		return cond
	}
}

// queryIndex pages through one GSI partition, bounded by the filter's time
// range on the TS#-tagged sort key. Results come back oldest first without a
// post-sort; the stable sort below only settles same-second ties that the
// second-granularity sort key cannot.
func (r *EpisodeRepository) queryIndex(ctx context.Context, index, pkAttr, skAttr, pk string, filter ports.EpisodeFilter) ([]entities.Episode, error) {
	builder := expression.NewBuilder().WithKeyCondition(
		timestampKeyCondition(expression.Key(pkAttr).Equal(expression.Value(pk)), skAttr, filter))
	if filter.Context != "" {
		builder = builder.WithFilter(expression.Name("context").Equal(expression.Value(filter.Context)))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("Query", err)
	}

	var episodes []entities.Episode
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.invoke(ctx, "Query", func(ctx context.Context) (interface{}, error) {
			return r.client.ddb.Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(r.client.table),
				IndexName:                 aws.String(index),
				KeyConditionExpression:    expr.KeyCondition(),
				FilterExpression:          expr.Filter(),
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
			var item episodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal episode item", zap.Error(err))
				continue
			}
			episodes = append(episodes, item.toEntity())
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Timestamp.Before(episodes[j].Timestamp)
	})
	return episodes, nil
}

// scanAll is the listing with neither a form nor a submitter: a paginated
// full table scan narrowed to episode items. Expensive, so it announces
// itself. Time and context bounds apply as scan filters; the stored timestamp
// is RFC 3339 in UTC, which compares lexicographically in time order.
func (r *EpisodeRepository) scanAll(ctx context.Context, filter ports.EpisodeFilter) ([]entities.Episode, error) {
	r.logger.Debug("Listing episodes via table scan")

	cond := expression.Name("PK").BeginsWith(keys.EpisodePrefix).
		And(expression.Name("SK").Equal(expression.Value(keys.MetadataSK)))
	if filter.From != nil {
		cond = cond.And(expression.Name("timestamp").GreaterThanEqual(expression.Value(formatTime(*filter.From))))
	}
	if filter.To != nil {
		cond = cond.And(expression.Name("timestamp").LessThanEqual(expression.Value(formatTime(*filter.To))))
	}
	if filter.Context != "" {
		cond = cond.And(expression.Name("context").Equal(expression.Value(filter.Context)))
	}

	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("Scan", err)
	}

	var episodes []entities.Episode
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.invoke(ctx, "Scan", func(ctx context.Context) (interface{}, error) {
			return r.client.ddb.Scan(ctx, &dynamodb.ScanInput{
				TableName:                 aws.String(r.client.table),
				FilterExpression:          expr.Filter(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ExclusiveStartKey:         startKey,
			})
		})
		if err != nil {
			return nil, err
		}
		result := out.(*dynamodb.ScanOutput)

		for _, raw := range result.Items {
			var item episodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal episode item", zap.Error(err))
				continue
			}
			episodes = append(episodes, item.toEntity())
		}

		if result.LastEvaluatedKey == nil {
			return episodes, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

// Get returns the episode with the given ID.
func (r *EpisodeRepository) Get(ctx context.Context, id string) (*entities.Episode, error) {
	out, err := r.client.invoke(ctx, "GetItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.client.table),
			Key:       keyAttrs(keys.Episode(id)),
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.GetItemOutput)
	if len(result.Item) == 0 {
		return nil, apperrors.NewNotFoundError("episode")
	}

	var item episodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("GetItem", err)
	}
	ep := item.toEntity()
	return &ep, nil
}

// Create persists a new episode. A zero Timestamp defaults to now.
func (r *EpisodeRepository) Create(ctx context.Context, input entities.NewEpisode) (*entities.Episode, error) {
	now := timeNow()
	ts := input.Timestamp
	if ts.IsZero() {
		ts = now
	}

	ep := entities.Episode{
		ID:        uuid.NewString(),
		FormID:    input.FormID,
		Timestamp: ts,
		Context:   input.Context,
		CreatedBy: input.CreatedBy,
		Data:      input.Data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ep.Data == nil {
		ep.Data = map[string]any{}
	}

	av, err := attributevalue.MarshalMap(newEpisodeItem(ep))
	if err != nil {
		return nil, apperrors.NewDatabaseError("PutItem", err)
	}

	if _, err := r.client.invoke(ctx, "PutItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.client.table),
			Item:      av,
		})
	}); err != nil {
		return nil, err
	}

	r.logger.Info("Episode created",
		zap.String("episodeID", ep.ID),
		zap.String("formID", ep.FormID),
		zap.String("createdBy", ep.CreatedBy),
	)

	return &ep, nil
}

// Update merges the patch and rewrites the whole item. A timestamp change
// moves the episode within both GSIs, so the write must replace the item
// rather than patch attributes in place.
func (r *EpisodeRepository) Update(ctx context.Context, id string, patch entities.EpisodePatch) (*entities.Episode, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Timestamp != nil {
		current.Timestamp = *patch.Timestamp
	}
	if patch.Context != nil {
		current.Context = *patch.Context
	}
	if patch.Data != nil {
		current.Data = *patch.Data
	}
	current.UpdatedAt = timeNow()

	av, err := attributevalue.MarshalMap(newEpisodeItem(*current))
	if err != nil {
		return nil, apperrors.NewDatabaseError("PutItem", err)
	}

	if _, err := r.client.invoke(ctx, "PutItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.client.table),
			Item:      av,
		})
	}); err != nil {
		return nil, err
	}

	return current, nil
}

// Remove deletes the episode and returns the pre-deletion snapshot.
func (r *EpisodeRepository) Remove(ctx context.Context, id string) (*entities.Episode, error) {
	out, err := r.client.invoke(ctx, "DeleteItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String(r.client.table),
			Key:          keyAttrs(keys.Episode(id)),
			ReturnValues: types.ReturnValueAllOld,
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.DeleteItemOutput)
	if len(result.Attributes) == 0 {
		return nil, apperrors.NewNotFoundError("episode")
	}

	var item episodeItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("DeleteItem", err)
	}

	r.logger.Info("Episode removed", zap.String("episodeID", id))

	ep := item.toEntity()
	return &ep, nil
}
