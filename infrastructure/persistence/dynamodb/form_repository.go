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

	"carelog-backend/domain/entities"
	"carelog-backend/infrastructure/persistence/keys"
	apperrors "carelog-backend/pkg/errors"
)

// FormRepository implements ports.FormRepository over the single table.
// Form metadata lives at FORM#id / METADATA; fields share the form's
// partition at FIELD#fieldId sort keys.
type FormRepository struct {
	client *Client
	logger *zap.Logger
}

// NewFormRepository creates a form repository over the shared client.
func NewFormRepository(client *Client, logger *zap.Logger) *FormRepository {
	return &FormRepository{client: client, logger: logger}
}

// formItem is the stored shape of form metadata.
type formItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	FormID     string `dynamodbav:"formId"`
	Title      string `dynamodbav:"title"`
	Status     string `dynamodbav:"status"`
	Version    int    `dynamodbav:"version"`
	CreatedBy  string `dynamodbav:"createdBy,omitempty"`
	CreatedAt  string `dynamodbav:"createdAt"`
	UpdatedAt  string `dynamodbav:"updatedAt"`
}

func (i formItem) toEntity() entities.Form {
	return entities.Form{
		ID:        i.FormID,
		Title:     i.Title,
		Status:    entities.FormStatus(i.Status),
		Version:   i.Version,
		CreatedBy: i.CreatedBy,
		CreatedAt: parseTime(i.CreatedAt),
		UpdatedAt: parseTime(i.UpdatedAt),
	}
}

// validationItem is the stored shape of a field's constraints.
type validationItem struct {
	Min       *float64 `dynamodbav:"min,omitempty"`
	Max       *float64 `dynamodbav:"max,omitempty"`
	MaxLength *int     `dynamodbav:"maxLength,omitempty"`
	Regex     string   `dynamodbav:"regex,omitempty"`
}

// fieldItem is the stored shape of one form field.
type fieldItem struct {
	PK         string          `dynamodbav:"PK"`
	SK         string          `dynamodbav:"SK"`
	EntityType string          `dynamodbav:"EntityType"`
	FieldID    string          `dynamodbav:"fieldId"`
	Label      string          `dynamodbav:"label"`
	Type       string          `dynamodbav:"type"`
	Required   bool            `dynamodbav:"required"`
	Order      int             `dynamodbav:"order"`
	Options    []string        `dynamodbav:"options,omitempty"`
	Default    string          `dynamodbav:"default,omitempty"`
	Validation *validationItem `dynamodbav:"validation,omitempty"`
}

func (i fieldItem) toEntity() entities.FormField {
	f := entities.FormField{
		FieldID:  i.FieldID,
		Label:    i.Label,
		Type:     entities.FieldType(i.Type),
		Required: i.Required,
		Order:    i.Order,
		Options:  i.Options,
		Default:  i.Default,
	}
	if i.Validation != nil {
		f.Validation = &entities.FieldValidation{
			Min:       i.Validation.Min,
			Max:       i.Validation.Max,
			MaxLength: i.Validation.MaxLength,
			Regex:     i.Validation.Regex,
		}
	}
	return f
}

func newFieldItem(formID string, field entities.FormField) fieldItem {
	key := keys.FormField(formID, field.FieldID)
	item := fieldItem{
		PK:         key.PK,
		SK:         key.SK,
		EntityType: entityTypeField,
		FieldID:    field.FieldID,
		Label:      field.Label,
		Type:       string(field.Type),
		Required:   field.Required,
		Order:      field.Order,
		Options:    field.Options,
		Default:    field.Default,
	}
	if field.Validation != nil {
		item.Validation = &validationItem{
			Min:       field.Validation.Min,
			Max:       field.Validation.Max,
			MaxLength: field.Validation.MaxLength,
			Regex:     field.Validation.Regex,
		}
	}
	return item
}

// List returns all forms. This is the flagged expensive fallback: a full
// table scan filtered down to form metadata items.
func (r *FormRepository) List(ctx context.Context) ([]entities.Form, error) {
	r.logger.Debug("Listing forms via table scan")

	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("PK").BeginsWith(keys.FormPrefix).
			And(expression.Name("SK").Equal(expression.Value(keys.MetadataSK)))).
		Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("Scan", err)
	}

	var forms []entities.Form
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
			var item formItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal form item", zap.Error(err))
				continue
			}
			forms = append(forms, item.toEntity())
		}

		if result.LastEvaluatedKey == nil {
			return forms, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

// Get returns the form with the given ID.
func (r *FormRepository) Get(ctx context.Context, id string) (*entities.Form, error) {
	out, err := r.client.invoke(ctx, "GetItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.client.table),
			Key:       keyAttrs(keys.Form(id)),
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.GetItemOutput)
	if len(result.Item) == 0 {
		return nil, apperrors.NewNotFoundError("form")
	}

	var item formItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("GetItem", err)
	}
	form := item.toEntity()
	return &form, nil
}

// Create persists a new form at version 1.
func (r *FormRepository) Create(ctx context.Context, input entities.NewForm) (*entities.Form, error) {
	status := input.Status
	if status == "" {
		status = entities.FormStatusActive
	}

	formID := uuid.NewString()
	key := keys.Form(formID)
	now := formatTime(timeNow())
	item := formItem{
		PK:         key.PK,
		SK:         key.SK,
		EntityType: entityTypeForm,
		FormID:     formID,
		Title:      input.Title,
		Status:     string(status),
		Version:    1,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	av, err := attributevalue.MarshalMap(item)
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

	r.logger.Info("Form created",
		zap.String("formID", formID),
		zap.String("title", input.Title),
	)

	form := item.toEntity()
	return &form, nil
}

// Update merges the patch into the form's metadata with a conditional write:
// the version read is the version the write expects, so a concurrent update
// cannot produce a duplicate increment. A lost race is retried once with a
// fresh read, then reported as a conflict.
func (r *FormRepository) Update(ctx context.Context, id string, patch entities.FormPatch) (*entities.Form, error) {
	for attempt := 0; attempt < 2; attempt++ {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		title := current.Title
		if patch.Title != nil {
			title = *patch.Title
		}
		status := current.Status
		if patch.Status != nil {
			status = *patch.Status
		}

		update := expression.
			Set(expression.Name("title"), expression.Value(title)).
			Set(expression.Name("status"), expression.Value(string(status))).
			Set(expression.Name("version"), expression.Value(current.Version+1)).
			Set(expression.Name("updatedAt"), expression.Value(formatTime(timeNow())))
		cond := expression.Name("version").Equal(expression.Value(current.Version))
		expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
		if err != nil {
			return nil, apperrors.NewDatabaseError("UpdateItem", err)
		}

		out, err := r.client.invoke(ctx, "UpdateItem", func(ctx context.Context) (interface{}, error) {
			return r.client.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(r.client.table),
				Key:                       keyAttrs(keys.Form(id)),
				UpdateExpression:          expr.Update(),
				ConditionExpression:       expr.Condition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ReturnValues:              types.ReturnValueAllNew,
			})
		})
		if err != nil {
			if apperrors.IsConflict(err) {
				r.logger.Warn("Form update lost version race, retrying",
					zap.String("formID", id),
					zap.Int("expectedVersion", current.Version),
				)
				continue
			}
			return nil, err
		}

		var item formItem
		if err := attributevalue.UnmarshalMap(out.(*dynamodb.UpdateItemOutput).Attributes, &item); err != nil {
			return nil, apperrors.NewDatabaseError("UpdateItem", err)
		}
		form := item.toEntity()
		return &form, nil
	}

	return nil, apperrors.NewConflictError("form update lost version race")
}

// Remove deletes the form metadata and returns the pre-deletion snapshot.
// Field items are intentionally left in place; forms are archived via status
// in normal operation and this hard-delete path exists for admin cleanup.
func (r *FormRepository) Remove(ctx context.Context, id string) (*entities.Form, error) {
	out, err := r.client.invoke(ctx, "DeleteItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String(r.client.table),
			Key:          keyAttrs(keys.Form(id)),
			ReturnValues: types.ReturnValueAllOld,
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.DeleteItemOutput)
	if len(result.Attributes) == 0 {
		return nil, apperrors.NewNotFoundError("form")
	}

	var item formItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("DeleteItem", err)
	}

	r.logger.Info("Form removed", zap.String("formID", id))

	form := item.toEntity()
	return &form, nil
}

// ListFields queries the form's partition for field items and sorts them
// ascending by order, ties preserving storage order.
func (r *FormRepository) ListFields(ctx context.Context, formID string) ([]entities.FormField, error) {
	items, err := r.queryFieldItems(ctx, formID)
	if err != nil {
		return nil, err
	}

	fields := make([]entities.FormField, 0, len(items))
	for _, item := range items {
		fields = append(fields, item.toEntity())
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Order < fields[j].Order })
	return fields, nil
}

func (r *FormRepository) queryFieldItems(ctx context.Context, formID string) ([]fieldItem, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(keys.FormPrefix + formID)).
			And(expression.Key("SK").BeginsWith(keys.FieldPrefix))).
		Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("Query", err)
	}

	var items []fieldItem
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
			var item fieldItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal field item",
					zap.String("formID", formID),
					zap.Error(err),
				)
				continue
			}
			items = append(items, item)
		}

		if result.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

// CreateField adds a field to an existing form and bumps the form version.
func (r *FormRepository) CreateField(ctx context.Context, formID string, input entities.NewFormField) (*entities.FormField, error) {
	if _, err := r.Get(ctx, formID); err != nil {
		return nil, err
	}

	field := entities.FormField{
		FieldID:    input.FieldID,
		Label:      input.Label,
		Type:       input.Type,
		Required:   input.Required,
		Options:    input.Options,
		Default:    input.Default,
		Validation: input.Validation,
	}
	if field.FieldID == "" {
		field.FieldID = uuid.NewString()
	}
	if input.Order != nil {
		field.Order = *input.Order
	} else {
		existing, err := r.queryFieldItems(ctx, formID)
		if err != nil {
			return nil, err
		}
		field.Order = len(existing) + 1
	}

	av, err := attributevalue.MarshalMap(newFieldItem(formID, field))
	if err != nil {
		return nil, apperrors.NewDatabaseError("PutItem", err)
	}

	// The condition keys on the full PK/SK pair, so a caller-supplied field ID
	// that is already taken on this form fails instead of overwriting.
	if _, err := r.client.invoke(ctx, "PutItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.client.table),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
	}); err != nil {
		if apperrors.IsConflict(err) {
			return nil, apperrors.NewConflictError("field ID already exists on this form")
		}
		return nil, err
	}

	if err := r.bumpVersion(ctx, formID); err != nil {
		return nil, err
	}

	return &field, nil
}

// UpdateField merges the patch into an existing field and bumps the form
// version.
func (r *FormRepository) UpdateField(ctx context.Context, formID, fieldID string, patch entities.FormFieldPatch) (*entities.FormField, error) {
	items, err := r.queryFieldItems(ctx, formID)
	if err != nil {
		return nil, err
	}

	var current *entities.FormField
	for _, item := range items {
		if item.FieldID == fieldID {
			f := item.toEntity()
			current = &f
			break
		}
	}
	if current == nil {
		return nil, apperrors.NewNotFoundError("field")
	}

	if patch.Label != nil {
		current.Label = *patch.Label
	}
	if patch.Type != nil {
		current.Type = *patch.Type
	}
	if patch.Required != nil {
		current.Required = *patch.Required
	}
	if patch.Order != nil {
		current.Order = *patch.Order
	}
	if patch.Options != nil {
		current.Options = *patch.Options
	}
	if patch.Default != nil {
		current.Default = *patch.Default
	}
	if patch.Validation != nil {
		current.Validation = patch.Validation
	}

	av, err := attributevalue.MarshalMap(newFieldItem(formID, *current))
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

	if err := r.bumpVersion(ctx, formID); err != nil {
		return nil, err
	}

	return current, nil
}

// RemoveField deletes a field, bumps the form version and returns the
// pre-deletion snapshot.
func (r *FormRepository) RemoveField(ctx context.Context, formID, fieldID string) (*entities.FormField, error) {
	out, err := r.client.invoke(ctx, "DeleteItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String(r.client.table),
			Key:          keyAttrs(keys.FormField(formID, fieldID)),
			ReturnValues: types.ReturnValueAllOld,
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.DeleteItemOutput)
	if len(result.Attributes) == 0 {
		return nil, apperrors.NewNotFoundError("field")
	}

	var item fieldItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("DeleteItem", err)
	}

	if err := r.bumpVersion(ctx, formID); err != nil {
		return nil, err
	}

	field := item.toEntity()
	return &field, nil
}

// ReplaceFields swaps the form's whole field set: delete all existing field
// items, then put the new set, in batches of 25. The batch is not
// transactional; a mid-flight failure is surfaced as a PartialBatch error
// carrying how far the write got, so a mixed field set is diagnosable rather
// than silent.
func (r *FormRepository) ReplaceFields(ctx context.Context, formID string, inputs []entities.NewFormField) ([]entities.FormField, error) {
	if _, err := r.Get(ctx, formID); err != nil {
		return nil, err
	}

	existing, err := r.queryFieldItems(ctx, formID)
	if err != nil {
		return nil, err
	}

	var requests []types.WriteRequest
	for _, item := range existing {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: keyAttrs(keys.Key{PK: item.PK, SK: item.SK})},
		})
	}

	fields := make([]entities.FormField, 0, len(inputs))
	for i, input := range inputs {
		field := entities.FormField{
			FieldID:    input.FieldID,
			Label:      input.Label,
			Type:       input.Type,
			Required:   input.Required,
			Order:      i + 1,
			Options:    input.Options,
			Default:    input.Default,
			Validation: input.Validation,
		}
		if field.FieldID == "" {
			field.FieldID = uuid.NewString()
		}
		if input.Order != nil {
			field.Order = *input.Order
		}
		fields = append(fields, field)

		av, err := attributevalue.MarshalMap(newFieldItem(formID, field))
		if err != nil {
			return nil, apperrors.NewDatabaseError("BatchWriteItem", err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	deleted, written := 0, 0
	for _, chunk := range chunkWriteRequests(requests) {
		if err := r.writeChunk(ctx, chunk); err != nil {
			r.logger.Error("Field replacement failed mid-batch",
				zap.String("formID", formID),
				zap.Int("deleted", deleted),
				zap.Int("written", written),
				zap.Error(err),
			)
			return nil, apperrors.NewPartialBatchError(deleted, written, err)
		}
		for _, req := range chunk {
			if req.DeleteRequest != nil {
				deleted++
			} else {
				written++
			}
		}
	}

	if err := r.bumpVersion(ctx, formID); err != nil {
		return nil, err
	}

	r.logger.Info("Form fields replaced",
		zap.String("formID", formID),
		zap.Int("deleted", deleted),
		zap.Int("written", written),
	)

	return fields, nil
}

// writeChunk issues one BatchWriteItem and drives unprocessed items to
// completion with a bounded retry.
func (r *FormRepository) writeChunk(ctx context.Context, chunk []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{r.client.table: chunk}
	for attempt := 0; attempt < 3; attempt++ {
		out, err := r.client.invoke(ctx, "BatchWriteItem", func(ctx context.Context) (interface{}, error) {
			return r.client.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
		})
		if err != nil {
			return err
		}
		result := out.(*dynamodb.BatchWriteItemOutput)
		if len(result.UnprocessedItems) == 0 {
			return nil
		}
		pending = result.UnprocessedItems
	}
	return apperrors.NewUnavailableError("dynamodb", errUnprocessedItems)
}

// bumpVersion atomically increments the form's version after a field-set
// change. The existence condition turns a write against a deleted form into
// not-found instead of resurrecting metadata.
func (r *FormRepository) bumpVersion(ctx context.Context, formID string) error {
	update := expression.
		Set(expression.Name("version"), expression.Name("version").Plus(expression.Value(1))).
		Set(expression.Name("updatedAt"), expression.Value(formatTime(timeNow())))
	cond := expression.AttributeExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return apperrors.NewDatabaseError("UpdateItem", err)
	}

	_, err = r.client.invoke(ctx, "UpdateItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(r.client.table),
			Key:                       keyAttrs(keys.Form(formID)),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
	})
	if apperrors.IsConflict(err) {
		return apperrors.NewNotFoundError("form")
	}
	return err
}
