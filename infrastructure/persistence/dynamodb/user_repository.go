package dynamodb

import (
	"context"

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

// UserRepository implements ports.UserRepository over the single table. The
// user population is small (staff accounts, not end users), so listing and
// the email lookup run as filtered scans rather than carrying a third index.
type UserRepository struct {
	client *Client
	logger *zap.Logger
}

// NewUserRepository creates a user repository over the shared client.
func NewUserRepository(client *Client, logger *zap.Logger) *UserRepository {
	return &UserRepository{client: client, logger: logger}
}

// userItem is the stored shape of a user profile.
type userItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"userId"`
	Email        string `dynamodbav:"email"`
	Role         string `dynamodbav:"role"`
	Active       bool   `dynamodbav:"active"`
	FirstName    string `dynamodbav:"firstName,omitempty"`
	LastName     string `dynamodbav:"lastName,omitempty"`
	Phone        string `dynamodbav:"phone,omitempty"`
	Locale       string `dynamodbav:"locale,omitempty"`
	Timezone     string `dynamodbav:"timezone,omitempty"`
	PasswordHash string `dynamodbav:"passwordHash,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt"`
	UpdatedAt    string `dynamodbav:"updatedAt"`
}

func (i userItem) toEntity() entities.User {
	return entities.User{
		ID:           i.UserID,
		Email:        i.Email,
		Role:         entities.Role(i.Role),
		Active:       i.Active,
		FirstName:    i.FirstName,
		LastName:     i.LastName,
		Phone:        i.Phone,
		Locale:       i.Locale,
		Timezone:     i.Timezone,
		PasswordHash: i.PasswordHash,
		CreatedAt:    parseTime(i.CreatedAt),
		UpdatedAt:    parseTime(i.UpdatedAt),
	}
}

func newUserItem(u entities.User) userItem {
	key := keys.User(u.ID)
	return userItem{
		PK:           key.PK,
		SK:           key.SK,
		EntityType:   entityTypeUser,
		UserID:       u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		Active:       u.Active,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		Locale:       u.Locale,
		Timezone:     u.Timezone,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
		UpdatedAt:    formatTime(u.UpdatedAt),
	}
}

// scanUsers pages a filtered scan and unmarshals the matching profiles.
func (r *UserRepository) scanUsers(ctx context.Context, filter expression.ConditionBuilder) ([]entities.User, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("Scan", err)
	}

	var users []entities.User
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
			var item userItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal user item", zap.Error(err))
				continue
			}
			users = append(users, item.toEntity())
		}

		if result.LastEvaluatedKey == nil {
			return users, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func userFilter() expression.ConditionBuilder {
	return expression.Name("PK").BeginsWith(keys.UserPrefix).
		And(expression.Name("SK").Equal(expression.Value(keys.ProfileSK)))
}

// List returns all user profiles.
func (r *UserRepository) List(ctx context.Context) ([]entities.User, error) {
	return r.scanUsers(ctx, userFilter())
}

// Get returns the user with the given ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*entities.User, error) {
	out, err := r.client.invoke(ctx, "GetItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.client.table),
			Key:       keyAttrs(keys.User(id)),
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.GetItemOutput)
	if len(result.Item) == 0 {
		return nil, apperrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("GetItem", err)
	}
	user := item.toEntity()
	return &user, nil
}

// GetByEmail is the login lookup: a scan filtered to the exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	users, err := r.scanUsers(ctx, userFilter().
		And(expression.Name("email").Equal(expression.Value(email))))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperrors.NewNotFoundError("user")
	}
	return &users[0], nil
}

// Create persists a new user. Emails must be unique across the table; a
// duplicate reports a conflict before anything is written.
func (r *UserRepository) Create(ctx context.Context, input entities.NewUser) (*entities.User, error) {
	if _, err := r.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflictError("email already registered")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = entities.RoleTeacher
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role: " + string(role))
	}

	now := timeNow()
	user := entities.User{
		ID:           input.ID,
		Email:        input.Email,
		Role:         role,
		Active:       true,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Locale:       input.Locale,
		Timezone:     input.Timezone,
		PasswordHash: input.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	av, err := attributevalue.MarshalMap(newUserItem(user))
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

	r.logger.Info("User created",
		zap.String("userID", user.ID),
		zap.String("role", string(user.Role)),
	)

	return &user, nil
}

// Update merges the patch and rewrites the profile item.
func (r *UserRepository) Update(ctx context.Context, id string, patch entities.UserPatch) (*entities.User, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		current.Email = *patch.Email
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, apperrors.NewValidationError("unknown role: " + string(*patch.Role))
		}
		current.Role = *patch.Role
	}
	if patch.Active != nil {
		current.Active = *patch.Active
	}
	if patch.FirstName != nil {
		current.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		current.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		current.Phone = *patch.Phone
	}
	if patch.Locale != nil {
		current.Locale = *patch.Locale
	}
	if patch.Timezone != nil {
		current.Timezone = *patch.Timezone
	}
	if patch.PasswordHash != nil {
		current.PasswordHash = *patch.PasswordHash
	}
	current.UpdatedAt = timeNow()

	av, err := attributevalue.MarshalMap(newUserItem(*current))
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

// Remove deletes the user profile and returns the pre-deletion snapshot.
func (r *UserRepository) Remove(ctx context.Context, id string) (*entities.User, error) {
	out, err := r.client.invoke(ctx, "DeleteItem", func(ctx context.Context) (interface{}, error) {
		return r.client.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String(r.client.table),
			Key:          keyAttrs(keys.User(id)),
			ReturnValues: types.ReturnValueAllOld,
		})
	})
	if err != nil {
		return nil, err
	}
	result := out.(*dynamodb.DeleteItemOutput)
	if len(result.Attributes) == 0 {
		return nil, apperrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("DeleteItem", err)
	}

	r.logger.Info("User removed", zap.String("userID", id))

	user := item.toEntity()
	return &user, nil
}
