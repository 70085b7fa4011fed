// Package dynamodb implements the repository contracts over a single
// DynamoDB table with two global secondary indexes. The key layout lives in
// infrastructure/persistence/keys; every entity type shares the table and is
// distinguished by its key prefix.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"carelog-backend/infrastructure/config"
	apperrors "carelog-backend/pkg/errors"
)

// DynamoDB caps BatchWriteItem at 25 items per request.
const batchWriteLimit = 25

// How long table bootstrap waits for the table and its indexes to go active.
const waitForActiveTimeout = 2 * time.Minute

// Client wraps the DynamoDB SDK client with the table layout and a circuit
// breaker. Repositories in this package share one Client.
type Client struct {
	ddb     *dynamodb.Client
	table   string
	gsi1    string
	gsi2    string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient builds the DynamoDB client from configuration, optionally creates
// the table, and waits for it to become active before serving requests.
func NewClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.Endpoint != "" {
		// DynamoDB Local accepts any static credentials.
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("dynamodb", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	c := &Client{
		ddb:    ddb,
		table:  cfg.TableName,
		gsi1:   cfg.GSI1Name,
		gsi2:   cfg.GSI2Name,
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "dynamodb",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}

	if cfg.CreateTables {
		if err := c.EnsureTable(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.WaitForActive(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// invoke runs one SDK call through the circuit breaker and maps failures to
// the application error taxonomy.
func (c *Client) invoke(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, c.mapError(op, err)
	}
	return out, nil
}

// mapError translates SDK and breaker failures into the application error
// taxonomy. Conditional-check failures become Conflict; connectivity,
// throttling, missing-table and open-breaker states become Unavailable;
// everything else is a database error.
func (c *Client) mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailableError("dynamodb", err)
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return apperrors.NewConflictError("conditional write failed")
	}

	var throughput *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var tableMissing *types.ResourceNotFoundException
	if errors.As(err, &throughput) || errors.As(err, &requestLimit) || errors.As(err, &tableMissing) {
		return apperrors.NewUnavailableError("dynamodb", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("DynamoDB API error",
			zap.String("operation", op),
			zap.String("code", apiErr.ErrorCode()),
			zap.Error(err),
		)
		return apperrors.NewDatabaseError(op, err)
	}

	// Non-API failures (dialing, context cancellation) mean the store was
	// never reached.
	return apperrors.NewUnavailableError("dynamodb", err)
}

// EnsureTable creates the table with both GSIs when it does not exist yet.
// Table provisioning is normally an operational concern; this path backs the
// DDB_CREATE_TABLES flag used by local development and the seed command.
func (c *Client) EnsureTable(ctx context.Context) error {
	_, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return c.mapError("DescribeTable", err)
	}

	c.logger.Info("Creating table", zap.String("table", c.table))

	attr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	keySchema := func(hash, sort string) []types.KeySchemaElement {
		return []types.KeySchemaElement{
			{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(sort), KeyType: types.KeyTypeRange},
		}
	}

	_, err = c.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(c.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("PK"), attr("SK"),
			attr("GSI1PK"), attr("GSI1SK"),
			attr("GSI2PK"), attr("GSI2SK"),
		},
		KeySchema: keySchema("PK", "SK"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName:  aws.String(c.gsi1),
				KeySchema:  keySchema("GSI1PK", "GSI1SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName:  aws.String(c.gsi2),
				KeySchema:  keySchema("GSI2PK", "GSI2SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var exists *types.ResourceInUseException
		if errors.As(err, &exists) {
			// Another process created it first.
			return nil
		}
		return c.mapError("CreateTable", err)
	}
	return nil
}

// WaitForActive blocks until the table and its indexes report ACTIVE, with a
// bounded retry. Serving requests against a creating table would surface
// spurious unavailability.
func (c *Client) WaitForActive(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, waitForActiveTimeout)
	defer cancel()

	for {
		out, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(c.table),
		})
		if err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive {
			ready := true
			for _, gsi := range out.Table.GlobalSecondaryIndexes {
				if gsi.IndexStatus != types.IndexStatusActive {
					ready = false
					break
				}
			}
			if ready {
				return nil
			}
		}
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if !errors.As(err, &notFound) {
				return c.mapError("DescribeTable", err)
			}
		}

		c.logger.Debug("Waiting for table to become active", zap.String("table", c.table))
		select {
		case <-ctx.Done():
			return apperrors.NewUnavailableError("dynamodb", fmt.Errorf("table %s not active: %w", c.table, ctx.Err()))
		case <-time.After(2 * time.Second):
		}
	}
}

// chunkWriteRequests splits batch write requests into DynamoDB-sized chunks.
func chunkWriteRequests(requests []types.WriteRequest) [][]types.WriteRequest {
	var chunks [][]types.WriteRequest
	for len(requests) > batchWriteLimit {
		chunks = append(chunks, requests[:batchWriteLimit])
		requests = requests[batchWriteLimit:]
	}
	if len(requests) > 0 {
		chunks = append(chunks, requests)
	}
	return chunks
}
