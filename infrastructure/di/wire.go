//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"carelog-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	config.LoadConfig,
	ProvideLogger,
	ProvideTokenManager,
	ProvideRepositories,
	ProvideHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer builds the full dependency graph.
func InitializeContainer(ctx context.Context) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
