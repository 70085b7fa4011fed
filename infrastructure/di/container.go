package di

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"carelog-backend/application/ports"
	"carelog-backend/infrastructure/config"
	"carelog-backend/pkg/auth"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Repos   *ports.Repositories
	Tokens  *auth.TokenManager
	Handler http.Handler
}

var (
	containerOnce sync.Once
	containerInst *Container
	containerErr  error
)

// EnsureContainer builds the container on first call and returns the same
// instance afterwards, including across callers that race. A failed build is
// also memoized; the process does not retry backend selection.
func EnsureContainer(ctx context.Context) (*Container, error) {
	containerOnce.Do(func() {
		containerInst, containerErr = InitializeContainer(ctx)
	})
	return containerInst, containerErr
}

// EnsureRepositories returns the memoized repository set.
func EnsureRepositories(ctx context.Context) (*ports.Repositories, error) {
	c, err := EnsureContainer(ctx)
	if err != nil {
		return nil, err
	}
	return c.Repos, nil
}

// resetContainer clears the memoized container. Test hook only.
func resetContainer() {
	containerOnce = sync.Once{}
	containerInst = nil
	containerErr = nil
}
