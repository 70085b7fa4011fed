package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelog-backend/domain/entities"
)

func testUser() *entities.User {
	return &entities.User{
		ID:    "u-1",
		Email: "t@x.com",
		Role:  entities.RoleTeacher,
	}
}

func TestIssueAndValidate(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "carelog-backend", time.Hour)
	require.NoError(t, err)

	token, err := mgr.Issue(testUser())
	require.NoError(t, err)

	claims, err := mgr.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "t@x.com", claims.Email)
	assert.Equal(t, entities.RoleTeacher, claims.Role)
}

func TestValidateStripsBearerPrefix(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "carelog-backend", time.Hour)
	require.NoError(t, err)

	token, err := mgr.Issue(testUser())
	require.NoError(t, err)

	claims, err := mgr.Validate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokenManager("secret-a", "carelog-backend", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenManager("secret-b", "carelog-backend", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "carelog-backend", time.Hour)
	require.NoError(t, err)
	mgr.ttl = -time.Minute

	token, err := mgr.Issue(testUser())
	require.NoError(t, err)

	_, err = mgr.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewTokenManager("test-secret", "other-app", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenManager("test-secret", "carelog-backend", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateRejectsEmptyToken(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "carelog-backend", time.Hour)
	require.NoError(t, err)

	_, err = mgr.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("changeme")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "changeme"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
