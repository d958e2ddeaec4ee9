package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

func claimsFor(role models.UserRole, ttl time.Duration) *models.JWTClaims {
	org := "O"
	return &models.JWTClaims{
		UserID:         "U1",
		Role:           role,
		OrganizationID: &org,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestTokenValidate(t *testing.T) {
	svc := NewTokenService("secret", "satudata-auth")
	token, err := svc.Sign(claimsFor(models.RoleProducer, time.Hour))
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	actor := claims.Actor()
	assert.Equal(t, "U1", actor.UserID)
	assert.Equal(t, models.RoleProducer, actor.Role)
	assert.True(t, actor.BelongsTo("O"))
}

func TestTokenValidateRejects(t *testing.T) {
	svc := NewTokenService("secret", "satudata-auth")

	expired, err := svc.Sign(claimsFor(models.RoleAdmin, -time.Minute))
	require.NoError(t, err)
	_, err = svc.Validate(expired)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	foreign, err := NewTokenService("secret", "someone-else").Sign(claimsFor(models.RoleAdmin, time.Hour))
	require.NoError(t, err)
	_, err = svc.Validate(foreign)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongKey, err := NewTokenService("other", "satudata-auth").Sign(claimsFor(models.RoleAdmin, time.Hour))
	require.NoError(t, err)
	_, err = svc.Validate(wrongKey)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	unknown, err := svc.Sign(claimsFor(models.UserRole("GUEST"), time.Hour))
	require.NoError(t, err)
	_, err = svc.Validate(unknown)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Validate("not-a-token")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
