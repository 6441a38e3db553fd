package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roomboard/internal/models"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "roomboard"})

	token, expiresAt, err := svc.IssueToken(IssueTokenRequest{UserID: "u-1", Email: "ops@example.com", Role: models.RoleEditor, TTL: time.Hour})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleEditor, claims.Role)
	assert.Equal(t, "roomboard", claims.Issuer)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret"})

	other := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "other"})
	foreign, _, err := other.IssueToken(IssueTokenRequest{UserID: "u-1", Role: models.RoleAdmin, TTL: time.Hour})
	require.NoError(t, err)

	_, err = svc.ValidateToken(foreign)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
		UserID:           "u-1",
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestAuthServiceIssueValidation(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret"})
	_, _, err := svc.IssueToken(IssueTokenRequest{UserID: "u-1", Role: "ROOT", TTL: time.Hour})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	unsigned := NewAuthService(nil, nil, AuthConfig{})
	_, _, err = unsigned.IssueToken(IssueTokenRequest{UserID: "u-1", Role: models.RoleViewer, TTL: time.Hour})
	assert.Error(t, err)
}
