package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

func TestService_IssueAndValidate(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret", Issuer: "ops", TokenTTL: time.Hour}, newTestLogger())

	token, err := svc.IssueToken(context.Background(), "dashboard")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "dashboard", claims.Subject)
	require.Equal(t, "ops", claims.Issuer)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestService_RejectsTokens(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret", Issuer: "ops"}, newTestLogger())

	otherSecret, err := NewService(Config{Secret: "other", Issuer: "ops"}, newTestLogger()).IssueToken(context.Background(), "x")
	require.NoError(t, err)
	otherIssuer, err := NewService(Config{Secret: "test-secret", Issuer: "someone"}, newTestLogger()).IssueToken(context.Background(), "x")
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x", Issuer: "ops"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "x",
		Issuer:    "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"no expiry":    noExpiry,
		"expired":      expired,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(context.Background(), token)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, CodeInvalidToken))
		})
	}
}

func TestService_IssueRequiresSubject(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret"}, newTestLogger())
	_, err := svc.IssueToken(context.Background(), "  ")
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
