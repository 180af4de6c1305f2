package account

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/config"
)

func issuerWith(secret string, ttl time.Duration) *TokenIssuer {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = secret
	cfg.Auth.TokenTTL = ttl
	return NewTokenIssuer(cfg)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := issuerWith("secret", time.Hour)
	user := &models.User{ID: "u1", Email: "alice@example.com", IsPremium: true}

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.True(t, claims.IsPremium)
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := issuerWith("secret", -time.Minute)
	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := issuerWith("secret-a", time.Hour).Issue(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = issuerWith("secret-b", time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNonHMACAlgorithmRejected(t *testing.T) {
	// alg=none tokens must never parse.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuerWith("secret", time.Hour).Parse(signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
