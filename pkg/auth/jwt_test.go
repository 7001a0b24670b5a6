package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func newTestValidator(t *testing.T) *JWTValidator {
	t.Helper()
	validator, err := NewJWTValidator(JWTConfig{
		SecretKey: testSecret,
		Issuer:    "engram",
		Audience:  []string{"engram-api"},
	})
	require.NoError(t, err)
	return validator
}

func newTestGenerator(t *testing.T) *JWTGenerator {
	t.Helper()
	generator, err := NewJWTGenerator(JWTGeneratorConfig{
		SecretKey:  testSecret,
		Issuer:     "engram",
		Audience:   []string{"engram-api"},
		ExpiryTime: time.Hour,
	})
	require.NoError(t, err)
	return generator
}

func TestJWT_GenerateAndValidateRoundtrip(t *testing.T) {
	generator := newTestGenerator(t)
	validator := newTestValidator(t)

	token, err := generator.GenerateToken("user-1", "alice@example.com", []string{"user", "admin"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Contains(t, claims.Roles, "admin")
}

func TestJWT_ValidateToken_StripsBearerPrefix(t *testing.T) {
	generator := newTestGenerator(t)
	validator := newTestValidator(t)

	token, err := generator.GenerateToken("user-1", "alice@example.com", nil)
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestJWT_ValidateToken_Failures(t *testing.T) {
	validator := newTestValidator(t)

	makeToken := func(claims *Claims, secret string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	goodClaims := func() *Claims {
		return &Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "engram",
				Subject:   "user-1",
				Audience:  jwt.ClaimStrings{"engram-api"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
	}

	t.Run("missing token", func(t *testing.T) {
		_, err := validator.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := validator.ValidateToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := goodClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := validator.ValidateToken(makeToken(claims, testSecret))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := validator.ValidateToken(makeToken(goodClaims(), "other-secret"))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := goodClaims()
		claims.Issuer = "someone-else"
		_, err := validator.ValidateToken(makeToken(claims, testSecret))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := goodClaims()
		claims.Audience = jwt.ClaimStrings{"other-api"}
		_, err := validator.ValidateToken(makeToken(claims, testSecret))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("missing user ID", func(t *testing.T) {
		claims := goodClaims()
		claims.UserID = ""
		claims.Subject = ""
		_, err := validator.ValidateToken(makeToken(claims, testSecret))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestUserContext_RoundtripAndRoles(t *testing.T) {
	user := &UserContext{UserID: "user-1", Email: "alice@example.com", Roles: []string{"admin"}}

	ctx := SetUserInContext(context.Background(), user)
	got, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.True(t, got.HasRole("admin"))
	assert.False(t, got.HasRole("auditor"))

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
