//go:build unit

package jwt_test

import (
	"testing"
	"time"

	"stayhub/internal/domain/user"
	"stayhub/internal/pkg/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService(t *testing.T) {
	svc := jwt.NewService("secret", "stayhub", time.Hour)
	userID := uuid.New()

	t.Run("round trip keeps the subject and role", func(t *testing.T) {
		token, err := svc.GenerateToken(userID, user.RoleGuest)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "guest", claims.Role)
		assert.Equal(t, "stayhub", claims.Issuer)
	})

	t.Run("expired tokens are reported as expired", func(t *testing.T) {
		token, err := jwt.NewService("secret", "stayhub", -time.Minute).GenerateToken(userID, user.RoleGuest)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("tokens within the clock skew are accepted", func(t *testing.T) {
		token, err := jwt.NewService("secret", "stayhub", -10*time.Second).GenerateToken(userID, user.RoleGuest)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.NoError(t, err)
	})

	t.Run("other signing methods are rejected", func(t *testing.T) {
		claims := jwt.Claims{
			UserID: userID,
			Role:   "guest",
			RegisteredClaims: gojwt.RegisteredClaims{
				Issuer:    "stayhub",
				ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("tokens without a user id are rejected", func(t *testing.T) {
		token, err := svc.GenerateToken(uuid.Nil, user.RoleGuest)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
