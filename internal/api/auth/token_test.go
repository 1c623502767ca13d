package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/matchpoint/config"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

func testIssuer(ttl time.Duration) *TokenIssuer {
	return NewTokenIssuer(config.JWTConfig{
		SecretKey: "test-secret-key",
		Issuer:    "matchpoint-api",
		Audience:  "matchpoint-clients",
		TokenTTL:  ttl,
	})
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := testIssuer(7 * 24 * time.Hour)

	token, err := issuer.Issue(42, types.OriginAthlete)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, string(types.OriginAthlete), claims.Role)
	assert.Equal(t, "matchpoint-api", claims.Issuer)
	assert.Len(t, claims.ID, 32, "jti should be 128 bits hex-encoded")
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.WithinDuration(t, claims.IssuedAt.Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestTokenJTIUnique(t *testing.T) {
	issuer := testIssuer(time.Hour)

	a, err := issuer.Issue(1, types.OriginUser)
	require.NoError(t, err)
	b, err := issuer.Issue(1, types.OriginUser)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenVerifyExpired(t *testing.T) {
	issuer := testIssuer(-time.Minute)

	token, err := issuer.Issue(7, types.OriginUser)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenVerifyNearExpiryStillValid(t *testing.T) {
	issuer := testIssuer(5 * time.Second)

	token, err := issuer.Issue(7, types.OriginUser)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestTokenVerifyRejectsInvalid(t *testing.T) {
	issuer := testIssuer(time.Hour)

	t.Run("garbage string", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer(config.JWTConfig{
			SecretKey: "a-different-secret",
			TokenTTL:  time.Hour,
		})
		token, err := other.Issue(9, types.OriginUser)
		require.NoError(t, err)

		_, err = issuer.Verify(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS384, &Claims{
			UserID: 9,
			Role:   string(types.OriginUser),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-secret-key"))
		require.NoError(t, err)

		_, err = issuer.Verify(signed)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
