package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/matchpoint-hq/matchpoint/config"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// Verification failure kinds. ErrTokenExpired means the signature verified
// but the expiry elapsed; ErrTokenInvalid covers every other failure. The
// session middleware maps them to different user-facing messages.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token malformed or signature invalid")
)

// Claims is the JWT payload: {userId, role, iat, jti, exp}. The role claim
// carries the origin tag of the matched credential table.
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies signed bearer tokens. Signing is pinned
// to HS256; tokens with any other algorithm fail verification.
type TokenIssuer struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(cfg.SecretKey),
		ttl:      cfg.TokenTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// TTL returns the configured token lifetime.
func (ti *TokenIssuer) TTL() time.Duration { return ti.ttl }

// Issue mints a signed token for the given subject and origin tag.
func (ti *TokenIssuer) Issue(subjectID int64, roleTag types.Origin) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: subjectID,
		Role:   string(roleTag),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        newJTI(),
			Issuer:    ti.issuer,
			Audience:  jwt.ClaimStrings{ti.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. A token is valid iff its
// signature verifies against the server secret and its expiry has not
// elapsed.
func (ti *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// newJTI returns 128 bits of randomness, hex-encoded.
func newJTI() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
