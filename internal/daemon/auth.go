package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shelfmark/internal/services"
)

const (
	tokenIssuer  = "shelfmark"
	ctxUserIDKey = "shelfmark_user_id"
)

// Claims are the JWT claims shelfmark issues and accepts.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 bearer tokens.
type TokenService struct {
	Secret []byte
	TTL    time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService for secret.
func NewTokenService(secret string, ttl time.Duration) TokenService {
	return TokenService{Secret: []byte(secret), TTL: ttl, now: time.Now}
}

func (ts TokenService) clock() time.Time {
	if ts.now != nil {
		return ts.now()
	}
	return time.Now()
}

// Mint issues a token for userID and returns it with its expiry.
func (ts TokenService) Mint(userID int64) (string, time.Time, error) {
	if userID <= 0 {
		return "", time.Time{}, errors.New("user id must be positive")
	}
	if len(ts.Secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	issued := ts.clock()
	exp := issued.Add(ts.TTL)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims.
func (ts TokenService) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ts.Secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(ts.clock))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token carries no user")
	}
	return claims, nil
}

// authMiddleware rejects requests without a valid bearer token and stores the
// caller's user id on the gin and request contexts.
func authMiddleware(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(ctxUserIDKey, claims.UserID)
		c.Request = c.Request.WithContext(services.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: message, Kind: "unauthorized"})
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserIDKey)
}
