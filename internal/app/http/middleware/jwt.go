package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxRole   = "role"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the identity carried by a verified bearer token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// OnAuthenticated runs after a token verifies and before the handler. It can
// provision a profile for identities issued elsewhere.
type OnAuthenticated func(ctx context.Context, claims *Claims) error

// JWTVerifier issues and verifies the HS256 tokens handed out by /login.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTVerifier(secret string, ttl time.Duration) *JWTVerifier {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (v *JWTVerifier) Issue(userID, email, role string) (string, error) {
	if len(v.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"exp":     v.now().Add(v.ttl).Unix(),
	})
	return t.SignedString(v.secret)
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	claims.UserID, _ = mc["user_id"].(string)
	claims.Email, _ = mc["email"].(string)
	claims.Role, _ = mc["role"].(string)
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func AuthMiddleware(v Verifier, onAuth OnAuthenticated, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		claims, err := v.Verify(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if onAuth != nil {
			if err := onAuth(c.Request.Context(), claims); err != nil {
				log.Error("post-authentication hook failed", zap.String("user_id", claims.UserID), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load user profile"})
				return
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated user's id, or "" outside AuthMiddleware.
func UserID(c *gin.Context) string { return c.GetString(ctxUserID) }

func Email(c *gin.Context) string { return c.GetString(ctxEmail) }
