package middleware

import (
	"errors"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleQA    = "qa"

	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

var errMissingToken = errors.New("authorization is missing")

// Claims are the fields read from an access token. Tokens are issued by the
// platform's identity service; this service only verifies them.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // development only
	}
	return []byte(secret)
}

// ParseToken verifies an HMAC-signed token and returns its claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// bearerToken reads the access_token cookie set by the dashboard, falling
// back to an "Authorization: Bearer" header for API clients.
func bearerToken(c *gin.Context) (string, error) {
	if tok, err := c.Cookie("access_token"); err == nil && tok != "" {
		return tok, nil
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || tok == "" {
		return "", errors.New("invalid authorization format, expected 'Bearer <token>'")
	}
	return tok, nil
}

// RequireRole rejects requests without a valid token carrying one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		claims, err := ParseToken(tok, GetJWTSecret())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		if !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// UserID returns the token subject set by RequireRole, or "".
func UserID(c *gin.Context) string {
	sub, _ := c.Get(ContextUserID)
	id, _ := sub.(string)
	return id
}
