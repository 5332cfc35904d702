package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/secure", RequireRole(RoleAdmin, RoleQA), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestRequireRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "mw-secret")
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		header string
		cookie string
		want   int
		body   string
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bad format", header: "Token abc", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + token(t, "other", jwt.MapClaims{"role": "qa", "exp": exp}), want: http.StatusUnauthorized},
		{name: "no role", header: "Bearer " + token(t, "mw-secret", jwt.MapClaims{"sub": "u1", "exp": exp}), want: http.StatusForbidden},
		{name: "other role", header: "Bearer " + token(t, "mw-secret", jwt.MapClaims{"role": "ops", "exp": exp}), want: http.StatusForbidden},
		{name: "qa header", header: "Bearer " + token(t, "mw-secret", jwt.MapClaims{"sub": "u1", "role": "qa", "exp": exp}), want: http.StatusOK, body: "u1"},
		{name: "admin cookie", cookie: token(t, "mw-secret", jwt.MapClaims{"sub": "u2", "role": "admin", "exp": exp}), want: http.StatusOK, body: "u2"},
	}

	r := newRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestParseToken(t *testing.T) {
	secret := []byte("parse-secret")
	exp := time.Now().Add(time.Hour).Unix()

	claims, err := ParseToken(token(t, string(secret), jwt.MapClaims{"sub": "u9", "role": "qa", "exp": exp}), secret)
	require.NoError(t, err)
	assert.Equal(t, "u9", claims.Subject)
	assert.Equal(t, RoleQA, claims.Role)

	_, err = ParseToken(token(t, string(secret), jwt.MapClaims{"role": "qa", "exp": time.Now().Add(-time.Minute).Unix()}), secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(none, secret)
	assert.Error(t, err)
}
