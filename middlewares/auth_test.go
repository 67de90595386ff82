package middlewares

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

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func parentRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/parents/me", AuthMiddleware(testSecret), ParentOnly(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString(FirebaseUIDKey)})
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsParent(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"firebase_uid": "ZEXF4HEyySaGUVUFzUifUsF6rLi2",
		"user_type":    "parent",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	w := doGet(parentRouter(), "/parents/me", token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ZEXF4HEyySaGUVUFzUifUsF6rLi2")
}

func TestAuthMiddlewareRejects(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
	}{
		{name: "no header"},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
			"firebase_uid": "uid", "user_type": "parent",
		})},
		{name: "expired", token: signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"firebase_uid": "uid", "user_type": "parent", "exp": time.Now().Add(-time.Minute).Unix(),
		})},
		{name: "missing firebase_uid", token: signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"user_type": "parent",
		})},
		{name: "missing user_type", token: signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"firebase_uid": "uid",
		})},
		{name: "hs512", token: signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{
			"firebase_uid": "uid", "user_type": "parent",
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/parents/me", nil)
			switch {
			case tt.header != "":
				req.Header.Set("Authorization", tt.header)
			case tt.token != "":
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			parentRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"unauthenticated"`)
		})
	}
}

func TestParentOnlyRejectsChildToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"firebase_uid": "child-uid",
		"user_type":    "child",
	})

	w := doGet(parentRouter(), "/parents/me", token)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"authorization_error"`)
}
