package middlewares

import (
	"PinguinTube/apperrors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	FirebaseUIDKey = "firebase_uid"
	UserTypeKey    = "user_type"

	UserTypeParent = "parent"
)

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "kind": apperrors.KindUnauthenticated})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// AuthMiddleware проверяет JWT родительского приложения (HS256) и кладёт в контекст firebase_uid и user_type
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthenticated(c, "unauthorized")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abortUnauthenticated(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			abortUnauthenticated(c, "invalid token")
			return
		}

		// Проверяем и извлекаем firebase_uid
		firebaseUID, ok := claims["firebase_uid"].(string)
		if !ok || firebaseUID == "" {
			abortUnauthenticated(c, "invalid token: missing firebase_uid")
			return
		}
		// Проверяем и извлекаем user_type
		userType, ok := claims["user_type"].(string)
		if !ok {
			abortUnauthenticated(c, "invalid token: missing user_type")
			return
		}

		c.Set(FirebaseUIDKey, firebaseUID)
		c.Set(UserTypeKey, userType)
		c.Next()
	}
}

// ParentOnly пропускает только токены родителей
func ParentOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserTypeKey) != UserTypeParent {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "parent account required", "kind": apperrors.KindAuthorization})
			return
		}
		c.Next()
	}
}
