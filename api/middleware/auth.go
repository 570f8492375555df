// Package middleware holds the gin middleware guarding the run API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dashcheck/models"
)

// CallerKey is the gin context key under which Auth stores the caller's API key.
const CallerKey = "api_key"

func errorBody(code, msg string) models.ErrorResponse {
	return models.ErrorResponse{Error: &models.ErrorDetail{Code: code, Message: msg}}
}

// Auth checks the caller's API key, read from X-API-Key or
// "Authorization: Bearer <key>". With no keys configured every request
// passes.
func Auth(apiKeys []string) gin.HandlerFunc {
	var keys [][]byte
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := callerKey(c.Request)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errorBody(models.ErrCodeUnauthorized, "missing API key: send X-API-Key or Authorization: Bearer <key>"))
			return
		}
		if !knownKey(keys, key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(models.ErrCodeUnauthorized, "invalid API key"))
			return
		}
		c.Set(CallerKey, key)
		c.Next()
	}
}

func knownKey(keys [][]byte, key string) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return found == 1
}

func callerKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(key)
}
