package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nipunrajk/accessiblity-sub002/models"
)

// Auth returns API-key authentication middleware for the protected routes.
//
// Keys arrive either as X-API-Key or as an Authorization bearer token.
// With no keys configured the middleware passes everything through, which
// keeps local development friction-free.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		presented := apiKeyFrom(c)
		if presented == "" {
			abortUnauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}
		if !keyMatches(keys, presented) {
			abortUnauthorized(c, "invalid API key")
			return
		}

		// Expose the key as the caller identity for the rate limiter.
		c.Set("api_key", presented)
		c.Next()
	}
}

// keyMatches compares the presented key against every configured key in
// constant time.
func keyMatches(keys []string, presented string) bool {
	ok := false
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(presented)) == 1 {
			ok = true
		}
	}
	return ok
}

// apiKeyFrom reads X-API-Key first and falls back to a bearer token.
func apiKeyFrom(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ScanResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
