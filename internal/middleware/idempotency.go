package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/quizdesk-portal/internal/response"
)

const (
	// HeaderIdempotencyKey carries the client-generated key for retry-safe POSTs.
	HeaderIdempotencyKey = "Idempotency-Key"
	// ContextKeyIdempotency is the Gin context key for the normalized key.
	ContextKeyIdempotency = "idempotency_key"
)

// RequireIdempotencyKey rejects requests without a UUID Idempotency-Key header.
func RequireIdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := uuid.Parse(c.GetHeader(HeaderIdempotencyKey))
		if err != nil {
			response.AbortFail(c, http.StatusBadRequest, response.ErrIdempotencyKeyRequired)
			return
		}
		c.Set(ContextKeyIdempotency, key.String())
		c.Next()
	}
}

// GetIdempotencyKey returns the key set by RequireIdempotencyKey.
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(ContextKeyIdempotency)
}
