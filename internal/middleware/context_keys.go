package middleware

import "github.com/gin-gonic/gin"

// RequestIDHeader carries the per-request correlation id in and out of the API.
const RequestIDHeader = "X-Request-ID"

// IdempotencyKeyHeader lets clients supply a transfer idempotency key outside the body.
const IdempotencyKeyHeader = "Idempotency-Key"

const idempotencyKey = contextKey("idempotencyKey")

// CaptureIdempotencyKey copies the Idempotency-Key header, when present, into the
// Gin context so handlers can fall back to it.
func CaptureIdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(IdempotencyKeyHeader); key != "" {
			c.Set(string(idempotencyKey), key)
		}
		c.Next()
	}
}

// GetIdempotencyKeyFromContext returns the header-supplied idempotency key, if any.
func GetIdempotencyKeyFromContext(c *gin.Context) (string, bool) {
	val, exists := c.Get(string(idempotencyKey))
	if !exists {
		return "", false
	}
	key, ok := val.(string)
	return key, ok && key != ""
}
