package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/terraloan/backend/internal/interfaces/http/dto"
)

// ErrCodeRequestTooLarge is returned when a request body exceeds the configured limit.
const ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"

// BodyLimit rejects requests whose body exceeds maxBytes. Requests without a
// Content-Length header (chunked uploads) are still capped via MaxBytesReader.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(ErrCodeRequestTooLarge,
					"Request body exceeds maximum allowed size", requestIDFrom(c)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
