package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdmydbr9/EVMR-sub001/internal/handler"
)

// HeaderIngestToken carries the shared secret presented by the upstream
// signup collaborator.
const HeaderIngestToken = "X-Ingest-Token"

type IngestAuthMiddleware struct {
	token string
}

func NewIngestAuthMiddleware(token string) *IngestAuthMiddleware {
	return &IngestAuthMiddleware{token: token}
}

// RequireSharedSecret gates the ingestion endpoint. The comparison is
// constant-time so the secret cannot be probed byte by byte.
func (m *IngestAuthMiddleware) RequireSharedSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader(HeaderIngestToken)
		if m.token == "" || supplied == "" ||
			subtle.ConstantTimeCompare([]byte(supplied), []byte(m.token)) != 1 {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid ingest token"))
			c.Abort()
			return
		}
		c.Next()
	}
}
