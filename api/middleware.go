package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-expense-ledger/domain"
)

const (
	ctxPrincipal = "principal"
	ctxRequestID = "request_id"

	headerRequestID = "X-Request-Id"
)

// RequestLogger tags every request with an id, echoed in X-Request-Id, and
// logs it once it completes.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(headerRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Writer.Header().Set(headerRequestID, rid)

		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("request_id", rid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Authenticate resolves the bearer token to the principal of a user that
// already signed in. Requests without one are rejected with 401.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			h.fail(c, domain.ErrUnauthenticated)
			return
		}

		p, err := h.auth.Resolve(c.Request.Context(), token)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func principal(c *gin.Context) domain.Principal {
	p, _ := c.Get(ctxPrincipal)
	pr, _ := p.(domain.Principal)
	return pr
}
