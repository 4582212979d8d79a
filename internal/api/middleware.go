package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	apierrors "github.com/tradsys/clob/internal/common/errors"
)

// apiStatus maps a wrapped CLOBError to its HTTP status.
func apiStatus(err *apierrors.CLOBError) int {
	return apierrors.HTTPStatus(err.Code)
}

// claims is the expected JWT payload: a "sub" claim holding the caller's
// identity as a hex address, matching how market makers authenticate
// against their registered Authority.
type claims struct {
	jwt.RegisteredClaims
}

// AuthMiddleware validates a bearer JWT signed with secret and stores the
// resolved host.Identity in the gin context under "identity", for handlers
// to read via callerIdentity.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cl, ok := token.Claims.(*claims)
		if !ok || cl.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		c.Set("identity", common.HexToAddress(cl.Subject))
		c.Next()
	}
}

// RateLimitMiddleware throttles each caller IP to requestsPerMinute requests
// per rolling minute using an in-memory store, rejecting over-limit requests
// with 429 before they ever reach a book's mutator. One process-wide limiter
// instance is shared across all routes it is attached to.
func RateLimitMiddleware(requestsPerMinute int64, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  requestsPerMinute,
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		ctx, err := instance.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Error("rate limiter lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}
