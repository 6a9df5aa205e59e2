package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// uploadRateLimit throttles upload endpoints per client IP. Fails open when
// redis is unreachable; losing rate limiting briefly beats dropping uploads.
func (s *Server) uploadRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		allowed, err := s.limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
