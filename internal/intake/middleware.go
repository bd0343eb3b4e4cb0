package intake

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/crawlsched/internal/apperr"
	"github.com/jonesrussell/crawlsched/internal/logger"
)

const requestIDByteLen = 16

// recoveryMiddleware catches panics, logs them, and renders a 500 error
// envelope instead of crashing the process.
func recoveryMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", "error", r, "path", c.Request.URL.Path)
				renderError(c, apperr.Internal("internal server error", nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// requestIDMiddleware stamps every request with an X-Request-ID, generating
// one if the caller didn't supply it.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = generateRequestID()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// loggerMiddleware logs one line per request with method, path, status, and
// duration.
func loggerMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		scoped := log.WithRequestID(c.GetString("request_id")).WithDuration(time.Since(start))
		scoped.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// errorEnvelopeMiddleware renders the last handler-attached error (via
// c.Error) as the standard error envelope, if no response has been
// written yet.
func errorEnvelopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		renderError(c, c.Errors.Last().Err)
	}
}

// renderError writes err as the standard error envelope: {detail:{message,code,errors?}}.
func renderError(c *gin.Context, err error) {
	appErr, ok := apperr.AsError(err)
	if !ok {
		appErr = apperr.Internal("internal server error", err)
	}

	detail := gin.H{"message": appErr.Message, "code": appErr.Code()}
	if len(appErr.Errors) > 0 {
		detail["errors"] = appErr.Errors
	}
	c.JSON(appErr.HTTPStatus(), gin.H{"detail": detail})
}

func generateRequestID() string {
	b := make([]byte, requestIDByteLen)
	if _, err := rand.Read(b); err != nil {
		now := time.Now().UnixNano()
		for i := requestIDByteLen - 1; i >= 0; i-- {
			b[i] = byte(now)
			now >>= 8
		}
	}
	return hex.EncodeToString(b)
}
