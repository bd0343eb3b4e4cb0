package intake

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jonesrussell/crawlsched/internal/apperr"
)

// scheduleURLsRequest wraps the body of POST /api/v1/crawler/schedule-urls,
// a bare JSON array of URL strings, so the binding tags can validate it.
type scheduleURLsRequest struct {
	URLs []string `json:"urls" binding:"required,dive,urlstring"`
}

func scheduleURLsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var urls []string
		if err := c.ShouldBindJSON(&urls); err != nil {
			renderError(c, apperr.Validation("invalid request body", err.Error()))
			return
		}
		req := scheduleURLsRequest{URLs: urls}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			renderError(c, apperr.Validation("invalid request body", err.Error()))
			return
		}

		if errs := svc.ScheduleURLs(c.Request.Context(), req.URLs); len(errs) > 0 {
			messages := make([]string, 0, len(errs))
			for _, e := range errs {
				messages = append(messages, e.Error())
			}
			failure := apperr.Internal("failed to schedule one or more urls", nil)
			failure.Errors = messages
			renderError(c, failure)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": req.URLs, "message": "scheduled", "status": "ok"})
	}
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func readyHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ping(c.Request.Context()); err != nil {
			renderError(c, apperr.ServiceUnavailable("database unreachable"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
