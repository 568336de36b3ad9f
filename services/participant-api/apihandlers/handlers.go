package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/cohort-framework/cohort-backend/pkg/apihelpers/middlewares"
	"github.com/cohort-framework/cohort-backend/pkg/study"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	scheduledActivities  *study.ScheduledActivityService
	tokenSignKey         string
	allowedInstanceIDs   []string
	rateLimiter          *mw.RateLimiter
	defaultLookaheadDays int
}

func NewHTTPHandler(
	tokenSignKey string,
	scheduledActivities *study.ScheduledActivityService,
	allowedInstanceIDs []string,
	rateLimiter *mw.RateLimiter,
	defaultLookaheadDays int,
) *HttpEndpoints {
	return &HttpEndpoints{
		scheduledActivities:  scheduledActivities,
		tokenSignKey:         tokenSignKey,
		allowedInstanceIDs:   allowedInstanceIDs,
		rateLimiter:          rateLimiter,
		defaultLookaheadDays: defaultLookaheadDays,
	}
}
