package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cohort-framework/cohort-backend/pkg/study"

	studyDB "github.com/cohort-framework/cohort-backend/pkg/db/study"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	studyDBConn         *studyDB.StudyDBService
	schedulePlans       *study.SchedulePlanService
	compoundActivities  *study.CompoundActivityDefinitionService
	scheduledActivities *study.ScheduledActivityService
	tokenSignKey        string
	allowedInstanceIDs  []string
}

func NewHTTPHandler(
	tokenSignKey string,
	studyDBConn *studyDB.StudyDBService,
	schedulePlans *study.SchedulePlanService,
	compoundActivities *study.CompoundActivityDefinitionService,
	scheduledActivities *study.ScheduledActivityService,
	allowedInstanceIDs []string,
) *HttpEndpoints {
	return &HttpEndpoints{
		studyDBConn:         studyDBConn,
		schedulePlans:       schedulePlans,
		compoundActivities:  compoundActivities,
		scheduledActivities: scheduledActivities,
		tokenSignKey:        tokenSignKey,
		allowedInstanceIDs:  allowedInstanceIDs,
	}
}
