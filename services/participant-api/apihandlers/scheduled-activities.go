package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/cohort-framework/cohort-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/cohort-framework/cohort-backend/pkg/jwt-handling"
	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (h *HttpEndpoints) AddScheduledActivitiesAPI(rg *gin.RouterGroup) {
	activitiesGroup := rg.Group("/studies/:studyKey/scheduled-activities")
	activitiesGroup.Use(h.rateLimiter.Middleware())
	activitiesGroup.Use(mw.GetAndValidateParticipantUserJWT(h.tokenSignKey))
	{
		activitiesGroup.GET("", h.getScheduledActivities)    // ?until=<unix ts> | ?daysAhead=<n>
		activitiesGroup.POST("", mw.RequirePayload(), h.updateScheduledActivities)
	}
}

func (h *HttpEndpoints) getScheduledActivities(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)

	studyKey := c.Param("studyKey")

	if !h.isInstanceAllowed(token.InstanceID) {
		slog.Warn("instanceID not allowed", slog.String("instanceID", token.InstanceID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "instanceID not allowed"})
		return
	}

	now := time.Now().Unix()
	endsOn, err := parseScheduleWindowEnd(c, now, h.defaultLookaheadDays)
	if err != nil {
		slog.Warn("invalid schedule window", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduleContext := studyTypes.ScheduleContext{
		InstanceID: token.InstanceID,
		StudyKey:   studyKey,
		HealthCode: token.HealthCode,
		ClientInfo: parseClientInfo(c),
		DataGroups: token.DataGroups,
		Now:        now,
		EndsOn:     endsOn,
	}

	activities, err := h.scheduledActivities.GetScheduledActivities(scheduleContext)
	if err != nil {
		var badInput studyTypes.BadInputError
		if errors.As(err, &badInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": badInput.Msg})
			return
		}
		slog.Error("error getting scheduled activities", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error getting scheduled activities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": activities})
}

func (h *HttpEndpoints) updateScheduledActivities(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)

	studyKey := c.Param("studyKey")

	if !h.isInstanceAllowed(token.InstanceID) {
		slog.Warn("instanceID not allowed", slog.String("instanceID", token.InstanceID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "instanceID not allowed"})
		return
	}

	var req struct {
		Items []*studyTypes.ScheduledActivity `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.scheduledActivities.UpdateScheduledActivities(token.InstanceID, studyKey, token.HealthCode, req.Items)
	if err != nil {
		var badInput studyTypes.BadInputError
		if errors.As(err, &badInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": badInput.Msg})
			return
		}
		if errors.Is(err, studyTypes.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scheduled activity not found"})
			return
		}
		slog.Error("error updating scheduled activities", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error updating scheduled activities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "activities updated"})
}

func parseScheduleWindowEnd(c *gin.Context, now int64, defaultLookaheadDays int) (int64, error) {
	untilStr := c.DefaultQuery("until", "")
	if untilStr != "" {
		until, err := strconv.ParseInt(untilStr, 10, 64)
		if err != nil {
			return 0, studyTypes.BadInputf("invalid until parameter '%s'", untilStr)
		}
		return until, nil
	}

	daysAhead := defaultLookaheadDays
	daysAheadStr := c.DefaultQuery("daysAhead", "")
	if daysAheadStr != "" {
		parsed, err := strconv.Atoi(daysAheadStr)
		if err != nil {
			return 0, studyTypes.BadInputf("invalid daysAhead parameter '%s'", daysAheadStr)
		}
		daysAhead = parsed
	}
	return now + int64(daysAhead)*24*60*60, nil
}
