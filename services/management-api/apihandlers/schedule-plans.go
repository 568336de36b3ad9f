package apihandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	mw "github.com/cohort-framework/cohort-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/cohort-framework/cohort-backend/pkg/jwt-handling"
	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (h *HttpEndpoints) AddSchedulePlansAPI(rg *gin.RouterGroup) {
	plansGroup := rg.Group("/studies/:studyKey/schedule-plans")
	plansGroup.Use(mw.ManagementAuthMiddleware(h.tokenSignKey, h.allowedInstanceIDs))
	{
		plansGroup.GET("", h.getAllSchedulePlans)
		plansGroup.POST("", mw.RequirePayload(), h.createSchedulePlan)
		plansGroup.GET("/:planGuid", h.getSchedulePlan)
		plansGroup.PUT("/:planGuid", mw.RequirePayload(), h.updateSchedulePlan)
		plansGroup.DELETE("/:planGuid", mw.IsAdminUser(), h.deleteSchedulePlan) // ?deleteActivities=true
	}
}

func (h *HttpEndpoints) getAllSchedulePlans(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	plans, err := h.schedulePlans.GetSchedulePlans(token.InstanceID, studyKey)
	if err != nil {
		slog.Error("error getting schedule plans", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error getting schedule plans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedulePlans": plans})
}

func (h *HttpEndpoints) getSchedulePlan(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	planGuid := c.Param("planGuid")

	plan, err := h.schedulePlans.GetSchedulePlan(token.InstanceID, studyKey, planGuid)
	if err != nil {
		slog.Error("error getting schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("planGuid", planGuid), slog.String("error", err.Error()))
		writeServiceError(c, err, "error getting schedule plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedulePlan": plan})
}

func (h *HttpEndpoints) createSchedulePlan(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	var plan studyTypes.SchedulePlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slog.Info("creating schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("userID", token.Subject))

	created, err := h.schedulePlans.CreateSchedulePlan(token.InstanceID, studyKey, plan)
	if err != nil {
		slog.Error("error creating schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error creating schedule plan")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedulePlan": created})
}

func (h *HttpEndpoints) updateSchedulePlan(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	planGuid := c.Param("planGuid")

	var plan studyTypes.SchedulePlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan.Guid = planGuid

	slog.Info("updating schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("planGuid", planGuid), slog.String("userID", token.Subject))

	updated, err := h.schedulePlans.UpdateSchedulePlan(token.InstanceID, studyKey, plan)
	if err != nil {
		slog.Error("error updating schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("planGuid", planGuid), slog.String("error", err.Error()))
		writeServiceError(c, err, "error updating schedule plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedulePlan": updated})
}

func (h *HttpEndpoints) deleteSchedulePlan(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	planGuid := c.Param("planGuid")

	slog.Info("deleting schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("planGuid", planGuid), slog.String("userID", token.Subject))

	if err := h.schedulePlans.DeleteSchedulePlan(token.InstanceID, studyKey, planGuid); err != nil {
		slog.Error("error deleting schedule plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("planGuid", planGuid), slog.String("error", err.Error()))
		writeServiceError(c, err, "error deleting schedule plan")
		return
	}

	deleteActivities, _ := strconv.ParseBool(c.DefaultQuery("deleteActivities", "false"))
	if deleteActivities {
		if err := h.scheduledActivities.DeleteActivitiesForSchedulePlan(token.InstanceID, studyKey, planGuid); err != nil {
			slog.Error("error deleting scheduled activities for plan", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("planGuid", planGuid), slog.String("error", err.Error()))
			writeServiceError(c, err, "plan deleted but error deleting its scheduled activities")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"msg": "schedule plan deleted"})
}
