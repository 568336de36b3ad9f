package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/cohort-framework/cohort-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/cohort-framework/cohort-backend/pkg/jwt-handling"
	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (h *HttpEndpoints) AddCompoundActivityDefinitionsAPI(rg *gin.RouterGroup) {
	defsGroup := rg.Group("/studies/:studyKey/compound-activity-definitions")
	defsGroup.Use(mw.ManagementAuthMiddleware(h.tokenSignKey, h.allowedInstanceIDs))
	{
		defsGroup.GET("", h.getAllCompoundActivityDefinitions)
		defsGroup.POST("", mw.RequirePayload(), h.createCompoundActivityDefinition)
		defsGroup.GET("/:taskID", h.getCompoundActivityDefinition)
		defsGroup.PUT("/:taskID", mw.RequirePayload(), h.updateCompoundActivityDefinition)
		defsGroup.DELETE("/:taskID", mw.IsAdminUser(), h.deleteCompoundActivityDefinition)
	}
}

func (h *HttpEndpoints) getAllCompoundActivityDefinitions(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	defs, err := h.compoundActivities.GetAllCompoundActivityDefinitions(token.InstanceID, studyKey)
	if err != nil {
		slog.Error("error getting compound activity definitions", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error getting compound activity definitions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"compoundActivityDefinitions": defs})
}

func (h *HttpEndpoints) getCompoundActivityDefinition(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	taskID := c.Param("taskID")

	def, err := h.compoundActivities.GetCompoundActivityDefinition(token.InstanceID, studyKey, taskID)
	if err != nil {
		slog.Error("error getting compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("taskID", taskID), slog.String("error", err.Error()))
		writeServiceError(c, err, "error getting compound activity definition")
		return
	}
	c.JSON(http.StatusOK, gin.H{"compoundActivityDefinition": def})
}

func (h *HttpEndpoints) createCompoundActivityDefinition(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	var def studyTypes.CompoundActivityDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slog.Info("creating compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("taskID", def.TaskID), slog.String("userID", token.Subject))

	created, err := h.compoundActivities.CreateCompoundActivityDefinition(token.InstanceID, studyKey, def)
	if err != nil {
		slog.Error("error creating compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error creating compound activity definition")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"compoundActivityDefinition": created})
}

func (h *HttpEndpoints) updateCompoundActivityDefinition(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	taskID := c.Param("taskID")

	var def studyTypes.CompoundActivityDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slog.Info("updating compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("taskID", taskID), slog.String("userID", token.Subject))

	updated, err := h.compoundActivities.UpdateCompoundActivityDefinition(token.InstanceID, studyKey, taskID, def)
	if err != nil {
		slog.Error("error updating compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("taskID", taskID), slog.String("error", err.Error()))
		writeServiceError(c, err, "error updating compound activity definition")
		return
	}
	c.JSON(http.StatusOK, gin.H{"compoundActivityDefinition": updated})
}

func (h *HttpEndpoints) deleteCompoundActivityDefinition(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	taskID := c.Param("taskID")

	slog.Info("deleting compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("taskID", taskID), slog.String("userID", token.Subject))

	if err := h.compoundActivities.DeleteCompoundActivityDefinition(token.InstanceID, studyKey, taskID); err != nil {
		slog.Error("error deleting compound activity definition", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("taskID", taskID), slog.String("error", err.Error()))
		writeServiceError(c, err, "error deleting compound activity definition")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "compound activity definition deleted"})
}
