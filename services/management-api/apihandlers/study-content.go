package apihandlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mw "github.com/cohort-framework/cohort-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/cohort-framework/cohort-backend/pkg/jwt-handling"
	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

// Study content endpoints manage the entities scheduled activities refer to:
// survey versions, upload schema revisions and study level constraints.
func (h *HttpEndpoints) AddStudyContentAPI(rg *gin.RouterGroup) {
	contentGroup := rg.Group("/studies/:studyKey")
	contentGroup.Use(mw.ManagementAuthMiddleware(h.tokenSignKey, h.allowedInstanceIDs))
	{
		contentGroup.POST("/surveys", mw.RequirePayload(), h.publishSurveyVersion)
		contentGroup.GET("/surveys/:surveyGuid/versions", h.getSurveyVersions)
		contentGroup.POST("/surveys/:surveyGuid/unpublish", h.unpublishSurvey)

		contentGroup.POST("/upload-schemas", mw.RequirePayload(), h.createSchemaRevision)
		contentGroup.GET("/upload-schemas/:schemaID/revisions", h.getSchemaRevisions)

		contentGroup.PUT("/study-info", mw.RequirePayload(), h.saveStudyInfo)

		contentGroup.POST("/participants/:healthCode/consent-signatures", mw.RequirePayload(), h.importConsentSignature)
		contentGroup.DELETE("/participants/:healthCode/data", mw.IsAdminUser(), h.deleteParticipantData)
	}
}

func (h *HttpEndpoints) publishSurveyVersion(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	var survey studyTypes.Survey
	if err := c.ShouldBindJSON(&survey); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if survey.Identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier is required"})
		return
	}
	// First version of a survey gets a fresh guid, later versions reuse it.
	if survey.Guid == "" {
		survey.Guid = uuid.NewString()
	}
	survey.Published = time.Now().Unix()
	survey.Unpublished = 0

	slog.Info("publishing survey version", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("surveyGuid", survey.Guid), slog.String("userID", token.Subject))

	if err := h.studyDBConn.SaveSurveyVersion(token.InstanceID, studyKey, &survey); err != nil {
		slog.Error("error publishing survey version", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error publishing survey version")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"survey": survey})
}

func (h *HttpEndpoints) getSurveyVersions(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	surveyGuid := c.Param("surveyGuid")

	versions, err := h.studyDBConn.GetSurveyVersions(token.InstanceID, studyKey, surveyGuid)
	if err != nil {
		slog.Error("error getting survey versions", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("surveyGuid", surveyGuid), slog.String("error", err.Error()))
		writeServiceError(c, err, "error getting survey versions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *HttpEndpoints) unpublishSurvey(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	surveyGuid := c.Param("surveyGuid")

	slog.Info("unpublishing survey", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("surveyGuid", surveyGuid), slog.String("userID", token.Subject))

	if err := h.studyDBConn.UnpublishSurvey(token.InstanceID, studyKey, surveyGuid); err != nil {
		slog.Error("error unpublishing survey", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("surveyGuid", surveyGuid), slog.String("error", err.Error()))
		writeServiceError(c, err, "error unpublishing survey")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "survey unpublished"})
}

func (h *HttpEndpoints) createSchemaRevision(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	var schema studyTypes.UploadSchema
	if err := c.ShouldBindJSON(&schema); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if schema.SchemaID == "" || schema.Revision < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schemaID and a positive revision are required"})
		return
	}

	slog.Info("creating schema revision", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("schemaID", schema.SchemaID), slog.Int("revision", schema.Revision), slog.String("userID", token.Subject))

	if err := h.studyDBConn.SaveUploadSchema(token.InstanceID, studyKey, &schema); err != nil {
		slog.Error("error creating schema revision", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error creating schema revision")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"uploadSchema": schema})
}

func (h *HttpEndpoints) getSchemaRevisions(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	schemaID := c.Param("schemaID")

	revisions, err := h.studyDBConn.GetSchemaRevisions(token.InstanceID, studyKey, schemaID)
	if err != nil {
		slog.Error("error getting schema revisions", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("schemaID", schemaID), slog.String("error", err.Error()))
		writeServiceError(c, err, "error getting schema revisions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revisions})
}

func (h *HttpEndpoints) saveStudyInfo(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")

	var info studyTypes.StudyInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info.StudyKey = studyKey

	slog.Info("saving study info", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("userID", token.Subject))

	if err := h.studyDBConn.SaveStudyInfo(token.InstanceID, &info); err != nil {
		slog.Error("error saving study info", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error saving study info")
		return
	}
	c.JSON(http.StatusOK, gin.H{"studyInfo": info})
}

// importConsentSignature backfills consent records migrated from older
// systems, the enrollment fallback of schedule evaluation reads them.
func (h *HttpEndpoints) importConsentSignature(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	healthCode := c.Param("healthCode")

	var signature studyTypes.ConsentSignature
	if err := c.ShouldBindJSON(&signature); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	signature.HealthCode = healthCode
	if signature.SignedOn == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signedOn is required"})
		return
	}

	slog.Info("importing consent signature", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("userID", token.Subject))

	if err := h.studyDBConn.SaveConsentSignature(token.InstanceID, studyKey, &signature); err != nil {
		slog.Error("error importing consent signature", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error importing consent signature")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"consentSignature": signature})
}

// deleteParticipantData removes all schedule related records of one
// participant in the study.
func (h *HttpEndpoints) deleteParticipantData(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ManagementUserClaims)

	studyKey := c.Param("studyKey")
	healthCode := c.Param("healthCode")

	slog.Info("deleting participant data", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("userID", token.Subject))

	if err := h.scheduledActivities.DeleteActivitiesForUser(token.InstanceID, studyKey, healthCode); err != nil {
		slog.Error("error deleting scheduled activities", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error deleting participant data")
		return
	}
	if err := h.studyDBConn.DeleteSurveyResponsesForUser(token.InstanceID, studyKey, healthCode); err != nil {
		slog.Error("error deleting survey responses", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error deleting participant data")
		return
	}
	if err := h.studyDBConn.DeleteActivityEventsForUser(token.InstanceID, studyKey, healthCode); err != nil {
		slog.Error("error deleting activity events", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		writeServiceError(c, err, "error deleting participant data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "participant data deleted"})
}
