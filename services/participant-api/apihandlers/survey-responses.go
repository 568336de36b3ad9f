package apihandlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/cohort-framework/cohort-backend/pkg/apihelpers/middlewares"
	jwthandling "github.com/cohort-framework/cohort-backend/pkg/jwt-handling"
	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (h *HttpEndpoints) AddSurveyResponsesAPI(rg *gin.RouterGroup) {
	responsesGroup := rg.Group("/studies/:studyKey/survey-responses")
	responsesGroup.Use(h.rateLimiter.Middleware())
	responsesGroup.Use(mw.GetAndValidateParticipantUserJWT(h.tokenSignKey))
	{
		responsesGroup.GET("/:responseID", h.getSurveyResponse)
		responsesGroup.PUT("/:responseID/answers", mw.RequirePayload(), h.saveSurveyResponseAnswers)
	}
}

func (h *HttpEndpoints) getSurveyResponse(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)

	studyKey := c.Param("studyKey")
	responseID := c.Param("responseID")

	if !h.isInstanceAllowed(token.InstanceID) {
		slog.Warn("instanceID not allowed", slog.String("instanceID", token.InstanceID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "instanceID not allowed"})
		return
	}

	response, err := h.scheduledActivities.GetSurveyResponse(token.InstanceID, studyKey, token.HealthCode, responseID)
	if err != nil {
		var badInput studyTypes.BadInputError
		if errors.As(err, &badInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": badInput.Msg})
			return
		}
		if errors.Is(err, studyTypes.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "survey response not found"})
			return
		}
		slog.Error("error getting survey response", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error getting survey response"})
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *HttpEndpoints) saveSurveyResponseAnswers(c *gin.Context) {
	token := c.MustGet("validatedToken").(*jwthandling.ParticipantUserClaims)

	studyKey := c.Param("studyKey")
	responseID := c.Param("responseID")

	if !h.isInstanceAllowed(token.InstanceID) {
		slog.Warn("instanceID not allowed", slog.String("instanceID", token.InstanceID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "instanceID not allowed"})
		return
	}

	var req struct {
		Answers []studyTypes.SurveyItemResponse `json:"answers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.scheduledActivities.SaveSurveyResponseAnswers(token.InstanceID, studyKey, token.HealthCode, responseID, req.Answers)
	if err != nil {
		var badInput studyTypes.BadInputError
		if errors.As(err, &badInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": badInput.Msg})
			return
		}
		if errors.Is(err, studyTypes.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "survey response not found"})
			return
		}
		slog.Error("error saving survey response answers", slog.String("instanceID", token.InstanceID), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error saving survey response answers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "answers saved"})
}
