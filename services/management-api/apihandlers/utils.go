package apihandlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

// writeServiceError maps service layer errors onto HTTP status codes.
func writeServiceError(c *gin.Context, err error, fallbackMsg string) {
	var badInput studyTypes.BadInputError
	if errors.As(err, &badInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": badInput.Msg})
		return
	}
	if errors.Is(err, studyTypes.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
}
