package apihandlers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (h *HttpEndpoints) isInstanceAllowed(instanceID string) bool {
	for _, id := range h.allowedInstanceIDs {
		if id == instanceID {
			return true
		}
	}
	return false
}

// User-Agent of the study apps: "AppName/3 (OsName/9.0.2)"
var userAgentPattern = regexp.MustCompile(`^([^/()]+)/(\d+)(?: \(([^/)]+)/([^)]+)\))?`)

// parseClientInfo extracts app and OS info from the request. Explicit headers
// win over the User-Agent, older app releases only send the latter. A request
// without either yields an empty ClientInfo, schema selection then ignores
// app version bounds it cannot check.
func parseClientInfo(c *gin.Context) studyTypes.ClientInfo {
	clientInfo := studyTypes.ClientInfo{
		AppName:   c.GetHeader("X-App-Name"),
		OsName:    c.GetHeader("X-OS-Name"),
		OsVersion: c.GetHeader("X-OS-Version"),
	}
	if appVersion := c.GetHeader("X-App-Version"); appVersion != "" {
		if parsed, err := strconv.Atoi(appVersion); err == nil {
			clientInfo.AppVersion = parsed
		}
	}

	if clientInfo.AppName != "" {
		return clientInfo
	}

	matches := userAgentPattern.FindStringSubmatch(c.GetHeader("User-Agent"))
	if matches == nil {
		return clientInfo
	}
	clientInfo.AppName = strings.TrimSpace(matches[1])
	if parsed, err := strconv.Atoi(matches[2]); err == nil {
		clientInfo.AppVersion = parsed
	}
	clientInfo.OsName = strings.TrimSpace(matches[3])
	clientInfo.OsVersion = strings.TrimSpace(matches[4])
	return clientInfo
}
