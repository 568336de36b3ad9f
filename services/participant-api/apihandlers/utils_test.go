package apihandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testContextWithHeaders(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	for key, value := range headers {
		c.Request.Header.Set(key, value)
	}
	return c
}

func TestParseClientInfo(t *testing.T) {
	t.Run("for explicit headers", func(t *testing.T) {
		c := testContextWithHeaders(map[string]string{
			"X-App-Name":    "CohortApp",
			"X-App-Version": "7",
			"X-OS-Name":     "iPhone OS",
			"X-OS-Version":  "17.2",
		})
		clientInfo := parseClientInfo(c)
		if clientInfo.AppName != "CohortApp" || clientInfo.AppVersion != 7 {
			t.Errorf("unexpected app info: %+v", clientInfo)
		}
		if clientInfo.OsName != "iPhone OS" || clientInfo.OsVersion != "17.2" {
			t.Errorf("unexpected OS info: %+v", clientInfo)
		}
	})

	t.Run("headers win over the user agent", func(t *testing.T) {
		c := testContextWithHeaders(map[string]string{
			"X-App-Name":    "CohortApp",
			"X-App-Version": "7",
			"User-Agent":    "OtherApp/3 (Android/14)",
		})
		clientInfo := parseClientInfo(c)
		if clientInfo.AppName != "CohortApp" || clientInfo.AppVersion != 7 {
			t.Errorf("unexpected app info: %+v", clientInfo)
		}
	})

	t.Run("for a full user agent", func(t *testing.T) {
		c := testContextWithHeaders(map[string]string{
			"User-Agent": "CohortApp/3 (iPhone OS/9.0.2)",
		})
		clientInfo := parseClientInfo(c)
		if clientInfo.AppName != "CohortApp" || clientInfo.AppVersion != 3 {
			t.Errorf("unexpected app info: %+v", clientInfo)
		}
		if clientInfo.OsName != "iPhone OS" || clientInfo.OsVersion != "9.0.2" {
			t.Errorf("unexpected OS info: %+v", clientInfo)
		}
	})

	t.Run("for a user agent without OS part", func(t *testing.T) {
		c := testContextWithHeaders(map[string]string{
			"User-Agent": "CohortApp/3",
		})
		clientInfo := parseClientInfo(c)
		if clientInfo.AppName != "CohortApp" || clientInfo.AppVersion != 3 {
			t.Errorf("unexpected app info: %+v", clientInfo)
		}
		if clientInfo.OsName != "" {
			t.Errorf("unexpected OS name: %s", clientInfo.OsName)
		}
	})

	t.Run("for an unparseable user agent", func(t *testing.T) {
		c := testContextWithHeaders(map[string]string{
			"User-Agent": "Mozilla (compatible)",
		})
		clientInfo := parseClientInfo(c)
		if clientInfo.AppName != "" || clientInfo.AppVersion != 0 {
			t.Errorf("unexpected client info: %+v", clientInfo)
		}
	})
}

func testContextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestParseScheduleWindowEnd(t *testing.T) {
	now := int64(1700000000)

	t.Run("for an explicit until", func(t *testing.T) {
		endsOn, err := parseScheduleWindowEnd(testContextWithQuery("until=1700086400"), now, 4)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if endsOn != 1700086400 {
			t.Errorf("unexpected endsOn: %d", endsOn)
		}
	})

	t.Run("for a daysAhead override", func(t *testing.T) {
		endsOn, err := parseScheduleWindowEnd(testContextWithQuery("daysAhead=2"), now, 4)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if endsOn != now+2*24*60*60 {
			t.Errorf("unexpected endsOn: %d", endsOn)
		}
	})

	t.Run("without parameters the default lookahead applies", func(t *testing.T) {
		endsOn, err := parseScheduleWindowEnd(testContextWithQuery(""), now, 4)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if endsOn != now+4*24*60*60 {
			t.Errorf("unexpected endsOn: %d", endsOn)
		}
	})

	t.Run("for an unparseable until", func(t *testing.T) {
		if _, err := parseScheduleWindowEnd(testContextWithQuery("until=tomorrow"), now, 4); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("for an unparseable daysAhead", func(t *testing.T) {
		if _, err := parseScheduleWindowEnd(testContextWithQuery("daysAhead=soon"), now, 4); err == nil {
			t.Error("expected error")
		}
	})
}
