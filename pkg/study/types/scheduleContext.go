package types

// ClientInfo describes the requesting app, parsed from the User-Agent header
// by the API layer. Used to select upload schema revisions compatible with
// the caller.
type ClientInfo struct {
	AppName    string `json:"appName,omitempty"`
	AppVersion int    `json:"appVersion,omitempty"`
	OsName     string `json:"osName,omitempty"`
	OsVersion  string `json:"osVersion,omitempty"`
}

// ScheduleContext carries everything one scheduling pass needs: who is
// asking, for which study, until when, and the participant's event timeline.
// Events maps event ids to unix second timestamps.
type ScheduleContext struct {
	InstanceID string
	StudyKey   string
	HealthCode string
	ClientInfo ClientInfo
	DataGroups []string
	Now        int64
	EndsOn     int64
	Events     map[string]int64
}
