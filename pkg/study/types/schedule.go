package types

// schedule types
const (
	SCHEDULE_TYPE_ONCE     = "once"
	SCHEDULE_TYPE_INTERVAL = "interval"
	SCHEDULE_TYPE_CRON     = "cron"
)

// the event every schedule falls back to when no event id is given
const ACTIVITY_EVENT_ENROLLMENT = "enrollment"

// Schedule describes when the activities of a plan fire for a participant.
// Durations (delay, interval, expires) are Go duration strings ("24h", "30m").
// EventID may list comma separated alternatives; the first one present in the
// participant's event timeline wins, defaulting to the enrollment event.
type Schedule struct {
	ScheduleType string     `bson:"scheduleType" json:"scheduleType"`
	EventID      string     `bson:"eventID,omitempty" json:"eventID,omitempty"`
	Delay        string     `bson:"delay,omitempty" json:"delay,omitempty"`
	Interval     string     `bson:"interval,omitempty" json:"interval,omitempty"`
	CronTrigger  string     `bson:"cronTrigger,omitempty" json:"cronTrigger,omitempty"`
	Expires      string     `bson:"expires,omitempty" json:"expires,omitempty"`
	StartsOn     int64      `bson:"startsOn,omitempty" json:"startsOn,omitempty"`
	EndsOn       int64      `bson:"endsOn,omitempty" json:"endsOn,omitempty"`
	Activities   []Activity `bson:"activities" json:"activities"`
}
