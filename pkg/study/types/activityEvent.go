package types

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityEvent is one named milestone in a participant's event timeline.
// The timeline drives schedule evaluation: schedules fire relative to these
// timestamps. Timestamp is unix seconds.
type ActivityEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	HealthCode string             `bson:"healthCode" json:"-"`
	EventID    string             `bson:"eventID" json:"eventID"`
	Timestamp  int64              `bson:"timestamp" json:"timestamp"`
}

// ActivityFinishedEventID returns the event id published when a participant
// finishes an activity. Later schedules may fire relative to it.
func ActivityFinishedEventID(activityGuid string) string {
	return fmt.Sprintf("activity:%s:finished", activityGuid)
}
