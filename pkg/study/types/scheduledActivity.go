package types

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scheduled activity statuses, derived from the timestamps
const (
	SCHEDULED_ACTIVITY_STATUS_SCHEDULED = "scheduled"
	SCHEDULED_ACTIVITY_STATUS_AVAILABLE = "available"
	SCHEDULED_ACTIVITY_STATUS_STARTED   = "started"
	SCHEDULED_ACTIVITY_STATUS_FINISHED  = "finished"
	SCHEDULED_ACTIVITY_STATUS_EXPIRED   = "expired"
	SCHEDULED_ACTIVITY_STATUS_DELETED   = "deleted"
)

// MAX_HIDES_ON keeps an activity visible indefinitely (until finished).
const MAX_HIDES_ON = int64(math.MaxInt64)

// ScheduledActivity is one materialized occurrence of a template activity for
// one participant. Created exactly once per (healthCode, runKey) by the
// scheduling pass; afterwards only the participant's own progress timestamps
// (startedOn, finishedOn) change.
//
// All timestamps are unix seconds, 0 meaning not set.
type ScheduledActivity struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Guid             string             `bson:"guid" json:"guid"`
	HealthCode       string             `bson:"healthCode" json:"-"`
	SchedulePlanGuid string             `bson:"schedulePlanGuid" json:"schedulePlanGuid"`
	RunKey           string             `bson:"runKey" json:"-"`
	ScheduledOn      int64              `bson:"scheduledOn" json:"scheduledOn"`
	ExpiresOn        int64              `bson:"expiresOn,omitempty" json:"expiresOn,omitempty"`
	HidesOn          int64              `bson:"hidesOn" json:"-"`
	StartedOn        int64              `bson:"startedOn,omitempty" json:"startedOn,omitempty"`
	FinishedOn       int64              `bson:"finishedOn,omitempty" json:"finishedOn,omitempty"`
	Persistent       bool               `bson:"persistent,omitempty" json:"persistent,omitempty"`
	Activity         Activity           `bson:"activity" json:"activity"`
}

// Status derives the lifecycle state at the given time (unix seconds).
// A finishedOn without startedOn marks an activity the participant removed.
func (sa ScheduledActivity) Status(now int64) string {
	if sa.FinishedOn != 0 && sa.StartedOn == 0 {
		return SCHEDULED_ACTIVITY_STATUS_DELETED
	}
	if sa.FinishedOn != 0 {
		return SCHEDULED_ACTIVITY_STATUS_FINISHED
	}
	if sa.StartedOn != 0 {
		return SCHEDULED_ACTIVITY_STATUS_STARTED
	}
	if sa.ExpiresOn != 0 && now > sa.ExpiresOn {
		return SCHEDULED_ACTIVITY_STATUS_EXPIRED
	}
	if now < sa.ScheduledOn {
		return SCHEDULED_ACTIVITY_STATUS_SCHEDULED
	}
	return SCHEDULED_ACTIVITY_STATUS_AVAILABLE
}

// IsVisible reports whether the activity should appear in a participant's
// activity list at the given time.
func (sa ScheduledActivity) IsVisible(now int64) bool {
	switch sa.Status(now) {
	case SCHEDULED_ACTIVITY_STATUS_EXPIRED, SCHEDULED_ACTIVITY_STATUS_DELETED:
		return false
	}
	return sa.HidesOn >= now
}
