package types

// activity types
const (
	ACTIVITY_TYPE_TASK     = "task"
	ACTIVITY_TYPE_SURVEY   = "survey"
	ACTIVITY_TYPE_COMPOUND = "compound"
)

// Activity is the template element of a schedule: a closed union of task,
// survey and compound variants, discriminated by ActivityType. Exactly one of
// Task, Survey and Compound is set, according to the discriminator.
//
// The guid identifies the template activity across plan edits; scheduled
// activity identity downstream derives from it. SurveyResponseID is only set
// on materialized survey activities, after a response record has been bound.
type Activity struct {
	Guid             string            `bson:"guid" json:"guid"`
	Label            string            `bson:"label,omitempty" json:"label,omitempty"`
	ActivityType     string            `bson:"activityType" json:"activityType"`
	Task             *TaskReference    `bson:"task,omitempty" json:"task,omitempty"`
	Survey           *SurveyReference  `bson:"survey,omitempty" json:"survey,omitempty"`
	Compound         *CompoundActivity `bson:"compound,omitempty" json:"compound,omitempty"`
	SurveyResponseID string            `bson:"surveyResponseID,omitempty" json:"surveyResponseID,omitempty"`
}

func NewTaskActivity(label string, task TaskReference) Activity {
	return Activity{
		Label:        label,
		ActivityType: ACTIVITY_TYPE_TASK,
		Task:         &task,
	}
}

func NewSurveyActivity(label string, survey SurveyReference) Activity {
	return Activity{
		Label:        label,
		ActivityType: ACTIVITY_TYPE_SURVEY,
		Survey:       &survey,
	}
}

func NewCompoundActivityEntry(label string, compound CompoundActivity) Activity {
	return Activity{
		Label:        label,
		ActivityType: ACTIVITY_TYPE_COMPOUND,
		Compound:     &compound,
	}
}

// IsValid reports whether the union is well formed: a known discriminator
// with the matching variant set and the others absent.
func (a Activity) IsValid() bool {
	switch a.ActivityType {
	case ACTIVITY_TYPE_TASK:
		return a.Task != nil && a.Survey == nil && a.Compound == nil && a.Task.Identifier != ""
	case ACTIVITY_TYPE_SURVEY:
		return a.Survey != nil && a.Task == nil && a.Compound == nil && a.Survey.Guid != ""
	case ACTIVITY_TYPE_COMPOUND:
		return a.Compound != nil && a.Task == nil && a.Survey == nil && a.Compound.TaskIdentifier != ""
	}
	return false
}

// IsResolved reports whether every content pointer in the activity is pinned
// to an exact version. Only fully resolved activities may be persisted as
// part of a scheduled activity.
func (a Activity) IsResolved() bool {
	switch a.ActivityType {
	case ACTIVITY_TYPE_TASK:
		// A task without a schema has nothing to pin.
		return a.Task != nil && (a.Task.Schema == nil || a.Task.Schema.IsResolved())
	case ACTIVITY_TYPE_SURVEY:
		return a.Survey != nil && a.Survey.IsResolved()
	case ACTIVITY_TYPE_COMPOUND:
		return a.Compound != nil && a.Compound.IsResolved()
	}
	return false
}
