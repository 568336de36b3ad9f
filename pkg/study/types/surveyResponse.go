package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// survey response statuses
const (
	SURVEY_RESPONSE_STATUS_UNSTARTED   = "unstarted"
	SURVEY_RESPONSE_STATUS_IN_PROGRESS = "in_progress"
	SURVEY_RESPONSE_STATUS_FINISHED    = "finished"
)

// SurveyResponse is the record a survey activity's answers accumulate in. It
// is created empty when the activity is materialized; the ResponseID is bound
// into the activity before persistence and is part of durable state.
type SurveyResponse struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	ResponseID      string               `bson:"responseID" json:"responseID"`
	HealthCode      string               `bson:"healthCode" json:"-"`
	SurveyGuid      string               `bson:"surveyGuid" json:"surveyGuid"`
	SurveyCreatedOn int64                `bson:"surveyCreatedOn" json:"surveyCreatedOn"`
	CreatedAt       int64                `bson:"createdAt" json:"createdAt"`
	Answers         []SurveyItemResponse `bson:"answers,omitempty" json:"answers,omitempty"`
}

func (r SurveyResponse) Status() string {
	if len(r.Answers) == 0 {
		return SURVEY_RESPONSE_STATUS_UNSTARTED
	}
	return SURVEY_RESPONSE_STATUS_IN_PROGRESS
}

// SurveyItemResponse is a single answered item.
type SurveyItemResponse struct {
	Key   string `bson:"key" json:"key"`
	Value string `bson:"value" json:"value"`
}
