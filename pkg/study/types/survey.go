package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// Survey is one published version of a survey. The scheduling subsystem only
// reads these; authoring and publication happen elsewhere. Published and
// Unpublished are unix second timestamps, Unpublished 0 meaning still live.
type Survey struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Guid        string             `bson:"guid" json:"guid"`
	Identifier  string             `bson:"identifier" json:"identifier"`
	Published   int64              `bson:"published" json:"published"`
	Unpublished int64              `bson:"unpublished,omitempty" json:"unpublished,omitempty"`
}

// Reference returns the pinned reference for this survey version.
func (s Survey) Reference() SurveyReference {
	return SurveyReference{
		Identifier: s.Identifier,
		Guid:       s.Guid,
		CreatedOn:  s.Published,
	}
}
