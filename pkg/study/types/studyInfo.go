package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// StudyInfo holds the study-level constraints schedule plans are validated
// against. Managed outside this subsystem.
type StudyInfo struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	StudyKey        string             `bson:"studyKey" json:"studyKey"`
	TaskIdentifiers []string           `bson:"taskIdentifiers,omitempty" json:"taskIdentifiers,omitempty"`
	DataGroups      []string           `bson:"dataGroups,omitempty" json:"dataGroups,omitempty"`
}
