package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// CompoundActivity groups several schema and survey references under one task
// identifier. It is either a pure reference to a CompoundActivityDefinition
// (to be expanded during resolution) or carries explicit lists. The variant
// is modeled explicitly instead of being inferred from empty lists.
type CompoundActivity struct {
	TaskIdentifier string            `bson:"taskIdentifier" json:"taskIdentifier"`
	IsReference    bool              `bson:"isReference" json:"isReference"`
	SchemaList     []SchemaReference `bson:"schemaList,omitempty" json:"schemaList,omitempty"`
	SurveyList     []SurveyReference `bson:"surveyList,omitempty" json:"surveyList,omitempty"`
}

// NewCompoundActivityReference returns the reference-only variant, expanded
// from its definition at resolution time.
func NewCompoundActivityReference(taskIdentifier string) CompoundActivity {
	return CompoundActivity{
		TaskIdentifier: taskIdentifier,
		IsReference:    true,
	}
}

// NewCompoundActivity returns the explicit-lists variant. The given lists are
// used as is during resolution, the definition is never consulted.
func NewCompoundActivity(taskIdentifier string, schemaList []SchemaReference, surveyList []SurveyReference) CompoundActivity {
	return CompoundActivity{
		TaskIdentifier: taskIdentifier,
		SchemaList:     schemaList,
		SurveyList:     surveyList,
	}
}

func (ca CompoundActivity) IsResolved() bool {
	if ca.IsReference {
		return false
	}
	for _, schemaRef := range ca.SchemaList {
		if !schemaRef.IsResolved() {
			return false
		}
	}
	for _, surveyRef := range ca.SurveyList {
		if !surveyRef.IsResolved() {
			return false
		}
	}
	return true
}

// CompoundActivityDefinition is the study-scoped template a reference-only
// compound activity is expanded from. Authored by study staff, read-only for
// the scheduling subsystem.
type CompoundActivityDefinition struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	StudyKey   string             `bson:"studyKey" json:"studyKey"`
	TaskID     string             `bson:"taskID" json:"taskID"`
	SchemaList []SchemaReference  `bson:"schemaList" json:"schemaList"`
	SurveyList []SurveyReference  `bson:"surveyList" json:"surveyList"`
}

// CompoundActivity returns the explicit compound activity described by this
// definition. The returned lists may still contain unresolved references.
func (def CompoundActivityDefinition) CompoundActivity() CompoundActivity {
	return NewCompoundActivity(def.TaskID, def.SchemaList, def.SurveyList)
}
