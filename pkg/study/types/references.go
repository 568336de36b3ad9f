package types

// SurveyReference points to a survey. While a schedule plan is authored the
// reference may be abstract (only the guid is known); resolution pins it to
// the exact published version by filling identifier and createdOn.
type SurveyReference struct {
	Identifier string `bson:"identifier,omitempty" json:"identifier,omitempty"`
	Guid       string `bson:"guid" json:"guid"`
	CreatedOn  int64  `bson:"createdOn,omitempty" json:"createdOn,omitempty"`
}

// IsResolved reports whether the reference is pinned to an exact survey
// version. A pinned reference is immutable, resolving it again is a no-op.
func (r SurveyReference) IsResolved() bool {
	return r.CreatedOn != 0 && r.Identifier != ""
}

// SchemaReference points to an upload schema. Unresolved until a concrete
// revision has been selected for the requesting client.
type SchemaReference struct {
	ID       string `bson:"id" json:"id"`
	Revision int    `bson:"revision,omitempty" json:"revision,omitempty"`
}

func (r SchemaReference) IsResolved() bool {
	return r.Revision > 0
}

// TaskReference names a task the client app knows how to run, optionally
// with the upload schema its results should be validated against.
type TaskReference struct {
	Identifier string           `bson:"identifier" json:"identifier"`
	Schema     *SchemaReference `bson:"schema,omitempty" json:"schema,omitempty"`
}
