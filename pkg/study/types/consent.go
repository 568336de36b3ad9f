package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// ConsentSignature records a participant signing (and possibly withdrawing
// from) one subpopulation's consent. Only consulted as a compatibility
// fallback when a legacy timeline lacks the enrollment event.
type ConsentSignature struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	HealthCode        string             `bson:"healthCode" json:"-"`
	SubpopulationGuid string             `bson:"subpopulationGuid" json:"subpopulationGuid"`
	SignedOn          int64              `bson:"signedOn" json:"signedOn"`
	WithdrewOn        int64              `bson:"withdrewOn,omitempty" json:"withdrewOn,omitempty"`
}
