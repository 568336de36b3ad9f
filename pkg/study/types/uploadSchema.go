package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// UploadSchema is one revision of the data format a task produces. Revisions
// may declare per-OS app version bounds; revision selection picks the highest
// revision whose bounds admit the requesting client.
type UploadSchema struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SchemaID       string             `bson:"schemaID" json:"schemaID"`
	Revision       int                `bson:"revision" json:"revision"`
	Name           string             `bson:"name,omitempty" json:"name,omitempty"`
	MinAppVersions map[string]int     `bson:"minAppVersions,omitempty" json:"minAppVersions,omitempty"`
	MaxAppVersions map[string]int     `bson:"maxAppVersions,omitempty" json:"maxAppVersions,omitempty"`
}

// AdmitsClient reports whether this revision's app version bounds for the
// client's OS admit the client. Clients without version info, and OS names
// without declared bounds, are always admitted.
func (s UploadSchema) AdmitsClient(clientInfo ClientInfo) bool {
	if clientInfo.OsName == "" || clientInfo.AppVersion == 0 {
		return true
	}
	if minVersion, ok := s.MinAppVersions[clientInfo.OsName]; ok && clientInfo.AppVersion < minVersion {
		return false
	}
	if maxVersion, ok := s.MaxAppVersions[clientInfo.OsName]; ok && clientInfo.AppVersion > maxVersion {
		return false
	}
	return true
}

// Reference returns the pinned reference for this schema revision.
func (s UploadSchema) Reference() SchemaReference {
	return SchemaReference{
		ID:       s.SchemaID,
		Revision: s.Revision,
	}
}
