package study

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

var sortByRevisionDesc = bson.D{
	primitive.E{Key: "revision", Value: -1},
}

func (dbService *StudyDBService) SaveUploadSchema(instanceID string, studyKey string, schema *studyTypes.UploadSchema) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	ret, err := dbService.collectionUploadSchemas(instanceID, studyKey).InsertOne(ctx, schema)
	if err != nil {
		return err
	}
	schema.ID = ret.InsertedID.(primitive.ObjectID)

	return nil
}

// GetLatestSchemaRevisionForClient returns the highest revision of the schema
// whose app version bounds admit the calling client. Revisions are walked
// newest first, so a client on an old app version falls back to the newest
// revision it still supports.
func (dbService *StudyDBService) GetLatestSchemaRevisionForClient(instanceID string, studyKey string, schemaID string, clientInfo studyTypes.ClientInfo) (*studyTypes.UploadSchema, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"schemaID": schemaID}
	opts := &options.FindOptions{}
	opts.SetSort(sortByRevisionDesc)

	cur, err := dbService.collectionUploadSchemas(instanceID, studyKey).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var schema studyTypes.UploadSchema
		if err := cur.Decode(&schema); err != nil {
			return nil, err
		}
		if schema.AdmitsClient(clientInfo) {
			return &schema, nil
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return nil, studyTypes.ErrNotFound
}

func (dbService *StudyDBService) GetSchemaRevisions(instanceID string, studyKey string, schemaID string) (schemas []studyTypes.UploadSchema, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"schemaID": schemaID}
	opts := &options.FindOptions{}
	opts.SetSort(sortByRevisionDesc)

	cur, err := dbService.collectionUploadSchemas(instanceID, studyKey).Find(ctx, filter, opts)
	if err != nil {
		return schemas, err
	}

	if err = cur.All(ctx, &schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}
