package study

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

var indexesForCompoundActivityDefinitionsCollection = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "taskID", Value: 1}},
		Options: options.Index().SetName("taskID_1").SetUnique(true),
	},
}

func (dbService *StudyDBService) CreateCompoundActivityDefinition(instanceID string, def *studyTypes.CompoundActivityDefinition) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	ret, err := dbService.collectionCompoundActivityDefinitions(instanceID, def.StudyKey).InsertOne(ctx, def)
	if err != nil {
		return err
	}
	def.ID = ret.InsertedID.(primitive.ObjectID)

	return nil
}

func (dbService *StudyDBService) GetCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (def *studyTypes.CompoundActivityDefinition, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"taskID": taskID}
	err = dbService.collectionCompoundActivityDefinitions(instanceID, studyKey).FindOne(ctx, filter).Decode(&def)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return def, nil
}

func (dbService *StudyDBService) GetAllCompoundActivityDefinitions(instanceID string, studyKey string) (defs []studyTypes.CompoundActivityDefinition, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	opts := &options.FindOptions{}
	opts.SetSort(bson.D{primitive.E{Key: "taskID", Value: 1}})

	cur, err := dbService.collectionCompoundActivityDefinitions(instanceID, studyKey).Find(ctx, bson.M{}, opts)
	if err != nil {
		return defs, err
	}

	if err = cur.All(ctx, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (dbService *StudyDBService) UpdateCompoundActivityDefinition(instanceID string, def *studyTypes.CompoundActivityDefinition) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"taskID": def.TaskID}
	res, err := dbService.collectionCompoundActivityDefinitions(instanceID, def.StudyKey).ReplaceOne(ctx, filter, def)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return studyTypes.ErrNotFound
	}
	return nil
}

func (dbService *StudyDBService) DeleteCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"taskID": taskID}
	res, err := dbService.collectionCompoundActivityDefinitions(instanceID, studyKey).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return studyTypes.ErrNotFound
	}
	return nil
}
