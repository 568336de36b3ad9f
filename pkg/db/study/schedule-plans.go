package study

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

var indexesForSchedulePlansCollection = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "guid", Value: 1}},
		Options: options.Index().SetName("guid_1").SetUnique(true),
	},
}

var sortByPlanGuidAsc = bson.D{
	primitive.E{Key: "guid", Value: 1},
}

// GetSchedulePlans returns all plans of the study in a stable order, so that
// repeated schedule evaluations for a participant walk the plans identically.
func (dbService *StudyDBService) GetSchedulePlans(instanceID string, studyKey string) (plans []studyTypes.SchedulePlan, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	opts := &options.FindOptions{}
	opts.SetSort(sortByPlanGuidAsc)

	cur, err := dbService.collectionSchedulePlans(instanceID, studyKey).Find(ctx, bson.M{}, opts)
	if err != nil {
		return plans, err
	}

	if err = cur.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (dbService *StudyDBService) GetSchedulePlan(instanceID string, studyKey string, planGuid string) (plan *studyTypes.SchedulePlan, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"guid": planGuid}
	err = dbService.collectionSchedulePlans(instanceID, studyKey).FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return plan, nil
}

func (dbService *StudyDBService) CreateSchedulePlan(instanceID string, plan *studyTypes.SchedulePlan) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	ret, err := dbService.collectionSchedulePlans(instanceID, plan.StudyKey).InsertOne(ctx, plan)
	if err != nil {
		return err
	}
	plan.ID = ret.InsertedID.(primitive.ObjectID)

	dbService.CreateIndexesForStudy(instanceID, plan.StudyKey)

	return nil
}

func (dbService *StudyDBService) UpdateSchedulePlan(instanceID string, plan *studyTypes.SchedulePlan) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"guid": plan.Guid}
	res, err := dbService.collectionSchedulePlans(instanceID, plan.StudyKey).ReplaceOne(ctx, filter, plan)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return studyTypes.ErrNotFound
	}
	return nil
}

func (dbService *StudyDBService) DeleteSchedulePlan(instanceID string, studyKey string, planGuid string) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"guid": planGuid}
	res, err := dbService.collectionSchedulePlans(instanceID, studyKey).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount < 1 {
		return studyTypes.ErrNotFound
	}
	return nil
}
