package study

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

var indexesForScheduledActivitiesCollection = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "healthCode", Value: 1}, {Key: "guid", Value: 1}},
		Options: options.Index().SetName("healthCode_guid_1").SetUnique(true),
	},
	{
		Keys:    bson.D{{Key: "healthCode", Value: 1}, {Key: "runKey", Value: 1}},
		Options: options.Index().SetName("healthCode_runKey_1"),
	},
	{
		Keys:    bson.D{{Key: "healthCode", Value: 1}, {Key: "scheduledOn", Value: 1}},
		Options: options.Index().SetName("healthCode_scheduledOn_1"),
	},
	{
		Keys:    bson.D{{Key: "schedulePlanGuid", Value: 1}},
		Options: options.Index().SetName("schedulePlanGuid_1"),
	},
}

// HasRunKeyOccurred reports if any activity of this run was persisted before.
// A positive answer lets schedule evaluation skip reference resolution for
// the run entirely. A stale negative answer is harmless: the unique index on
// (healthCode, guid) rejects the duplicate insert later.
func (dbService *StudyDBService) HasRunKeyOccurred(instanceID string, studyKey string, healthCode string, runKey string) (bool, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"healthCode": healthCode,
		"runKey":     runKey,
	}
	opts := options.Count().SetLimit(1)

	count, err := dbService.collectionScheduledActivities(instanceID, studyKey).CountDocuments(ctx, filter, opts)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveActivities inserts newly materialized activities. The insert is
// unordered and duplicate key errors are swallowed: when two concurrent
// passes race on the same run, each occurrence is persisted exactly once and
// both passes succeed.
func (dbService *StudyDBService) SaveActivities(instanceID string, studyKey string, activities []studyTypes.ScheduledActivity) error {
	if len(activities) < 1 {
		return nil
	}
	ctx, cancel := dbService.getContext()
	defer cancel()

	docs := make([]interface{}, len(activities))
	for i := range activities {
		docs[i] = activities[i]
	}

	opts := options.InsertMany().SetOrdered(false)
	_, err := dbService.collectionScheduledActivities(instanceID, studyKey).InsertMany(ctx, docs, opts)
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && onlyDuplicateKeyErrors(bwe) {
			return nil
		}
		return err
	}
	return nil
}

func onlyDuplicateKeyErrors(bwe mongo.BulkWriteException) bool {
	if len(bwe.WriteErrors) < 1 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

func (dbService *StudyDBService) GetActivitiesForParticipant(instanceID string, studyKey string, healthCode string, endsOn int64) (activities []studyTypes.ScheduledActivity, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"healthCode":  healthCode,
		"scheduledOn": bson.M{"$lte": endsOn},
	}
	opts := &options.FindOptions{}
	opts.SetSort(bson.D{
		primitive.E{Key: "scheduledOn", Value: 1},
		primitive.E{Key: "guid", Value: 1},
	})
	if dbService.noCursorTimeout {
		opts.SetNoCursorTimeout(true)
	}

	cur, err := dbService.collectionScheduledActivities(instanceID, studyKey).Find(ctx, filter, opts)
	if err != nil {
		return activities, err
	}

	if err = cur.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (dbService *StudyDBService) GetActivity(instanceID string, studyKey string, healthCode string, guid string) (activity *studyTypes.ScheduledActivity, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"healthCode": healthCode,
		"guid":       guid,
	}
	err = dbService.collectionScheduledActivities(instanceID, studyKey).FindOne(ctx, filter).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return activity, nil
}

func (dbService *StudyDBService) UpdateActivities(instanceID string, studyKey string, healthCode string, activities []studyTypes.ScheduledActivity) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	collection := dbService.collectionScheduledActivities(instanceID, studyKey)
	for _, activity := range activities {
		filter := bson.M{
			"healthCode": healthCode,
			"guid":       activity.Guid,
		}
		update := bson.M{"$set": bson.M{
			"startedOn":  activity.StartedOn,
			"finishedOn": activity.FinishedOn,
			"hidesOn":    activity.HidesOn,
		}}
		res, err := collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		if res.MatchedCount < 1 {
			return studyTypes.ErrNotFound
		}
	}
	return nil
}

func (dbService *StudyDBService) DeleteActivitiesForUser(instanceID string, studyKey string, healthCode string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"healthCode": healthCode}
	_, err := dbService.collectionScheduledActivities(instanceID, studyKey).DeleteMany(ctx, filter)
	return err
}

func (dbService *StudyDBService) DeleteActivitiesForSchedulePlan(instanceID string, studyKey string, planGuid string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"schedulePlanGuid": planGuid}
	_, err := dbService.collectionScheduledActivities(instanceID, studyKey).DeleteMany(ctx, filter)
	return err
}

// DeleteHiddenActivitiesBefore removes activities that stopped being visible
// before the given time: finished or removed ones whose hidesOn passed, and
// never started ones that expired. Used by the cleanup job.
func (dbService *StudyDBService) DeleteHiddenActivitiesBefore(instanceID string, studyKey string, before int64) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"hidesOn": bson.M{"$lt": before}},
		bson.M{
			"startedOn":  bson.M{"$exists": false},
			"finishedOn": bson.M{"$exists": false},
			"expiresOn":  bson.M{"$gt": 0, "$lt": before},
		},
	}}
	res, err := dbService.collectionScheduledActivities(instanceID, studyKey).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
