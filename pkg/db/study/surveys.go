package study

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

var indexesForSurveysCollection = []mongo.IndexModel{
	{
		Keys: bson.D{
			{Key: "guid", Value: 1},
			{Key: "unpublished", Value: 1},
			{Key: "published", Value: -1},
		},
		Options: options.Index().SetName("guid_unpublished_published_1"),
	},
	{
		Keys: bson.D{
			{Key: "guid", Value: 1},
			{Key: "published", Value: 1},
		},
		Options: options.Index().SetName("guid_published_1").SetUnique(true),
	},
}

var sortByPublishedDesc = bson.D{
	primitive.E{Key: "published", Value: -1},
}

func (dbService *StudyDBService) SaveSurveyVersion(instanceID string, studyKey string, survey *studyTypes.Survey) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	ret, err := dbService.collectionSurveys(instanceID, studyKey).InsertOne(ctx, survey)
	if err != nil {
		return err
	}
	survey.ID = ret.InsertedID.(primitive.ObjectID)

	return nil
}

// GetMostRecentlyPublishedSurvey returns the version of the survey that is
// currently published, i.e. the newest version that has not been unpublished.
func (dbService *StudyDBService) GetMostRecentlyPublishedSurvey(instanceID string, studyKey string, surveyGuid string) (survey *studyTypes.Survey, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"guid": surveyGuid,
		"$or": []bson.M{
			{"unpublished": 0},
			{"unpublished": bson.M{"$exists": false}},
		},
	}

	opts := &options.FindOneOptions{}
	opts.SetSort(sortByPublishedDesc)

	err = dbService.collectionSurveys(instanceID, studyKey).FindOne(ctx, filter, opts).Decode(&survey)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return survey, nil
}

// GetSurveyVersion returns the exact survey version identified by guid and
// publication timestamp, whether or not it has since been unpublished.
func (dbService *StudyDBService) GetSurveyVersion(instanceID string, studyKey string, surveyGuid string, createdOn int64) (survey *studyTypes.Survey, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"guid":      surveyGuid,
		"published": createdOn,
	}

	err = dbService.collectionSurveys(instanceID, studyKey).FindOne(ctx, filter).Decode(&survey)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return survey, nil
}

func (dbService *StudyDBService) GetSurveyVersions(instanceID string, studyKey string, surveyGuid string) (surveys []studyTypes.Survey, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"guid": surveyGuid}
	opts := &options.FindOptions{}
	opts.SetSort(sortByPublishedDesc)

	cur, err := dbService.collectionSurveys(instanceID, studyKey).Find(ctx, filter, opts)
	if err != nil {
		return surveys, err
	}

	if err = cur.All(ctx, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

func (dbService *StudyDBService) UnpublishSurvey(instanceID string, studyKey string, surveyGuid string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"guid":        surveyGuid,
		"unpublished": bson.M{"$not": bson.M{"$gt": 0}},
	}
	update := bson.M{"$set": bson.M{"unpublished": time.Now().Unix()}}
	_, err := dbService.collectionSurveys(instanceID, studyKey).UpdateMany(ctx, filter, update)
	return err
}
