package study

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

// CreateSurveyResponse creates an empty response record for a survey activity
// and returns it with a fresh response id. The caller binds the id into the
// activity before the activity is persisted.
func (dbService *StudyDBService) CreateSurveyResponse(instanceID string, studyKey string, healthCode string, surveyRef studyTypes.SurveyReference) (*studyTypes.SurveyResponse, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	response := studyTypes.SurveyResponse{
		ResponseID:      uuid.NewString(),
		HealthCode:      healthCode,
		SurveyGuid:      surveyRef.Guid,
		SurveyCreatedOn: surveyRef.CreatedOn,
		CreatedAt:       time.Now().Unix(),
	}

	ret, err := dbService.collectionSurveyResponses(instanceID, studyKey).InsertOne(ctx, response)
	if err != nil {
		return nil, err
	}
	response.ID = ret.InsertedID.(primitive.ObjectID)

	return &response, nil
}

func (dbService *StudyDBService) GetSurveyResponse(instanceID string, studyKey string, healthCode string, responseID string) (response *studyTypes.SurveyResponse, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"healthCode": healthCode,
		"responseID": responseID,
	}
	err = dbService.collectionSurveyResponses(instanceID, studyKey).FindOne(ctx, filter).Decode(&response)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return response, nil
}

func (dbService *StudyDBService) UpdateSurveyResponseAnswers(instanceID string, studyKey string, healthCode string, responseID string, answers []studyTypes.SurveyItemResponse) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"healthCode": healthCode,
		"responseID": responseID,
	}
	update := bson.M{"$set": bson.M{"answers": answers}}
	res, err := dbService.collectionSurveyResponses(instanceID, studyKey).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return studyTypes.ErrNotFound
	}
	return nil
}

func (dbService *StudyDBService) DeleteSurveyResponsesForUser(instanceID string, studyKey string, healthCode string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"healthCode": healthCode}
	_, err := dbService.collectionSurveyResponses(instanceID, studyKey).DeleteMany(ctx, filter)
	return err
}
