package study

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (dbService *StudyDBService) GetStudyInfo(instanceID string, studyKey string) (info *studyTypes.StudyInfo, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"studyKey": studyKey}
	err = dbService.collectionStudyInfos(instanceID).FindOne(ctx, filter).Decode(&info)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studyTypes.ErrNotFound
		}
		return nil, err
	}
	return info, nil
}

func (dbService *StudyDBService) SaveStudyInfo(instanceID string, info *studyTypes.StudyInfo) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"studyKey": info.StudyKey}
	opts := options.Replace().SetUpsert(true)
	_, err := dbService.collectionStudyInfos(instanceID).ReplaceOne(ctx, filter, info, opts)
	return err
}
