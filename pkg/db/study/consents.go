package study

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

func (dbService *StudyDBService) GetConsentSignatures(instanceID string, studyKey string, healthCode string) (signatures []studyTypes.ConsentSignature, err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"healthCode": healthCode}
	opts := &options.FindOptions{}
	opts.SetSort(bson.D{primitive.E{Key: "signedOn", Value: 1}})

	cur, err := dbService.collectionConsentSignatures(instanceID, studyKey).Find(ctx, filter, opts)
	if err != nil {
		return signatures, err
	}

	if err = cur.All(ctx, &signatures); err != nil {
		return nil, err
	}
	return signatures, nil
}

func (dbService *StudyDBService) SaveConsentSignature(instanceID string, studyKey string, signature *studyTypes.ConsentSignature) (err error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	ret, err := dbService.collectionConsentSignatures(instanceID, studyKey).InsertOne(ctx, signature)
	if err != nil {
		return err
	}
	signature.ID = ret.InsertedID.(primitive.ObjectID)

	return nil
}
