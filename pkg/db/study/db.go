package study

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cohort-framework/cohort-backend/pkg/db"
)

// collection names
const (
	COLLECTION_NAME_STUDY_INFOS                          = "study-infos"
	COLLECTION_NAME_SUFFIX_SCHEDULE_PLANS                = "schedulePlans"
	COLLECTION_NAME_SUFFIX_COMPOUND_ACTIVITY_DEFINITIONS = "compoundActivityDefinitions"
	COLLECTION_NAME_SUFFIX_SURVEYS                       = "surveys"
	COLLECTION_NAME_SUFFIX_UPLOAD_SCHEMAS                = "uploadSchemas"
	COLLECTION_NAME_SUFFIX_SCHEDULED_ACTIVITIES          = "scheduledActivities"
	COLLECTION_NAME_SUFFIX_SURVEY_RESPONSES              = "surveyResponses"
	COLLECTION_NAME_SUFFIX_ACTIVITY_EVENTS               = "activityEvents"
	COLLECTION_NAME_SUFFIX_CONSENT_SIGNATURES            = "consentSignatures"
)

type StudyDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	InstanceIDs     []string
}

func NewStudyDBService(configs db.DBConfig) (*StudyDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	studyDBSc := &StudyDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		InstanceIDs:     configs.InstanceIDs,
	}

	if configs.RunIndexCreation {
		if err := studyDBSc.ensureIndexes(); err != nil {
			slog.Error("Error ensuring indexes for study DB", slog.String("error", err.Error()))
		}
	}

	return studyDBSc, nil
}

func (dbService *StudyDBService) getDBName(instanceID string) string {
	return dbService.DBNamePrefix + instanceID + "_studyDB"
}

func (dbService *StudyDBService) collectionStudyInfos(instanceID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(COLLECTION_NAME_STUDY_INFOS)
}

func (dbService *StudyDBService) collectionSchedulePlans(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_SCHEDULE_PLANS)
}

func (dbService *StudyDBService) collectionCompoundActivityDefinitions(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_COMPOUND_ACTIVITY_DEFINITIONS)
}

func (dbService *StudyDBService) collectionSurveys(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_SURVEYS)
}

func (dbService *StudyDBService) collectionUploadSchemas(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_UPLOAD_SCHEMAS)
}

func (dbService *StudyDBService) collectionScheduledActivities(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_SCHEDULED_ACTIVITIES)
}

func (dbService *StudyDBService) collectionSurveyResponses(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_SURVEY_RESPONSES)
}

func (dbService *StudyDBService) collectionActivityEvents(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_ACTIVITY_EVENTS)
}

func (dbService *StudyDBService) collectionConsentSignatures(instanceID string, studyKey string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(instanceID)).Collection(studyKey + "_" + COLLECTION_NAME_SUFFIX_CONSENT_SIGNATURES)
}

func (dbService *StudyDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

// ensureIndexes creates indexes for the study collections that already exist.
// Collections of studies created later get their indexes through
// CreateIndexesForStudy, called on the first plan write for the study.
func (dbService *StudyDBService) ensureIndexes() error {
	slog.Debug("Ensuring indexes for study DB")
	for _, instanceID := range dbService.InstanceIDs {
		studyKeys, err := dbService.GetKnownStudyKeys(instanceID)
		if err != nil {
			slog.Error("Error listing study collections", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
			return err
		}
		for _, studyKey := range studyKeys {
			dbService.CreateIndexesForStudy(instanceID, studyKey)
		}
	}
	return nil
}

// CreateIndexesForStudy creates the indexes of one study's collections. The
// unique index on (healthCode, guid) is the backstop for the run-key
// idempotency protocol: even when two concurrent passes both observe an
// unoccurred run key, only one can persist each occurrence.
func (dbService *StudyDBService) CreateIndexesForStudy(instanceID string, studyKey string) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionScheduledActivities(instanceID, studyKey).Indexes().CreateMany(ctx, indexesForScheduledActivitiesCollection)
	if err != nil {
		slog.Error("Error creating index for scheduledActivities", slog.String("error", err.Error()), slog.String("instanceID", instanceID), slog.String("studyKey", studyKey))
	}

	_, err = dbService.collectionSurveys(instanceID, studyKey).Indexes().CreateMany(ctx, indexesForSurveysCollection)
	if err != nil {
		slog.Error("Error creating index for surveys", slog.String("error", err.Error()), slog.String("instanceID", instanceID), slog.String("studyKey", studyKey))
	}

	_, err = dbService.collectionSchedulePlans(instanceID, studyKey).Indexes().CreateMany(ctx, indexesForSchedulePlansCollection)
	if err != nil {
		slog.Error("Error creating index for schedulePlans", slog.String("error", err.Error()), slog.String("instanceID", instanceID), slog.String("studyKey", studyKey))
	}

	_, err = dbService.collectionActivityEvents(instanceID, studyKey).Indexes().CreateMany(ctx, indexesForActivityEventsCollection)
	if err != nil {
		slog.Error("Error creating index for activityEvents", slog.String("error", err.Error()), slog.String("instanceID", instanceID), slog.String("studyKey", studyKey))
	}

	_, err = dbService.collectionCompoundActivityDefinitions(instanceID, studyKey).Indexes().CreateMany(ctx, indexesForCompoundActivityDefinitionsCollection)
	if err != nil {
		slog.Error("Error creating index for compoundActivityDefinitions", slog.String("error", err.Error()), slog.String("instanceID", instanceID), slog.String("studyKey", studyKey))
	}
}

func (dbService *StudyDBService) GetKnownStudyKeys(instanceID string) ([]string, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	names, err := dbService.DBClient.Database(dbService.getDBName(instanceID)).ListCollectionNames(ctx, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	suffix := "_" + COLLECTION_NAME_SUFFIX_SCHEDULE_PLANS
	studyKeys := []string{}
	for _, name := range names {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			studyKeys = append(studyKeys, name[:len(name)-len(suffix)])
		}
	}
	return studyKeys, nil
}
