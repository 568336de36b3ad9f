package study

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

var indexesForActivityEventsCollection = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "healthCode", Value: 1}, {Key: "eventID", Value: 1}},
		Options: options.Index().SetName("healthCode_eventID_1").SetUnique(true),
	},
}

// GetActivityEventMap returns the participant's event timeline as an event id
// to timestamp map.
func (dbService *StudyDBService) GetActivityEventMap(instanceID string, studyKey string, healthCode string) (map[string]int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"healthCode": healthCode}
	cur, err := dbService.collectionActivityEvents(instanceID, studyKey).Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	var events []studyTypes.ActivityEvent
	if err = cur.All(ctx, &events); err != nil {
		return nil, err
	}

	eventMap := map[string]int64{}
	for _, event := range events {
		eventMap[event.EventID] = event.Timestamp
	}
	return eventMap, nil
}

// SaveActivityEvent upserts one timeline event. Timestamps only move forward,
// a replayed older event never rewinds the timeline.
func (dbService *StudyDBService) SaveActivityEvent(instanceID string, studyKey string, event studyTypes.ActivityEvent) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"healthCode": event.HealthCode,
		"eventID":    event.EventID,
	}
	update := bson.M{
		"$max": bson.M{"timestamp": event.Timestamp},
	}
	opts := options.Update().SetUpsert(true)
	_, err := dbService.collectionActivityEvents(instanceID, studyKey).UpdateOne(ctx, filter, update, opts)
	return err
}

func (dbService *StudyDBService) PublishActivityFinishedEvent(instanceID string, studyKey string, activity studyTypes.ScheduledActivity) error {
	return dbService.SaveActivityEvent(instanceID, studyKey, studyTypes.ActivityEvent{
		HealthCode: activity.HealthCode,
		EventID:    studyTypes.ActivityFinishedEventID(activity.Activity.Guid),
		Timestamp:  activity.FinishedOn,
	})
}

func (dbService *StudyDBService) DeleteActivityEventsForUser(instanceID string, studyKey string, healthCode string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"healthCode": healthCode}
	_, err := dbService.collectionActivityEvents(instanceID, studyKey).DeleteMany(ctx, filter)
	return err
}
