package main

import (
	"log/slog"
	"time"
)

func main() {
	slog.Info("Starting activity cleanup job")
	start := time.Now()

	before := start.Unix() - int64(conf.CleanUpConfig.RetentionDays)*24*60*60

	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start cleaning up scheduled activities for instance", slog.String("instanceID", instanceID))
		studyKeys, err := studyDBService.GetKnownStudyKeys(instanceID)
		if err != nil {
			slog.Error("Failed to list studies", slog.String("error", err.Error()), slog.String("instanceID", instanceID))
			continue
		}

		for _, studyKey := range studyKeys {
			count, err := studyDBService.DeleteHiddenActivitiesBefore(instanceID, studyKey, before)
			if err != nil {
				slog.Error("Failed to delete hidden activities", slog.String("error", err.Error()), slog.String("instanceID", instanceID), slog.String("studyKey", studyKey))
				continue
			}
			if count > 0 {
				slog.Info("Removed hidden activities", slog.String("instanceID", instanceID), slog.String("studyKey", studyKey), slog.Int64("count", count))
			}
		}
	}

	slog.Info("Activity cleanup job completed", slog.String("duration", time.Since(start).String()))
}
