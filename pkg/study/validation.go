package study

import (
	"log/slog"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

// validatePlan checks a schedule plan's structure and its references to
// study-level constraints (task identifier and data group names). When the
// study has no constraint record, the constraint checks are skipped.
func (s *SchedulePlanService) validatePlan(instanceID string, studyKey string, plan *studyTypes.SchedulePlan) error {
	if plan.Label == "" {
		return studyTypes.BadInputf("schedule plan label must be specified")
	}

	schedules := plan.Strategy.AllSchedules()
	if len(schedules) == 0 {
		return studyTypes.BadInputf("schedule plan strategy must define at least one schedule")
	}
	switch plan.Strategy.Type {
	case studyTypes.STRATEGY_TYPE_SIMPLE, studyTypes.STRATEGY_TYPE_AB_TEST, studyTypes.STRATEGY_TYPE_CRITERIA:
	default:
		return studyTypes.BadInputf("unknown strategy type '%s'", plan.Strategy.Type)
	}

	studyInfo, err := s.studyInfos.GetStudyInfo(instanceID, studyKey)
	if err != nil {
		slog.Debug("no study info found, skipping constraint validation", slog.String("studyKey", studyKey))
		studyInfo = nil
	}

	for i, schedule := range schedules {
		if len(schedule.Activities) == 0 {
			return studyTypes.BadInputf("schedule #%d has no activities", i)
		}
		switch schedule.ScheduleType {
		case studyTypes.SCHEDULE_TYPE_ONCE:
		case studyTypes.SCHEDULE_TYPE_INTERVAL:
			if schedule.Interval == "" {
				return studyTypes.BadInputf("schedule #%d is interval-based but has no interval", i)
			}
		case studyTypes.SCHEDULE_TYPE_CRON:
			if schedule.CronTrigger == "" {
				return studyTypes.BadInputf("schedule #%d is cron-based but has no cron trigger", i)
			}
		default:
			return studyTypes.BadInputf("schedule #%d has unknown schedule type '%s'", i, schedule.ScheduleType)
		}

		for j, activity := range schedule.Activities {
			if !activity.IsValid() {
				return studyTypes.BadInputf("schedule #%d activity #%d is malformed", i, j)
			}
			if studyInfo != nil {
				if err := validateTaskIdentifier(activity, studyInfo, i, j); err != nil {
					return err
				}
			}
		}
	}

	if studyInfo != nil && plan.Strategy.Type == studyTypes.STRATEGY_TYPE_CRITERIA {
		if err := validateDataGroups(plan.Strategy.Groups, studyInfo); err != nil {
			return err
		}
	}
	return nil
}

func validateTaskIdentifier(activity studyTypes.Activity, studyInfo *studyTypes.StudyInfo, scheduleIdx int, activityIdx int) error {
	if activity.ActivityType != studyTypes.ACTIVITY_TYPE_TASK || len(studyInfo.TaskIdentifiers) == 0 {
		return nil
	}
	for _, taskID := range studyInfo.TaskIdentifiers {
		if taskID == activity.Task.Identifier {
			return nil
		}
	}
	return studyTypes.BadInputf("schedule #%d activity #%d references unknown task identifier '%s'", scheduleIdx, activityIdx, activity.Task.Identifier)
}

func validateDataGroups(groups []studyTypes.ScheduleGroup, studyInfo *studyTypes.StudyInfo) error {
	known := map[string]bool{}
	for _, dg := range studyInfo.DataGroups {
		known[dg] = true
	}
	for i, group := range groups {
		for _, dg := range append(append([]string{}, group.AllOfDataGroups...), group.NoneOfDataGroups...) {
			if !known[dg] {
				return studyTypes.BadInputf("schedule group #%d references unknown data group '%s'", i, dg)
			}
		}
	}
	return nil
}

// validateCompoundActivityDefinition checks a definition before it is saved.
func validateCompoundActivityDefinition(def *studyTypes.CompoundActivityDefinition) error {
	if def.TaskID == "" {
		return studyTypes.BadInputf("taskID must be specified")
	}
	if len(def.SchemaList) == 0 && len(def.SurveyList) == 0 {
		return studyTypes.BadInputf("compound activity definition must reference at least one schema or survey")
	}
	for i, schemaRef := range def.SchemaList {
		if schemaRef.ID == "" {
			return studyTypes.BadInputf("schemaList entry #%d has no schema id", i)
		}
	}
	for i, surveyRef := range def.SurveyList {
		if surveyRef.Guid == "" {
			return studyTypes.BadInputf("surveyList entry #%d has no survey guid", i)
		}
	}
	return nil
}
