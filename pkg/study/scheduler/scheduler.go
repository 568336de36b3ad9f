package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
	"github.com/cohort-framework/cohort-backend/pkg/utils"
)

// GetScheduledActivities evaluates one schedule of a plan against the
// participant's event timeline and returns the candidate occurrences up to
// and including the context's endsOn. All activities produced by one firing
// share a run key; both run key and activity guid are deterministic, so a
// repeated pass over an unchanged timeline regenerates identical candidates.
func GetScheduledActivities(plan studyTypes.SchedulePlan, schedule studyTypes.Schedule, ctx studyTypes.ScheduleContext) ([]studyTypes.ScheduledActivity, error) {
	eventTime, ok := eventTimeFor(schedule, ctx)
	if !ok {
		// The triggering event has not happened yet, nothing to generate.
		return nil, nil
	}

	if schedule.Delay != "" {
		delay, err := utils.ParseDurationString(schedule.Delay)
		if err != nil {
			return nil, fmt.Errorf("schedule delay: %w", err)
		}
		eventTime += int64(delay.Seconds())
	}

	occurrences, err := occurrenceTimes(schedule, eventTime, ctx.EndsOn)
	if err != nil {
		return nil, err
	}

	var expires time.Duration
	if schedule.Expires != "" {
		expires, err = utils.ParseDurationString(schedule.Expires)
		if err != nil {
			return nil, fmt.Errorf("schedule expires: %w", err)
		}
	}

	scheduledActivities := []studyTypes.ScheduledActivity{}
	for _, scheduledOn := range occurrences {
		if !isInWindow(schedule, scheduledOn) {
			continue
		}
		expiresOn := int64(0)
		if expires > 0 {
			expiresOn = scheduledOn + int64(expires.Seconds())
			if expiresOn <= ctx.Now {
				// Expired before the participant could ever have seen it.
				continue
			}
		}

		runKey := RunKey(plan.Guid, scheduledOn)
		for _, activity := range schedule.Activities {
			scheduledActivities = append(scheduledActivities, studyTypes.ScheduledActivity{
				Guid:             OccurrenceGuid(activity.Guid, scheduledOn),
				HealthCode:       ctx.HealthCode,
				SchedulePlanGuid: plan.Guid,
				RunKey:           runKey,
				ScheduledOn:      scheduledOn,
				ExpiresOn:        expiresOn,
				HidesOn:          studyTypes.MAX_HIDES_ON,
				Activity:         activity,
			})
		}
	}
	return scheduledActivities, nil
}

// RunKey identifies one firing of one plan at one instant; all sibling
// activities of the firing carry it, and it is the idempotency unit for
// persistence.
func RunKey(planGuid string, scheduledOn int64) string {
	return planGuid + ":" + formatTime(scheduledOn)
}

// OccurrenceGuid derives the stable identity of one occurrence from the
// template activity's guid and the firing instant.
func OccurrenceGuid(activityGuid string, scheduledOn int64) string {
	return activityGuid + ":" + formatTime(scheduledOn)
}

func formatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// eventTimeFor finds the timestamp of the schedule's triggering event. The
// event id may list comma separated alternatives; the first one present in
// the timeline wins. Without an event id the enrollment event is assumed.
func eventTimeFor(schedule studyTypes.Schedule, ctx studyTypes.ScheduleContext) (int64, bool) {
	eventIDs := schedule.EventID
	if eventIDs == "" {
		eventIDs = studyTypes.ACTIVITY_EVENT_ENROLLMENT
	}
	for _, eventID := range strings.Split(eventIDs, ",") {
		if ts, ok := ctx.Events[strings.TrimSpace(eventID)]; ok {
			return ts, true
		}
	}
	return 0, false
}

func occurrenceTimes(schedule studyTypes.Schedule, eventTime int64, endsOn int64) ([]int64, error) {
	switch schedule.ScheduleType {
	case studyTypes.SCHEDULE_TYPE_ONCE:
		if eventTime > endsOn {
			return nil, nil
		}
		return []int64{eventTime}, nil
	case studyTypes.SCHEDULE_TYPE_INTERVAL:
		interval, err := utils.ParseDurationString(schedule.Interval)
		if err != nil {
			return nil, fmt.Errorf("schedule interval: %w", err)
		}
		step := int64(interval.Seconds())
		if step <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive, got '%s'", schedule.Interval)
		}
		times := []int64{}
		for t := eventTime; t <= endsOn; t += step {
			times = append(times, t)
		}
		return times, nil
	case studyTypes.SCHEDULE_TYPE_CRON:
		cronSchedule, err := cron.ParseStandard(schedule.CronTrigger)
		if err != nil {
			return nil, fmt.Errorf("schedule cron trigger '%s': %w", schedule.CronTrigger, err)
		}
		times := []int64{}
		t := cronSchedule.Next(time.Unix(eventTime, 0).UTC().Add(-time.Second))
		for !t.IsZero() && t.Unix() <= endsOn {
			times = append(times, t.Unix())
			t = cronSchedule.Next(t)
		}
		return times, nil
	}
	return nil, fmt.Errorf("unknown schedule type '%s'", schedule.ScheduleType)
}

func isInWindow(schedule studyTypes.Schedule, scheduledOn int64) bool {
	if schedule.StartsOn != 0 && scheduledOn < schedule.StartsOn {
		return false
	}
	if schedule.EndsOn != 0 && scheduledOn > schedule.EndsOn {
		return false
	}
	return true
}
