package scheduler

import (
	"testing"
	"time"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

const dayInSeconds = int64(24 * 60 * 60)

func testPlan() studyTypes.SchedulePlan {
	return studyTypes.SchedulePlan{
		Guid:     "plan-1",
		StudyKey: "testStudy",
		Label:    "Test plan",
	}
}

func testContext(enrolledOn int64, endsOn int64) studyTypes.ScheduleContext {
	return studyTypes.ScheduleContext{
		InstanceID: "testInstance",
		StudyKey:   "testStudy",
		HealthCode: "hc-1",
		Now:        enrolledOn,
		EndsOn:     endsOn,
		Events: map[string]int64{
			studyTypes.ACTIVITY_EVENT_ENROLLMENT: enrolledOn,
		},
	}
}

func taskActivity(guid string, identifier string) studyTypes.Activity {
	activity := studyTypes.NewTaskActivity("Test task", studyTypes.TaskReference{Identifier: identifier})
	activity.Guid = guid
	return activity
}

func TestGetScheduledActivitiesOnce(t *testing.T) {
	enrolledOn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()

	schedule := studyTypes.Schedule{
		ScheduleType: studyTypes.SCHEDULE_TYPE_ONCE,
		Activities:   []studyTypes.Activity{taskActivity("act-1", "tapping")},
	}

	t.Run("for event inside the window", func(t *testing.T) {
		activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(activities) != 1 {
			t.Errorf("unexpected number of activities: %d", len(activities))
			return
		}
		if activities[0].ScheduledOn != enrolledOn {
			t.Errorf("unexpected scheduledOn: %d", activities[0].ScheduledOn)
		}
		if activities[0].HidesOn != studyTypes.MAX_HIDES_ON {
			t.Errorf("unexpected hidesOn: %d", activities[0].HidesOn)
		}
	})

	t.Run("for missing triggering event", func(t *testing.T) {
		ctx := testContext(enrolledOn, enrolledOn+2*dayInSeconds)
		ctx.Events = map[string]int64{}
		activities, err := GetScheduledActivities(testPlan(), schedule, ctx)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(activities) != 0 {
			t.Errorf("unexpected number of activities: %d", len(activities))
		}
	})

	t.Run("with delay", func(t *testing.T) {
		delayed := schedule
		delayed.Delay = "24h"
		activities, err := GetScheduledActivities(testPlan(), delayed, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(activities) != 1 {
			t.Errorf("unexpected number of activities: %d", len(activities))
			return
		}
		if activities[0].ScheduledOn != enrolledOn+dayInSeconds {
			t.Errorf("unexpected scheduledOn: %d", activities[0].ScheduledOn)
		}
	})

	t.Run("with event time after window end", func(t *testing.T) {
		activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn-1))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(activities) != 0 {
			t.Errorf("unexpected number of activities: %d", len(activities))
		}
	})
}

func TestGetScheduledActivitiesInterval(t *testing.T) {
	enrolledOn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()

	schedule := studyTypes.Schedule{
		ScheduleType: studyTypes.SCHEDULE_TYPE_INTERVAL,
		Interval:     "24h",
		Expires:      "24h",
		Activities:   []studyTypes.Activity{taskActivity("act-1", "tapping")},
	}

	t.Run("daily schedule over a two day window", func(t *testing.T) {
		activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		// Window end is inclusive: day 0, day 1 and day 2.
		if len(activities) != 3 {
			t.Errorf("unexpected number of activities: %d", len(activities))
			return
		}
		for i, activity := range activities {
			expectedOn := enrolledOn + int64(i)*dayInSeconds
			if activity.ScheduledOn != expectedOn {
				t.Errorf("activity %d: unexpected scheduledOn: %d", i, activity.ScheduledOn)
			}
			if activity.ExpiresOn != expectedOn+dayInSeconds {
				t.Errorf("activity %d: unexpected expiresOn: %d", i, activity.ExpiresOn)
			}
		}
	})

	t.Run("run keys are distinct per firing", func(t *testing.T) {
		activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		seen := map[string]bool{}
		for _, activity := range activities {
			if seen[activity.RunKey] {
				t.Errorf("duplicated run key: %s", activity.RunKey)
			}
			seen[activity.RunKey] = true
		}
	})

	t.Run("occurrences expired before now are skipped", func(t *testing.T) {
		ctx := testContext(enrolledOn, enrolledOn+3*dayInSeconds)
		ctx.Now = enrolledOn + 2*dayInSeconds
		activities, err := GetScheduledActivities(testPlan(), schedule, ctx)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		// Day 0 expired at day 1, before now. Day 1 expires exactly at now
		// and is skipped too. Days 2 and 3 remain.
		if len(activities) != 2 {
			t.Errorf("unexpected number of activities: %d", len(activities))
			return
		}
		if activities[0].ScheduledOn != enrolledOn+2*dayInSeconds {
			t.Errorf("unexpected first scheduledOn: %d", activities[0].ScheduledOn)
		}
	})

	t.Run("repeated evaluation is deterministic", func(t *testing.T) {
		first, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		second, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(first) != len(second) {
			t.Errorf("different numbers of activities: %d vs %d", len(first), len(second))
			return
		}
		for i := range first {
			if first[i].Guid != second[i].Guid || first[i].RunKey != second[i].RunKey {
				t.Errorf("activity %d differs between passes", i)
			}
		}
	})

	t.Run("with invalid interval", func(t *testing.T) {
		broken := schedule
		broken.Interval = "daily"
		_, err := GetScheduledActivities(testPlan(), broken, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestGetScheduledActivitiesCron(t *testing.T) {
	enrolledOn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()

	schedule := studyTypes.Schedule{
		ScheduleType: studyTypes.SCHEDULE_TYPE_CRON,
		CronTrigger:  "0 9 * * *",
		Activities:   []studyTypes.Activity{taskActivity("act-1", "tapping")},
	}

	t.Run("daily at nine", func(t *testing.T) {
		activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		// Enrollment at 10:00 Mar 1, window until 10:00 Mar 3: fires at
		// 09:00 on Mar 2 and Mar 3.
		if len(activities) != 2 {
			t.Errorf("unexpected number of activities: %d", len(activities))
			return
		}
		expectedFirst := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC).Unix()
		if activities[0].ScheduledOn != expectedFirst {
			t.Errorf("unexpected first scheduledOn: %d", activities[0].ScheduledOn)
		}
	})

	t.Run("with invalid cron expression", func(t *testing.T) {
		broken := schedule
		broken.CronTrigger = "not a cron"
		_, err := GetScheduledActivities(testPlan(), broken, testContext(enrolledOn, enrolledOn+2*dayInSeconds))
		if err == nil {
			t.Error("expected error")
		}
	})
}

func TestEventIDAlternatives(t *testing.T) {
	enrolledOn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()
	customOn := enrolledOn + dayInSeconds

	schedule := studyTypes.Schedule{
		ScheduleType: studyTypes.SCHEDULE_TYPE_ONCE,
		EventID:      "activity:base:finished, enrollment",
		Activities:   []studyTypes.Activity{taskActivity("act-1", "tapping")},
	}

	t.Run("first listed event wins when present", func(t *testing.T) {
		ctx := testContext(enrolledOn, enrolledOn+3*dayInSeconds)
		ctx.Events["activity:base:finished"] = customOn
		activities, err := GetScheduledActivities(testPlan(), schedule, ctx)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(activities) != 1 || activities[0].ScheduledOn != customOn {
			t.Errorf("unexpected activities: %+v", activities)
		}
	})

	t.Run("falls back to later alternatives", func(t *testing.T) {
		activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+3*dayInSeconds))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(activities) != 1 || activities[0].ScheduledOn != enrolledOn {
			t.Errorf("unexpected activities: %+v", activities)
		}
	})
}

func TestScheduleWindow(t *testing.T) {
	enrolledOn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()

	schedule := studyTypes.Schedule{
		ScheduleType: studyTypes.SCHEDULE_TYPE_INTERVAL,
		Interval:     "24h",
		StartsOn:     enrolledOn + dayInSeconds,
		EndsOn:       enrolledOn + 2*dayInSeconds,
		Activities:   []studyTypes.Activity{taskActivity("act-1", "tapping")},
	}

	activities, err := GetScheduledActivities(testPlan(), schedule, testContext(enrolledOn, enrolledOn+5*dayInSeconds))
	if err != nil {
		t.Errorf("unexpected error: %s", err.Error())
		return
	}
	// Day 0 is before startsOn, days 3+ after endsOn.
	if len(activities) != 2 {
		t.Errorf("unexpected number of activities: %d", len(activities))
		return
	}
	if activities[0].ScheduledOn != enrolledOn+dayInSeconds {
		t.Errorf("unexpected first scheduledOn: %d", activities[0].ScheduledOn)
	}
}

func TestRunKeyAndOccurrenceGuid(t *testing.T) {
	scheduledOn := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()

	if got := RunKey("plan-1", scheduledOn); got != "plan-1:2024-03-01T10:00:00Z" {
		t.Errorf("unexpected run key: %s", got)
	}
	if got := OccurrenceGuid("act-1", scheduledOn); got != "act-1:2024-03-01T10:00:00Z" {
		t.Errorf("unexpected occurrence guid: %s", got)
	}
}
