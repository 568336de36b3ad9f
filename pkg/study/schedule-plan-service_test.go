package study

import (
	"errors"
	"testing"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

type studyInfoLookupMock struct {
	info *studyTypes.StudyInfo
}

func (m *studyInfoLookupMock) GetStudyInfo(instanceID string, studyKey string) (*studyTypes.StudyInfo, error) {
	if m.info == nil {
		return nil, studyTypes.ErrNotFound
	}
	return m.info, nil
}

type surveyVersionLookupMock struct {
	versions map[string]map[int64]studyTypes.Survey
}

func (m *surveyVersionLookupMock) GetSurveyVersion(instanceID string, studyKey string, surveyGuid string, createdOn int64) (*studyTypes.Survey, error) {
	survey, ok := m.versions[surveyGuid][createdOn]
	if !ok {
		return nil, studyTypes.ErrNotFound
	}
	return &survey, nil
}

type planServiceFixture struct {
	service    *SchedulePlanService
	store      *schedulePlanStoreMock
	studyInfos *studyInfoLookupMock
	versions   *surveyVersionLookupMock
	surveys    *surveyLookupMock
}

func newPlanServiceFixture(plans ...studyTypes.SchedulePlan) *planServiceFixture {
	resolver, _, surveys, _ := newTestResolver()
	fixture := &planServiceFixture{
		store:      &schedulePlanStoreMock{plans: plans},
		studyInfos: &studyInfoLookupMock{},
		versions: &surveyVersionLookupMock{versions: map[string]map[int64]studyTypes.Survey{
			"mood-survey": {
				1600000000: {Guid: "mood-survey", Identifier: "mood-v1", Published: 1600000000},
				1700000000: {Guid: "mood-survey", Identifier: "mood", Published: 1700000000},
			},
		}},
		surveys: surveys,
	}
	fixture.service = NewSchedulePlanService(fixture.store, fixture.studyInfos, fixture.versions, resolver)
	return fixture
}

func submittedTaskPlan() studyTypes.SchedulePlan {
	activity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{Identifier: "tapping"})
	activity.Guid = "client-made-up-guid"
	return studyTypes.SchedulePlan{
		Guid:    "client-made-up-plan-guid",
		Label:   "Daily tapping",
		Version: 42,
		Strategy: studyTypes.Strategy{
			Type: studyTypes.STRATEGY_TYPE_SIMPLE,
			Schedule: &studyTypes.Schedule{
				ScheduleType: studyTypes.SCHEDULE_TYPE_INTERVAL,
				Interval:     "24h",
				Activities:   []studyTypes.Activity{activity},
			},
		},
	}
}

func submittedSurveyPlan(surveyRef studyTypes.SurveyReference) studyTypes.SchedulePlan {
	activity := studyTypes.NewSurveyActivity("Mood", surveyRef)
	return studyTypes.SchedulePlan{
		Label: "Mood survey",
		Strategy: studyTypes.Strategy{
			Type: studyTypes.STRATEGY_TYPE_SIMPLE,
			Schedule: &studyTypes.Schedule{
				ScheduleType: studyTypes.SCHEDULE_TYPE_ONCE,
				Activities:   []studyTypes.Activity{activity},
			},
		},
	}
}

func TestCreateSchedulePlan(t *testing.T) {
	t.Run("client submitted identities are replaced", func(t *testing.T) {
		fixture := newPlanServiceFixture()

		created, err := fixture.service.CreateSchedulePlan("testInstance", "testStudy", submittedTaskPlan())
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if created.Guid == "client-made-up-plan-guid" || created.Guid == "" {
			t.Errorf("plan guid should be freshly generated, got '%s'", created.Guid)
		}
		if created.Version != 1 {
			t.Errorf("unexpected version: %d", created.Version)
		}
		if created.StudyKey != "testStudy" {
			t.Errorf("unexpected study key: %s", created.StudyKey)
		}
		activityGuid := created.Strategy.Schedule.Activities[0].Guid
		if activityGuid == "client-made-up-guid" || activityGuid == "" {
			t.Errorf("activity guid should be freshly generated, got '%s'", activityGuid)
		}
		if len(fixture.store.plans) != 1 {
			t.Errorf("plan should be persisted, have %d", len(fixture.store.plans))
		}
	})

	t.Run("unpinned survey references are pinned to the published version", func(t *testing.T) {
		fixture := newPlanServiceFixture()

		created, err := fixture.service.CreateSchedulePlan("testInstance", "testStudy", submittedSurveyPlan(studyTypes.SurveyReference{Guid: "mood-survey"}))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		ref := created.Strategy.Schedule.Activities[0].Survey
		if !ref.IsResolved() {
			t.Error("survey reference should be pinned")
			return
		}
		if ref.Identifier != "mood" || ref.CreatedOn != 1700000000 {
			t.Errorf("unexpected reference: %+v", ref)
		}
	})

	t.Run("client submitted identifier on an unpinned reference is ignored", func(t *testing.T) {
		fixture := newPlanServiceFixture()

		created, err := fixture.service.CreateSchedulePlan("testInstance", "testStudy", submittedSurveyPlan(studyTypes.SurveyReference{Guid: "mood-survey", Identifier: "made-up"}))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		ref := created.Strategy.Schedule.Activities[0].Survey
		if ref.Identifier != "mood" {
			t.Errorf("unexpected identifier: %s", ref.Identifier)
		}
	})

	t.Run("pinned reference keeps its version, identifier is refreshed", func(t *testing.T) {
		fixture := newPlanServiceFixture()

		created, err := fixture.service.CreateSchedulePlan("testInstance", "testStudy", submittedSurveyPlan(studyTypes.SurveyReference{
			Guid:       "mood-survey",
			Identifier: "made-up",
			CreatedOn:  1600000000,
		}))
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		ref := created.Strategy.Schedule.Activities[0].Survey
		if ref.CreatedOn != 1600000000 {
			t.Errorf("pinned version should be kept, got %d", ref.CreatedOn)
		}
		if ref.Identifier != "mood-v1" {
			t.Errorf("identifier should come from storage, got '%s'", ref.Identifier)
		}
	})

	t.Run("for a plan without label", func(t *testing.T) {
		fixture := newPlanServiceFixture()
		plan := submittedTaskPlan()
		plan.Label = ""

		_, err := fixture.service.CreateSchedulePlan("testInstance", "testStudy", plan)
		var badInput studyTypes.BadInputError
		if !errors.As(err, &badInput) {
			t.Errorf("expected bad input error, got: %v", err)
		}
	})

	t.Run("for a task identifier the study does not know", func(t *testing.T) {
		fixture := newPlanServiceFixture()
		fixture.studyInfos.info = &studyTypes.StudyInfo{
			StudyKey:        "testStudy",
			TaskIdentifiers: []string{"walking"},
		}

		_, err := fixture.service.CreateSchedulePlan("testInstance", "testStudy", submittedTaskPlan())
		var badInput studyTypes.BadInputError
		if !errors.As(err, &badInput) {
			t.Errorf("expected bad input error, got: %v", err)
		}
	})
}

func TestUpdateSchedulePlan(t *testing.T) {
	existingPlan := func() studyTypes.SchedulePlan {
		activity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{Identifier: "tapping"})
		activity.Guid = "known-activity-guid"
		return studyTypes.SchedulePlan{
			Guid:     "plan-1",
			StudyKey: "testStudy",
			Label:    "Daily tapping",
			Version:  3,
			Strategy: studyTypes.Strategy{
				Type: studyTypes.STRATEGY_TYPE_SIMPLE,
				Schedule: &studyTypes.Schedule{
					ScheduleType: studyTypes.SCHEDULE_TYPE_INTERVAL,
					Interval:     "24h",
					Activities:   []studyTypes.Activity{activity},
				},
			},
		}
	}

	t.Run("known activity guids survive the edit", func(t *testing.T) {
		fixture := newPlanServiceFixture(existingPlan())
		update := existingPlan()
		update.Strategy.Schedule.Activities[0].Label = "Tapping v2"

		updated, err := fixture.service.UpdateSchedulePlan("testInstance", "testStudy", update)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if updated.Strategy.Schedule.Activities[0].Guid != "known-activity-guid" {
			t.Errorf("known guid should be kept, got '%s'", updated.Strategy.Schedule.Activities[0].Guid)
		}
		if updated.Version != 4 {
			t.Errorf("unexpected version: %d", updated.Version)
		}
	})

	t.Run("unknown activity guids are replaced", func(t *testing.T) {
		fixture := newPlanServiceFixture(existingPlan())
		update := existingPlan()
		newActivity := studyTypes.NewTaskActivity("Walking", studyTypes.TaskReference{Identifier: "walking"})
		newActivity.Guid = "invented-guid"
		update.Strategy.Schedule.Activities = append(update.Strategy.Schedule.Activities, newActivity)

		updated, err := fixture.service.UpdateSchedulePlan("testInstance", "testStudy", update)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		activities := updated.Strategy.Schedule.Activities
		if activities[0].Guid != "known-activity-guid" {
			t.Errorf("known guid should be kept, got '%s'", activities[0].Guid)
		}
		if activities[1].Guid == "invented-guid" || activities[1].Guid == "" {
			t.Errorf("unknown guid should be replaced, got '%s'", activities[1].Guid)
		}
	})

	t.Run("client submitted version is ignored", func(t *testing.T) {
		fixture := newPlanServiceFixture(existingPlan())
		update := existingPlan()
		update.Version = 99

		updated, err := fixture.service.UpdateSchedulePlan("testInstance", "testStudy", update)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if updated.Version != 4 {
			t.Errorf("unexpected version: %d", updated.Version)
		}
	})

	t.Run("for an unknown plan", func(t *testing.T) {
		fixture := newPlanServiceFixture()
		update := existingPlan()
		update.Guid = "missing"

		_, err := fixture.service.UpdateSchedulePlan("testInstance", "testStudy", update)
		if !errors.Is(err, studyTypes.ErrNotFound) {
			t.Errorf("expected not found error, got: %v", err)
		}
	})
}

func TestDeleteSchedulePlan(t *testing.T) {
	t.Run("for an empty guid", func(t *testing.T) {
		fixture := newPlanServiceFixture()
		err := fixture.service.DeleteSchedulePlan("testInstance", "testStudy", "")
		var badInput studyTypes.BadInputError
		if !errors.As(err, &badInput) {
			t.Errorf("expected bad input error, got: %v", err)
		}
	})

	t.Run("for an existing plan", func(t *testing.T) {
		activity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{Identifier: "tapping"})
		activity.Guid = "a-1"
		fixture := newPlanServiceFixture(studyTypes.SchedulePlan{
			Guid:     "plan-1",
			StudyKey: "testStudy",
			Label:    "Daily tapping",
			Strategy: studyTypes.Strategy{
				Type:     studyTypes.STRATEGY_TYPE_SIMPLE,
				Schedule: &studyTypes.Schedule{ScheduleType: studyTypes.SCHEDULE_TYPE_ONCE, Activities: []studyTypes.Activity{activity}},
			},
		})

		if err := fixture.service.DeleteSchedulePlan("testInstance", "testStudy", "plan-1"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(fixture.store.plans) != 0 {
			t.Errorf("plan should be gone, have %d", len(fixture.store.plans))
		}
	})
}
