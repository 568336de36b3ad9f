package study

import (
	"errors"
	"testing"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

type compoundDefinitionStoreMock struct {
	definitions map[string]studyTypes.CompoundActivityDefinition
}

func newCompoundDefinitionStoreMock() *compoundDefinitionStoreMock {
	return &compoundDefinitionStoreMock{definitions: map[string]studyTypes.CompoundActivityDefinition{}}
}

func (m *compoundDefinitionStoreMock) CreateCompoundActivityDefinition(instanceID string, def *studyTypes.CompoundActivityDefinition) error {
	if _, ok := m.definitions[def.TaskID]; ok {
		return errors.New("duplicate taskID")
	}
	m.definitions[def.TaskID] = *def
	return nil
}

func (m *compoundDefinitionStoreMock) GetCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (*studyTypes.CompoundActivityDefinition, error) {
	def, ok := m.definitions[taskID]
	if !ok {
		return nil, studyTypes.ErrNotFound
	}
	return &def, nil
}

func (m *compoundDefinitionStoreMock) GetAllCompoundActivityDefinitions(instanceID string, studyKey string) ([]studyTypes.CompoundActivityDefinition, error) {
	defs := []studyTypes.CompoundActivityDefinition{}
	for _, def := range m.definitions {
		defs = append(defs, def)
	}
	return defs, nil
}

func (m *compoundDefinitionStoreMock) UpdateCompoundActivityDefinition(instanceID string, def *studyTypes.CompoundActivityDefinition) error {
	if _, ok := m.definitions[def.TaskID]; !ok {
		return studyTypes.ErrNotFound
	}
	m.definitions[def.TaskID] = *def
	return nil
}

func (m *compoundDefinitionStoreMock) DeleteCompoundActivityDefinition(instanceID string, studyKey string, taskID string) error {
	if _, ok := m.definitions[taskID]; !ok {
		return studyTypes.ErrNotFound
	}
	delete(m.definitions, taskID)
	return nil
}

func testDefinition(taskID string) studyTypes.CompoundActivityDefinition {
	return studyTypes.CompoundActivityDefinition{
		TaskID:     taskID,
		SchemaList: []studyTypes.SchemaReference{{ID: "tapping-schema"}},
		SurveyList: []studyTypes.SurveyReference{{Guid: "mood-survey"}},
	}
}

func TestCompoundActivityDefinitionService(t *testing.T) {
	newService := func(plans ...studyTypes.SchedulePlan) (*CompoundActivityDefinitionService, *compoundDefinitionStoreMock) {
		store := newCompoundDefinitionStoreMock()
		return NewCompoundActivityDefinitionService(store, &schedulePlanStoreMock{plans: plans}), store
	}

	t.Run("create forces the study scope", func(t *testing.T) {
		service, store := newService()
		def := testDefinition("combined-check")
		def.StudyKey = "otherStudy"

		created, err := service.CreateCompoundActivityDefinition("testInstance", "testStudy", def)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if created.StudyKey != "testStudy" {
			t.Errorf("unexpected study key: %s", created.StudyKey)
		}
		if len(store.definitions) != 1 {
			t.Errorf("definition should be persisted, have %d", len(store.definitions))
		}
	})

	t.Run("create rejects an empty definition", func(t *testing.T) {
		service, _ := newService()
		def := testDefinition("combined-check")
		def.SchemaList = nil
		def.SurveyList = nil

		_, err := service.CreateCompoundActivityDefinition("testInstance", "testStudy", def)
		var badInput studyTypes.BadInputError
		if !errors.As(err, &badInput) {
			t.Errorf("expected bad input error, got: %v", err)
		}
	})

	t.Run("update keeps the taskID from the path", func(t *testing.T) {
		service, store := newService()
		if _, err := service.CreateCompoundActivityDefinition("testInstance", "testStudy", testDefinition("combined-check")); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}

		update := testDefinition("renamed")
		updated, err := service.UpdateCompoundActivityDefinition("testInstance", "testStudy", "combined-check", update)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if updated.TaskID != "combined-check" {
			t.Errorf("unexpected taskID: %s", updated.TaskID)
		}
		if _, ok := store.definitions["renamed"]; ok {
			t.Error("definition should not be renamed")
		}
	})

	t.Run("delete rejects definitions referenced by a plan", func(t *testing.T) {
		activity := studyTypes.NewCompoundActivityEntry("Check", studyTypes.NewCompoundActivityReference("combined-check"))
		activity.Guid = "a-1"
		plan := studyTypes.SchedulePlan{
			Guid:     "plan-1",
			StudyKey: "testStudy",
			Label:    "Check plan",
			Strategy: studyTypes.Strategy{
				Type: studyTypes.STRATEGY_TYPE_SIMPLE,
				Schedule: &studyTypes.Schedule{
					ScheduleType: studyTypes.SCHEDULE_TYPE_ONCE,
					Activities:   []studyTypes.Activity{activity},
				},
			},
		}
		service, store := newService(plan)
		if _, err := service.CreateCompoundActivityDefinition("testInstance", "testStudy", testDefinition("combined-check")); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}

		err := service.DeleteCompoundActivityDefinition("testInstance", "testStudy", "combined-check")
		var badInput studyTypes.BadInputError
		if !errors.As(err, &badInput) {
			t.Errorf("expected bad input error, got: %v", err)
		}
		if len(store.definitions) != 1 {
			t.Error("definition should still exist")
		}
	})

	t.Run("delete removes unreferenced definitions", func(t *testing.T) {
		service, store := newService()
		if _, err := service.CreateCompoundActivityDefinition("testInstance", "testStudy", testDefinition("combined-check")); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}

		if err := service.DeleteCompoundActivityDefinition("testInstance", "testStudy", "combined-check"); err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if len(store.definitions) != 0 {
			t.Errorf("definition should be gone, have %d", len(store.definitions))
		}
	})
}
