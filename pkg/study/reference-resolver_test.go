package study

import (
	"testing"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

type compoundActivityLookupMock struct {
	definitions map[string]studyTypes.CompoundActivityDefinition
	callCount   int
}

func (m *compoundActivityLookupMock) GetCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (*studyTypes.CompoundActivityDefinition, error) {
	m.callCount++
	def, ok := m.definitions[taskID]
	if !ok {
		return nil, studyTypes.ErrNotFound
	}
	return &def, nil
}

type surveyLookupMock struct {
	surveys   map[string]studyTypes.Survey
	callCount int
}

func (m *surveyLookupMock) GetMostRecentlyPublishedSurvey(instanceID string, studyKey string, surveyGuid string) (*studyTypes.Survey, error) {
	m.callCount++
	survey, ok := m.surveys[surveyGuid]
	if !ok {
		return nil, studyTypes.ErrNotFound
	}
	return &survey, nil
}

type schemaLookupMock struct {
	schemas   map[string]studyTypes.UploadSchema
	callCount int
}

func (m *schemaLookupMock) GetLatestSchemaRevisionForClient(instanceID string, studyKey string, schemaID string, clientInfo studyTypes.ClientInfo) (*studyTypes.UploadSchema, error) {
	m.callCount++
	schema, ok := m.schemas[schemaID]
	if !ok {
		return nil, studyTypes.ErrNotFound
	}
	return &schema, nil
}

func newTestResolver() (*ReferenceResolver, *compoundActivityLookupMock, *surveyLookupMock, *schemaLookupMock) {
	compoundActivities := &compoundActivityLookupMock{definitions: map[string]studyTypes.CompoundActivityDefinition{
		"combined-check": {
			StudyKey: "testStudy",
			TaskID:   "combined-check",
			SchemaList: []studyTypes.SchemaReference{
				{ID: "tapping-schema"},
			},
			SurveyList: []studyTypes.SurveyReference{
				{Guid: "mood-survey"},
			},
		},
	}}
	surveys := &surveyLookupMock{surveys: map[string]studyTypes.Survey{
		"mood-survey": {
			Guid:       "mood-survey",
			Identifier: "mood",
			Published:  1700000000,
		},
	}}
	schemas := &schemaLookupMock{schemas: map[string]studyTypes.UploadSchema{
		"tapping-schema": {
			SchemaID: "tapping-schema",
			Revision: 3,
		},
	}}
	return NewReferenceResolver(compoundActivities, surveys, schemas), compoundActivities, surveys, schemas
}

func newTestResolutionContext() *ResolutionContext {
	return NewResolutionContext("testInstance", "testStudy", studyTypes.ClientInfo{})
}

func TestResolveSurveyActivity(t *testing.T) {
	resolver, _, surveys, _ := newTestResolver()

	t.Run("for an unpinned reference", func(t *testing.T) {
		activity := studyTypes.NewSurveyActivity("Mood", studyTypes.SurveyReference{Guid: "mood-survey"})
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if !resolved.IsResolved() {
			t.Error("activity should be resolved")
			return
		}
		if resolved.Survey.Identifier != "mood" || resolved.Survey.CreatedOn != 1700000000 {
			t.Errorf("unexpected survey reference: %+v", resolved.Survey)
		}
	})

	t.Run("for an already pinned reference", func(t *testing.T) {
		pinned := studyTypes.SurveyReference{Guid: "mood-survey", Identifier: "mood", CreatedOn: 1600000000}
		before := surveys.callCount
		resolved := resolver.Resolve(newTestResolutionContext(), studyTypes.NewSurveyActivity("Mood", pinned))
		if surveys.callCount != before {
			t.Error("pinned reference should not trigger a lookup")
		}
		if resolved.Survey.CreatedOn != 1600000000 {
			t.Errorf("pinned version should be kept, got %d", resolved.Survey.CreatedOn)
		}
	})

	t.Run("for a missing survey", func(t *testing.T) {
		activity := studyTypes.NewSurveyActivity("Gone", studyTypes.SurveyReference{Guid: "missing"})
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if resolved.IsResolved() {
			t.Error("activity should stay unresolved")
		}
	})
}

func TestResolveTaskActivity(t *testing.T) {
	resolver, _, _, schemas := newTestResolver()

	t.Run("with an open schema reference", func(t *testing.T) {
		activity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{
			Identifier: "tapping",
			Schema:     &studyTypes.SchemaReference{ID: "tapping-schema"},
		})
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if !resolved.IsResolved() {
			t.Error("activity should be resolved")
			return
		}
		if resolved.Task.Schema.Revision != 3 {
			t.Errorf("unexpected schema revision: %d", resolved.Task.Schema.Revision)
		}
	})

	t.Run("without a schema reference", func(t *testing.T) {
		before := schemas.callCount
		activity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{Identifier: "tapping"})
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if schemas.callCount != before {
			t.Error("schema lookup should not be called")
		}
		if !resolved.IsResolved() {
			t.Error("schema-less task is already resolved")
		}
	})

	t.Run("with a missing schema", func(t *testing.T) {
		activity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{
			Identifier: "tapping",
			Schema:     &studyTypes.SchemaReference{ID: "missing"},
		})
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if resolved.IsResolved() {
			t.Error("activity should stay unresolved")
		}
	})
}

func TestResolveCompoundActivity(t *testing.T) {
	t.Run("reference expanded from its definition", func(t *testing.T) {
		resolver, compoundActivities, _, _ := newTestResolver()
		activity := studyTypes.NewCompoundActivityEntry("Check", studyTypes.NewCompoundActivityReference("combined-check"))
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if compoundActivities.callCount != 1 {
			t.Errorf("unexpected number of definition lookups: %d", compoundActivities.callCount)
		}
		if !resolved.IsResolved() {
			t.Error("activity should be resolved")
			return
		}
		if len(resolved.Compound.SchemaList) != 1 || resolved.Compound.SchemaList[0].Revision != 3 {
			t.Errorf("unexpected schema list: %+v", resolved.Compound.SchemaList)
		}
		if len(resolved.Compound.SurveyList) != 1 || resolved.Compound.SurveyList[0].Identifier != "mood" {
			t.Errorf("unexpected survey list: %+v", resolved.Compound.SurveyList)
		}
	})

	t.Run("explicit lists never consult the definition", func(t *testing.T) {
		resolver, compoundActivities, _, _ := newTestResolver()
		activity := studyTypes.NewCompoundActivityEntry("Check", studyTypes.NewCompoundActivity(
			"combined-check",
			[]studyTypes.SchemaReference{{ID: "tapping-schema"}},
			nil,
		))
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if compoundActivities.callCount != 0 {
			t.Errorf("definition lookup should not be called, got %d calls", compoundActivities.callCount)
		}
		if !resolved.IsResolved() {
			t.Error("activity should be resolved")
		}
	})

	t.Run("missing definition leaves the activity unresolved", func(t *testing.T) {
		resolver, _, _, _ := newTestResolver()
		activity := studyTypes.NewCompoundActivityEntry("Check", studyTypes.NewCompoundActivityReference("missing"))
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if resolved.IsResolved() {
			t.Error("activity should stay unresolved")
		}
	})

	t.Run("failed entry lookup leaves the compound unresolved", func(t *testing.T) {
		resolver, _, surveys, _ := newTestResolver()
		delete(surveys.surveys, "mood-survey")
		activity := studyTypes.NewCompoundActivityEntry("Check", studyTypes.NewCompoundActivityReference("combined-check"))
		resolved := resolver.Resolve(newTestResolutionContext(), activity)
		if resolved.IsResolved() {
			t.Error("activity should stay unresolved")
		}
		// The resolvable entries still got resolved.
		if len(resolved.Compound.SchemaList) != 1 || resolved.Compound.SchemaList[0].Revision != 3 {
			t.Errorf("unexpected schema list: %+v", resolved.Compound.SchemaList)
		}
	})
}

func TestResolutionCaching(t *testing.T) {
	t.Run("repeated lookups within one pass hit the backend once", func(t *testing.T) {
		resolver, _, surveys, schemas := newTestResolver()
		rc := newTestResolutionContext()
		surveyActivity := studyTypes.NewSurveyActivity("Mood", studyTypes.SurveyReference{Guid: "mood-survey"})
		taskActivity := studyTypes.NewTaskActivity("Tapping", studyTypes.TaskReference{
			Identifier: "tapping",
			Schema:     &studyTypes.SchemaReference{ID: "tapping-schema"},
		})

		for i := 0; i < 3; i++ {
			resolver.Resolve(rc, surveyActivity)
			resolver.Resolve(rc, taskActivity)
		}
		if surveys.callCount != 1 {
			t.Errorf("unexpected number of survey lookups: %d", surveys.callCount)
		}
		if schemas.callCount != 1 {
			t.Errorf("unexpected number of schema lookups: %d", schemas.callCount)
		}
	})

	t.Run("a fresh pass looks up again", func(t *testing.T) {
		resolver, _, surveys, _ := newTestResolver()
		surveyActivity := studyTypes.NewSurveyActivity("Mood", studyTypes.SurveyReference{Guid: "mood-survey"})
		resolver.Resolve(newTestResolutionContext(), surveyActivity)
		resolver.Resolve(newTestResolutionContext(), surveyActivity)
		if surveys.callCount != 2 {
			t.Errorf("unexpected number of survey lookups: %d", surveys.callCount)
		}
	})
}
