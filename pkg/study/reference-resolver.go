package study

import (
	"log/slog"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

// Activity references can be abstract: a survey reference without a pinned
// version, a task whose schema revision is open, or a compound activity that
// only names its definition. Before a scheduled activity is persisted, every
// such reference is resolved: surveys to the most recently published version,
// schemas to the latest revision the requesting client is admitted to, and
// reference-only compound activities to their expanded definition.
//
// Resolution is read-only and memoized per pass through a caller-owned
// ResolutionContext, so concurrent passes never share mutable state.

type CompoundActivityLookup interface {
	GetCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (*studyTypes.CompoundActivityDefinition, error)
}

type SurveyLookup interface {
	GetMostRecentlyPublishedSurvey(instanceID string, studyKey string, surveyGuid string) (*studyTypes.Survey, error)
}

type SchemaLookup interface {
	GetLatestSchemaRevisionForClient(instanceID string, studyKey string, schemaID string, clientInfo studyTypes.ClientInfo) (*studyTypes.UploadSchema, error)
}

type ReferenceResolver struct {
	compoundActivities CompoundActivityLookup
	surveys            SurveyLookup
	schemas            SchemaLookup
}

func NewReferenceResolver(
	compoundActivities CompoundActivityLookup,
	surveys SurveyLookup,
	schemas SchemaLookup,
) *ReferenceResolver {
	return &ReferenceResolver{
		compoundActivities: compoundActivities,
		surveys:            surveys,
		schemas:            schemas,
	}
}

// ResolutionContext scopes the resolution caches to one pass. Repeated
// lookups of the same unresolved reference within a pass return the same
// resolved value; consistency across passes is not guaranteed.
type ResolutionContext struct {
	InstanceID string
	StudyKey   string
	ClientInfo studyTypes.ClientInfo

	compoundActivityCache map[string]*studyTypes.CompoundActivity
	schemaCache           map[string]*studyTypes.SchemaReference
	surveyCache           map[string]*studyTypes.SurveyReference
}

func NewResolutionContext(instanceID string, studyKey string, clientInfo studyTypes.ClientInfo) *ResolutionContext {
	return &ResolutionContext{
		InstanceID:            instanceID,
		StudyKey:              studyKey,
		ClientInfo:            clientInfo,
		compoundActivityCache: map[string]*studyTypes.CompoundActivity{},
		schemaCache:           map[string]*studyTypes.SchemaReference{},
		surveyCache:           map[string]*studyTypes.SurveyReference{},
	}
}

// Resolve returns the activity with all content pointers pinned. Resolving an
// already resolved activity is a no-op. Missing content is never fatal: the
// affected reference stays unresolved, is logged, and the caller decides what
// an unresolved activity means (for scheduling: not eligible for persistence
// in this pass).
func (r *ReferenceResolver) Resolve(rc *ResolutionContext, activity studyTypes.Activity) studyTypes.Activity {
	switch activity.ActivityType {
	case studyTypes.ACTIVITY_TYPE_COMPOUND:
		if resolved := r.resolveCompoundActivity(rc, *activity.Compound); resolved != nil {
			activity.Compound = resolved
		}
	case studyTypes.ACTIVITY_TYPE_SURVEY:
		if resolved := r.ResolveSurveyReference(rc, *activity.Survey); resolved != nil {
			activity.Survey = resolved
		}
	case studyTypes.ACTIVITY_TYPE_TASK:
		if activity.Task.Schema != nil {
			if resolved := r.resolveSchemaReference(rc, *activity.Task.Schema); resolved != nil {
				task := *activity.Task
				task.Schema = resolved
				activity.Task = &task
			}
		}
	}
	return activity
}

func (r *ReferenceResolver) resolveCompoundActivity(rc *ResolutionContext, compoundActivity studyTypes.CompoundActivity) *studyTypes.CompoundActivity {
	taskID := compoundActivity.TaskIdentifier
	if cached, ok := rc.compoundActivityCache[taskID]; ok {
		return cached
	}

	working := compoundActivity
	if compoundActivity.IsReference {
		// Expand the reference from its definition before resolving entries.
		def, err := r.compoundActivities.GetCompoundActivityDefinition(rc.InstanceID, rc.StudyKey, taskID)
		if err != nil {
			slog.Error("schedule references missing compound activity definition", slog.String("taskID", taskID), slog.String("studyKey", rc.StudyKey), slog.String("error", err.Error()))
			return nil
		}
		working = def.CompoundActivity()
	}

	resolved := r.resolveCompoundActivityLists(rc, working)
	rc.compoundActivityCache[taskID] = resolved
	return resolved
}

// resolveCompoundActivityLists resolves every entry of the working lists
// independently. An entry whose lookup fails keeps its unresolved form, which
// leaves the whole compound activity partially unresolved and therefore not
// eligible for persistence in this pass.
func (r *ReferenceResolver) resolveCompoundActivityLists(rc *ResolutionContext, compoundActivity studyTypes.CompoundActivity) *studyTypes.CompoundActivity {
	schemaList := []studyTypes.SchemaReference{}
	for _, schemaRef := range compoundActivity.SchemaList {
		if resolved := r.resolveSchemaReference(rc, schemaRef); resolved != nil {
			schemaRef = *resolved
		}
		schemaList = append(schemaList, schemaRef)
	}

	surveyList := []studyTypes.SurveyReference{}
	for _, surveyRef := range compoundActivity.SurveyList {
		if resolved := r.ResolveSurveyReference(rc, surveyRef); resolved != nil {
			surveyRef = *resolved
		}
		surveyList = append(surveyList, surveyRef)
	}

	resolved := studyTypes.NewCompoundActivity(compoundActivity.TaskIdentifier, schemaList, surveyList)
	return &resolved
}

func (r *ReferenceResolver) resolveSchemaReference(rc *ResolutionContext, schemaRef studyTypes.SchemaReference) *studyTypes.SchemaReference {
	if schemaRef.IsResolved() {
		return &schemaRef
	}

	if cached, ok := rc.schemaCache[schemaRef.ID]; ok {
		return cached
	}

	schema, err := r.schemas.GetLatestSchemaRevisionForClient(rc.InstanceID, rc.StudyKey, schemaRef.ID, rc.ClientInfo)
	if err != nil {
		slog.Error("schedule references missing upload schema", slog.String("schemaID", schemaRef.ID), slog.String("studyKey", rc.StudyKey), slog.String("error", err.Error()))
		return nil
	}
	resolved := schema.Reference()
	rc.schemaCache[schemaRef.ID] = &resolved
	return &resolved
}

// ResolveSurveyReference pins a survey reference to the most recently
// published version. Also used at plan-write time so generated schedules stay
// reproducible when a survey is republished later.
func (r *ReferenceResolver) ResolveSurveyReference(rc *ResolutionContext, surveyRef studyTypes.SurveyReference) *studyTypes.SurveyReference {
	if surveyRef.IsResolved() {
		return &surveyRef
	}

	if cached, ok := rc.surveyCache[surveyRef.Guid]; ok {
		return cached
	}

	survey, err := r.surveys.GetMostRecentlyPublishedSurvey(rc.InstanceID, rc.StudyKey, surveyRef.Guid)
	if err != nil {
		slog.Error("schedule references missing survey", slog.String("surveyGuid", surveyRef.Guid), slog.String("studyKey", rc.StudyKey), slog.String("error", err.Error()))
		return nil
	}
	resolved := survey.Reference()
	rc.surveyCache[surveyRef.Guid] = &resolved
	return &resolved
}
