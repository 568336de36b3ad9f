package study

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

type SchedulePlanStore interface {
	GetSchedulePlans(instanceID string, studyKey string) ([]studyTypes.SchedulePlan, error)
	GetSchedulePlan(instanceID string, studyKey string, planGuid string) (*studyTypes.SchedulePlan, error)
	CreateSchedulePlan(instanceID string, plan *studyTypes.SchedulePlan) error
	UpdateSchedulePlan(instanceID string, plan *studyTypes.SchedulePlan) error
	DeleteSchedulePlan(instanceID string, studyKey string, planGuid string) error
}

type StudyInfoLookup interface {
	GetStudyInfo(instanceID string, studyKey string) (*studyTypes.StudyInfo, error)
}

type SurveyVersionLookup interface {
	GetSurveyVersion(instanceID string, studyKey string, surveyGuid string, createdOn int64) (*studyTypes.Survey, error)
}

// SchedulePlanService manages schedule plan templates. It owns two rules the
// rest of the system depends on: template activity guids stay attached to the
// same logical activity across edits (scheduled activity identity derives
// from them), and survey references are pinned at plan-write time so
// generated schedules stay reproducible after a survey is republished.
type SchedulePlanService struct {
	store      SchedulePlanStore
	studyInfos StudyInfoLookup
	surveys    SurveyVersionLookup
	resolver   *ReferenceResolver
}

func NewSchedulePlanService(store SchedulePlanStore, studyInfos StudyInfoLookup, surveys SurveyVersionLookup, resolver *ReferenceResolver) *SchedulePlanService {
	return &SchedulePlanService{
		store:      store,
		studyInfos: studyInfos,
		surveys:    surveys,
		resolver:   resolver,
	}
}

func (s *SchedulePlanService) GetSchedulePlans(instanceID string, studyKey string) ([]studyTypes.SchedulePlan, error) {
	return s.store.GetSchedulePlans(instanceID, studyKey)
}

func (s *SchedulePlanService) GetSchedulePlan(instanceID string, studyKey string, planGuid string) (*studyTypes.SchedulePlan, error) {
	return s.store.GetSchedulePlan(instanceID, studyKey, planGuid)
}

// CreateSchedulePlan persists a new plan. Client-submitted identities are
// never trusted on create: the plan gets a fresh guid, the version restarts
// at 1 and every template activity gets a fresh guid.
func (s *SchedulePlanService) CreateSchedulePlan(instanceID string, studyKey string, plan studyTypes.SchedulePlan) (*studyTypes.SchedulePlan, error) {
	plan.StudyKey = studyKey
	plan.Guid = uuid.NewString()
	plan.Version = 1
	for _, schedule := range plan.Strategy.AllSchedules() {
		for i := range schedule.Activities {
			schedule.Activities[i].Guid = uuid.NewString()
		}
	}

	if err := s.validatePlan(instanceID, studyKey, &plan); err != nil {
		return nil, err
	}
	s.pinSurveyReferences(instanceID, studyKey, &plan)

	if err := s.store.CreateSchedulePlan(instanceID, &plan); err != nil {
		return nil, fmt.Errorf("failed to create schedule plan: %w", err)
	}
	return &plan, nil
}

// UpdateSchedulePlan replaces an existing plan's template. Incoming template
// activities keep their guid only when it already belongs to the stored
// plan; unknown or absent guids are replaced with fresh ones, so clients can
// neither invent nor duplicate identity, and genuinely new activities are
// distinguishable from edited ones.
func (s *SchedulePlanService) UpdateSchedulePlan(instanceID string, studyKey string, plan studyTypes.SchedulePlan) (*studyTypes.SchedulePlan, error) {
	existing, err := s.store.GetSchedulePlan(instanceID, studyKey, plan.Guid)
	if err != nil {
		return nil, err
	}

	knownGuids := map[string]bool{}
	for _, schedule := range existing.Strategy.AllSchedules() {
		for _, activity := range schedule.Activities {
			knownGuids[activity.Guid] = true
		}
	}
	for _, schedule := range plan.Strategy.AllSchedules() {
		for i := range schedule.Activities {
			if !knownGuids[schedule.Activities[i].Guid] {
				schedule.Activities[i].Guid = uuid.NewString()
			}
		}
	}

	plan.StudyKey = studyKey
	plan.ID = existing.ID
	plan.Version = existing.Version + 1

	if err := s.validatePlan(instanceID, studyKey, &plan); err != nil {
		return nil, err
	}
	s.pinSurveyReferences(instanceID, studyKey, &plan)

	if err := s.store.UpdateSchedulePlan(instanceID, &plan); err != nil {
		return nil, fmt.Errorf("failed to update schedule plan: %w", err)
	}
	return &plan, nil
}

func (s *SchedulePlanService) DeleteSchedulePlan(instanceID string, studyKey string, planGuid string) error {
	if planGuid == "" {
		return studyTypes.BadInputf("planGuid must be specified")
	}
	return s.store.DeleteSchedulePlan(instanceID, studyKey, planGuid)
}

// pinSurveyReferences resolves the survey references of every template
// activity. Unpinned references are pinned to the currently published
// version; already pinned ones get their identifier refreshed from storage,
// because the identifier the client submitted may be mismatched. Failed
// lookups keep the reference unresolved; scheduling resolves it again at
// materialization time.
func (s *SchedulePlanService) pinSurveyReferences(instanceID string, studyKey string, plan *studyTypes.SchedulePlan) {
	rc := NewResolutionContext(instanceID, studyKey, studyTypes.ClientInfo{})
	for _, schedule := range plan.Strategy.AllSchedules() {
		for i := range schedule.Activities {
			activity := &schedule.Activities[i]
			if activity.ActivityType != studyTypes.ACTIVITY_TYPE_SURVEY {
				continue
			}
			surveyRef := *activity.Survey
			if surveyRef.CreatedOn != 0 {
				survey, err := s.surveys.GetSurveyVersion(instanceID, studyKey, surveyRef.Guid, surveyRef.CreatedOn)
				if err != nil {
					slog.Error("schedule plan references missing survey version", slog.String("surveyGuid", surveyRef.Guid), slog.String("studyKey", studyKey), slog.String("error", err.Error()))
					continue
				}
				pinned := survey.Reference()
				activity.Survey = &pinned
				continue
			}
			surveyRef.Identifier = ""
			if resolved := s.resolver.ResolveSurveyReference(rc, surveyRef); resolved != nil {
				activity.Survey = resolved
			}
		}
	}
}
