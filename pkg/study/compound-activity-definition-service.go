package study

import (
	"fmt"

	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

type CompoundActivityDefinitionStore interface {
	CreateCompoundActivityDefinition(instanceID string, def *studyTypes.CompoundActivityDefinition) error
	GetCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (*studyTypes.CompoundActivityDefinition, error)
	GetAllCompoundActivityDefinitions(instanceID string, studyKey string) ([]studyTypes.CompoundActivityDefinition, error)
	UpdateCompoundActivityDefinition(instanceID string, def *studyTypes.CompoundActivityDefinition) error
	DeleteCompoundActivityDefinition(instanceID string, studyKey string, taskID string) error
}

// CompoundActivityDefinitionService manages the named templates that
// reference-only compound activities are expanded from.
type CompoundActivityDefinitionService struct {
	store CompoundActivityDefinitionStore
	plans SchedulePlanStore
}

func NewCompoundActivityDefinitionService(store CompoundActivityDefinitionStore, plans SchedulePlanStore) *CompoundActivityDefinitionService {
	return &CompoundActivityDefinitionService{
		store: store,
		plans: plans,
	}
}

func (s *CompoundActivityDefinitionService) CreateCompoundActivityDefinition(instanceID string, studyKey string, def studyTypes.CompoundActivityDefinition) (*studyTypes.CompoundActivityDefinition, error) {
	// Force the study scope, clients cannot create definitions elsewhere.
	def.StudyKey = studyKey
	if err := validateCompoundActivityDefinition(&def); err != nil {
		return nil, err
	}
	if err := s.store.CreateCompoundActivityDefinition(instanceID, &def); err != nil {
		return nil, fmt.Errorf("failed to create compound activity definition: %w", err)
	}
	return &def, nil
}

func (s *CompoundActivityDefinitionService) GetCompoundActivityDefinition(instanceID string, studyKey string, taskID string) (*studyTypes.CompoundActivityDefinition, error) {
	if taskID == "" {
		return nil, studyTypes.BadInputf("taskID must be specified")
	}
	return s.store.GetCompoundActivityDefinition(instanceID, studyKey, taskID)
}

func (s *CompoundActivityDefinitionService) GetAllCompoundActivityDefinitions(instanceID string, studyKey string) ([]studyTypes.CompoundActivityDefinition, error) {
	return s.store.GetAllCompoundActivityDefinitions(instanceID, studyKey)
}

func (s *CompoundActivityDefinitionService) UpdateCompoundActivityDefinition(instanceID string, studyKey string, taskID string, def studyTypes.CompoundActivityDefinition) (*studyTypes.CompoundActivityDefinition, error) {
	if taskID == "" {
		return nil, studyTypes.BadInputf("taskID must be specified")
	}
	existing, err := s.store.GetCompoundActivityDefinition(instanceID, studyKey, taskID)
	if err != nil {
		return nil, err
	}

	def.ID = existing.ID
	def.StudyKey = studyKey
	def.TaskID = taskID
	if err := validateCompoundActivityDefinition(&def); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCompoundActivityDefinition(instanceID, &def); err != nil {
		return nil, fmt.Errorf("failed to update compound activity definition: %w", err)
	}
	return &def, nil
}

// DeleteCompoundActivityDefinition removes a definition, unless a schedule
// plan of the study still references it.
func (s *CompoundActivityDefinitionService) DeleteCompoundActivityDefinition(instanceID string, studyKey string, taskID string) error {
	if taskID == "" {
		return studyTypes.BadInputf("taskID must be specified")
	}

	plans, err := s.plans.GetSchedulePlans(instanceID, studyKey)
	if err != nil {
		return fmt.Errorf("failed to check schedule plan references: %w", err)
	}
	for _, plan := range plans {
		for _, schedule := range plan.Strategy.AllSchedules() {
			for _, activity := range schedule.Activities {
				if activity.ActivityType == studyTypes.ACTIVITY_TYPE_COMPOUND && activity.Compound.TaskIdentifier == taskID {
					return studyTypes.BadInputf("compound activity definition '%s' is referenced by schedule plan '%s'", taskID, plan.Guid)
				}
			}
		}
	}

	return s.store.DeleteCompoundActivityDefinition(instanceID, studyKey, taskID)
}
