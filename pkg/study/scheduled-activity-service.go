package study

import (
	"fmt"
	"log/slog"

	"github.com/cohort-framework/cohort-backend/pkg/study/scheduler"
	studyTypes "github.com/cohort-framework/cohort-backend/pkg/study/types"
)

const DEFAULT_MAX_LOOKAHEAD_DAYS = 15

type ActivityStore interface {
	HasRunKeyOccurred(instanceID string, studyKey string, healthCode string, runKey string) (bool, error)
	SaveActivities(instanceID string, studyKey string, activities []studyTypes.ScheduledActivity) error
	GetActivitiesForParticipant(instanceID string, studyKey string, healthCode string, endsOn int64) ([]studyTypes.ScheduledActivity, error)
	GetActivity(instanceID string, studyKey string, healthCode string, guid string) (*studyTypes.ScheduledActivity, error)
	UpdateActivities(instanceID string, studyKey string, healthCode string, activities []studyTypes.ScheduledActivity) error
	DeleteActivitiesForUser(instanceID string, studyKey string, healthCode string) error
	DeleteActivitiesForSchedulePlan(instanceID string, studyKey string, planGuid string) error
}

type ActivityEventService interface {
	GetActivityEventMap(instanceID string, studyKey string, healthCode string) (map[string]int64, error)
	PublishActivityFinishedEvent(instanceID string, studyKey string, activity studyTypes.ScheduledActivity) error
}

type SurveyResponseService interface {
	CreateSurveyResponse(instanceID string, studyKey string, healthCode string, surveyRef studyTypes.SurveyReference) (*studyTypes.SurveyResponse, error)
	GetSurveyResponse(instanceID string, studyKey string, healthCode string, responseID string) (*studyTypes.SurveyResponse, error)
	UpdateSurveyResponseAnswers(instanceID string, studyKey string, healthCode string, responseID string, answers []studyTypes.SurveyItemResponse) error
}

// ConsentHistory is only consulted to repair legacy timelines that lack the
// enrollment event. Isolated here so the fallback can be removed once no
// historical data needs it anymore.
type ConsentHistory interface {
	GetConsentSignatures(instanceID string, studyKey string, healthCode string) ([]studyTypes.ConsentSignature, error)
}

// ScheduledActivityService materializes schedule plans into per-participant
// scheduled activities: it builds the event timeline, evaluates every plan of
// the study, deduplicates firings by run key against the store, resolves all
// content references of newly materialized activities, persists them, and
// serves a store-authoritative windowed view back.
type ScheduledActivityService struct {
	activityStore    ActivityStore
	activityEvents   ActivityEventService
	schedulePlans    SchedulePlanStore
	surveyResponses  SurveyResponseService
	consents         ConsentHistory
	resolver         *ReferenceResolver
	maxLookaheadDays int
}

func NewScheduledActivityService(
	activityStore ActivityStore,
	activityEvents ActivityEventService,
	schedulePlans SchedulePlanStore,
	surveyResponses SurveyResponseService,
	consents ConsentHistory,
	resolver *ReferenceResolver,
	maxLookaheadDays int,
) *ScheduledActivityService {
	if maxLookaheadDays <= 0 {
		maxLookaheadDays = DEFAULT_MAX_LOOKAHEAD_DAYS
	}
	return &ScheduledActivityService{
		activityStore:    activityStore,
		activityEvents:   activityEvents,
		schedulePlans:    schedulePlans,
		surveyResponses:  surveyResponses,
		consents:         consents,
		resolver:         resolver,
		maxLookaheadDays: maxLookaheadDays,
	}
}

// GetScheduledActivities runs one scheduling pass and returns the
// participant's visible activities up to and including ctx.EndsOn. The
// returned list is read back from the store after persistence, because the
// store carries participant progress and occurrences persisted by earlier,
// wider-window passes that must be filtered to the requested window.
func (s *ScheduledActivityService) GetScheduledActivities(ctx studyTypes.ScheduleContext) ([]studyTypes.ScheduledActivity, error) {
	if err := s.validateWindow(ctx); err != nil {
		return nil, err
	}

	events, err := s.buildEventMap(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Events = events

	candidateRuns, runKeys, err := s.scheduleActivitiesForPlans(ctx)
	if err != nil {
		return nil, err
	}

	saves := s.collectNewRuns(ctx, candidateRuns, runKeys)
	if len(saves) > 0 {
		if err := s.activityStore.SaveActivities(ctx.InstanceID, ctx.StudyKey, saves); err != nil {
			return nil, fmt.Errorf("failed to save scheduled activities: %w", err)
		}
	}

	dbActivities, err := s.activityStore.GetActivitiesForParticipant(ctx.InstanceID, ctx.StudyKey, ctx.HealthCode, ctx.EndsOn)
	if err != nil {
		return nil, fmt.Errorf("failed to read scheduled activities: %w", err)
	}

	visible := []studyTypes.ScheduledActivity{}
	for _, activity := range dbActivities {
		if activity.IsVisible(ctx.Now) {
			visible = append(visible, activity)
		}
	}
	return visible, nil
}

func (s *ScheduledActivityService) validateWindow(ctx studyTypes.ScheduleContext) error {
	if ctx.HealthCode == "" {
		return studyTypes.BadInputf("healthCode must be specified")
	}
	if ctx.EndsOn <= ctx.Now {
		return studyTypes.BadInputf("requested window must end after now")
	}
	maxEndsOn := ctx.Now + int64(s.maxLookaheadDays)*24*60*60
	if ctx.EndsOn > maxEndsOn {
		return studyTypes.BadInputf("requested window must end within %d days", s.maxLookaheadDays)
	}
	return nil
}

// buildEventMap fetches the participant's event timeline. Legacy timelines
// may lack the enrollment event; for those the earliest signed and
// unwithdrawn consent signature stands in, for this pass only. The persisted
// timeline is never modified by the repair.
func (s *ScheduledActivityService) buildEventMap(ctx studyTypes.ScheduleContext) (map[string]int64, error) {
	events, err := s.activityEvents.GetActivityEventMap(ctx.InstanceID, ctx.StudyKey, ctx.HealthCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity events: %w", err)
	}
	if events == nil {
		events = map[string]int64{}
	}
	if _, ok := events[studyTypes.ACTIVITY_EVENT_ENROLLMENT]; ok {
		return events, nil
	}

	signatures, err := s.consents.GetConsentSignatures(ctx.InstanceID, ctx.StudyKey, ctx.HealthCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent signatures: %w", err)
	}
	earliest := int64(0)
	for _, signature := range signatures {
		if signature.WithdrewOn != 0 {
			continue
		}
		if earliest == 0 || signature.SignedOn < earliest {
			earliest = signature.SignedOn
		}
	}
	if earliest == 0 {
		slog.Warn("participant has no enrollment event and no consent signature to repair it from", slog.String("studyKey", ctx.StudyKey))
		return events, nil
	}

	slog.Warn("enrollment event missing, repaired from consent history for this pass", slog.String("studyKey", ctx.StudyKey))
	events[studyTypes.ACTIVITY_EVENT_ENROLLMENT] = earliest
	return events, nil
}

// scheduleActivitiesForPlans evaluates every plan of the study and groups the
// candidates by run key, preserving generation order. Plans are returned by
// the store in a stable order, so the grouping is deterministic within a pass.
func (s *ScheduledActivityService) scheduleActivitiesForPlans(ctx studyTypes.ScheduleContext) (map[string][]studyTypes.ScheduledActivity, []string, error) {
	plans, err := s.schedulePlans.GetSchedulePlans(ctx.InstanceID, ctx.StudyKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load schedule plans: %w", err)
	}

	candidateRuns := map[string][]studyTypes.ScheduledActivity{}
	runKeys := []string{}
	for _, plan := range plans {
		schedule := plan.Strategy.ScheduleFor(ctx.HealthCode, ctx.DataGroups)
		if schedule == nil {
			continue
		}
		candidates, err := scheduler.GetScheduledActivities(plan, *schedule, ctx)
		if err != nil {
			slog.Error("failed to evaluate schedule plan", slog.String("planGuid", plan.Guid), slog.String("studyKey", ctx.StudyKey), slog.String("error", err.Error()))
			continue
		}
		for _, candidate := range candidates {
			if _, ok := candidateRuns[candidate.RunKey]; !ok {
				runKeys = append(runKeys, candidate.RunKey)
			}
			candidateRuns[candidate.RunKey] = append(candidateRuns[candidate.RunKey], candidate)
		}
	}
	return candidateRuns, runKeys, nil
}

// collectNewRuns resolves and prepares for persistence every run the ledger
// has not seen yet for this participant. Runs already marked as occurred are
// skipped entirely. A run is persisted as a whole or not at all: when any of
// its activities stays unresolved, the run leaves no ledger entry and all of
// its activities retry in a later pass when the missing content reappears.
func (s *ScheduledActivityService) collectNewRuns(ctx studyTypes.ScheduleContext, candidateRuns map[string][]studyTypes.ScheduledActivity, runKeys []string) []studyTypes.ScheduledActivity {
	rc := NewResolutionContext(ctx.InstanceID, ctx.StudyKey, ctx.ClientInfo)

	saves := []studyTypes.ScheduledActivity{}
	for _, runKey := range runKeys {
		occurred, err := s.activityStore.HasRunKeyOccurred(ctx.InstanceID, ctx.StudyKey, ctx.HealthCode, runKey)
		if err != nil {
			slog.Error("failed to check run ledger", slog.String("runKey", runKey), slog.String("error", err.Error()))
			continue
		}
		if occurred {
			continue
		}

		runSaves, ok := s.prepareRun(ctx, rc, runKey, candidateRuns[runKey])
		if !ok {
			continue
		}
		saves = append(saves, runSaves...)
	}
	return saves
}

// prepareRun resolves the activities of one run and binds response records to
// its survey activities. Returns false when the run is not ready: sibling
// activities must never be persisted without each other, so a single
// unresolved reference or failed binding defers the whole run.
func (s *ScheduledActivityService) prepareRun(ctx studyTypes.ScheduleContext, rc *ResolutionContext, runKey string, candidates []studyTypes.ScheduledActivity) ([]studyTypes.ScheduledActivity, bool) {
	runSaves := make([]studyTypes.ScheduledActivity, 0, len(candidates))
	for _, candidate := range candidates {
		candidate.Activity = s.resolver.Resolve(rc, candidate.Activity)
		if !candidate.Activity.IsResolved() {
			slog.Warn("scheduled activity left unresolved, run deferred to a later pass", slog.String("activityGuid", candidate.Activity.Guid), slog.String("runKey", runKey))
			return nil, false
		}
		runSaves = append(runSaves, candidate)
	}

	for i := range runSaves {
		activity := &runSaves[i].Activity
		if activity.ActivityType != studyTypes.ACTIVITY_TYPE_SURVEY || activity.SurveyResponseID != "" {
			continue
		}
		response, err := s.surveyResponses.CreateSurveyResponse(ctx.InstanceID, ctx.StudyKey, ctx.HealthCode, *activity.Survey)
		if err != nil {
			slog.Error("failed to create survey response for scheduled activity, run deferred to a later pass", slog.String("activityGuid", activity.Guid), slog.String("runKey", runKey), slog.String("error", err.Error()))
			return nil, false
		}
		activity.SurveyResponseID = response.ResponseID
	}
	return runSaves, true
}

// UpdateScheduledActivities applies participant progress to stored
// activities. The whole call is rejected before any write when an entry is
// nil or lacks a guid. Entries without progress timestamps are ignored.
func (s *ScheduledActivityService) UpdateScheduledActivities(instanceID string, studyKey string, healthCode string, updates []*studyTypes.ScheduledActivity) error {
	if healthCode == "" {
		return studyTypes.BadInputf("healthCode must be specified")
	}
	for i, update := range updates {
		if update == nil {
			return studyTypes.BadInputf("activity #%d is null", i)
		}
		if update.Guid == "" {
			return studyTypes.BadInputf("activity #%d has no guid", i)
		}
	}

	activitiesToSave := []studyTypes.ScheduledActivity{}
	for _, update := range updates {
		if update.StartedOn == 0 && update.FinishedOn == 0 {
			continue
		}
		dbActivity, err := s.activityStore.GetActivity(instanceID, studyKey, healthCode, update.Guid)
		if err != nil {
			return fmt.Errorf("activity '%s': %w", update.Guid, err)
		}
		if update.StartedOn != 0 {
			dbActivity.StartedOn = update.StartedOn
			// Keep visible while in progress.
			dbActivity.HidesOn = studyTypes.MAX_HIDES_ON
		}
		if update.FinishedOn != 0 {
			dbActivity.FinishedOn = update.FinishedOn
			dbActivity.HidesOn = update.FinishedOn
			if err := s.activityEvents.PublishActivityFinishedEvent(instanceID, studyKey, *dbActivity); err != nil {
				slog.Error("failed to publish activity finished event", slog.String("activityGuid", dbActivity.Guid), slog.String("error", err.Error()))
			}
		}
		activitiesToSave = append(activitiesToSave, *dbActivity)
	}
	if len(activitiesToSave) == 0 {
		return nil
	}
	return s.activityStore.UpdateActivities(instanceID, studyKey, healthCode, activitiesToSave)
}

func (s *ScheduledActivityService) DeleteActivitiesForUser(instanceID string, studyKey string, healthCode string) error {
	if healthCode == "" {
		return studyTypes.BadInputf("healthCode must be specified")
	}
	return s.activityStore.DeleteActivitiesForUser(instanceID, studyKey, healthCode)
}

func (s *ScheduledActivityService) DeleteActivitiesForSchedulePlan(instanceID string, studyKey string, planGuid string) error {
	if planGuid == "" {
		return studyTypes.BadInputf("planGuid must be specified")
	}
	return s.activityStore.DeleteActivitiesForSchedulePlan(instanceID, studyKey, planGuid)
}

// GetSurveyResponse returns the participant's response record for a survey
// activity. The response id comes from the scheduled activity it was bound to.
func (s *ScheduledActivityService) GetSurveyResponse(instanceID string, studyKey string, healthCode string, responseID string) (*studyTypes.SurveyResponse, error) {
	if healthCode == "" {
		return nil, studyTypes.BadInputf("healthCode must be specified")
	}
	if responseID == "" {
		return nil, studyTypes.BadInputf("responseID must be specified")
	}
	return s.surveyResponses.GetSurveyResponse(instanceID, studyKey, healthCode, responseID)
}

// SaveSurveyResponseAnswers replaces the answers of the participant's response
// record with the submitted state. Clients send the full answer set on every
// save, partial submissions would silently drop earlier answers.
func (s *ScheduledActivityService) SaveSurveyResponseAnswers(instanceID string, studyKey string, healthCode string, responseID string, answers []studyTypes.SurveyItemResponse) error {
	if healthCode == "" {
		return studyTypes.BadInputf("healthCode must be specified")
	}
	if responseID == "" {
		return studyTypes.BadInputf("responseID must be specified")
	}
	for _, answer := range answers {
		if answer.Key == "" {
			return studyTypes.BadInputf("answer key must not be empty")
		}
	}
	return s.surveyResponses.UpdateSurveyResponseAnswers(instanceID, studyKey, healthCode, responseID, answers)
}
