package types

import (
	"hash/fnv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// strategy types
const (
	STRATEGY_TYPE_SIMPLE   = "simple"
	STRATEGY_TYPE_AB_TEST  = "abTest"
	STRATEGY_TYPE_CRITERIA = "criteria"
)

// SchedulePlan is the study-level template describing when and what
// activities to generate for matching participants.
type SchedulePlan struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Guid     string             `bson:"guid" json:"guid"`
	StudyKey string             `bson:"studyKey" json:"studyKey"`
	Label    string             `bson:"label" json:"label"`
	Version  int                `bson:"version" json:"version"`
	Strategy Strategy           `bson:"strategy" json:"strategy"`
}

// Strategy selects which of a plan's schedules applies to a participant. A
// closed union discriminated by Type:
//   - simple: one schedule for everybody
//   - abTest: weighted groups, assignment derived from the health code so a
//     participant always lands in the same group
//   - criteria: first group whose data group requirements match
type Strategy struct {
	Type     string          `bson:"type" json:"type"`
	Schedule *Schedule       `bson:"schedule,omitempty" json:"schedule,omitempty"`
	Groups   []ScheduleGroup `bson:"groups,omitempty" json:"groups,omitempty"`
}

// ScheduleGroup is one arm of an abTest or criteria strategy.
type ScheduleGroup struct {
	Weight          int      `bson:"weight,omitempty" json:"weight,omitempty"`
	AllOfDataGroups []string `bson:"allOfDataGroups,omitempty" json:"allOfDataGroups,omitempty"`
	NoneOfDataGroups []string `bson:"noneOfDataGroups,omitempty" json:"noneOfDataGroups,omitempty"`
	Schedule        Schedule `bson:"schedule" json:"schedule"`
}

// AllSchedules returns every schedule the strategy can produce, used for
// validation, guid management and survey pinning at plan-write time.
func (s *Strategy) AllSchedules() []*Schedule {
	if s.Type == STRATEGY_TYPE_SIMPLE {
		if s.Schedule == nil {
			return nil
		}
		return []*Schedule{s.Schedule}
	}
	schedules := make([]*Schedule, len(s.Groups))
	for i := range s.Groups {
		schedules[i] = &s.Groups[i].Schedule
	}
	return schedules
}

// ScheduleFor picks the schedule that applies to the given participant, or
// nil when none does.
func (s *Strategy) ScheduleFor(healthCode string, dataGroups []string) *Schedule {
	switch s.Type {
	case STRATEGY_TYPE_SIMPLE:
		return s.Schedule
	case STRATEGY_TYPE_AB_TEST:
		return s.scheduleForABTest(healthCode)
	case STRATEGY_TYPE_CRITERIA:
		return s.scheduleForCriteria(dataGroups)
	}
	return nil
}

func (s *Strategy) scheduleForABTest(healthCode string) *Schedule {
	totalWeight := 0
	for _, group := range s.Groups {
		totalWeight += group.Weight
	}
	if totalWeight <= 0 {
		return nil
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(healthCode))
	target := int(h.Sum32() % uint32(totalWeight))

	accumulated := 0
	for i := range s.Groups {
		accumulated += s.Groups[i].Weight
		if target < accumulated {
			return &s.Groups[i].Schedule
		}
	}
	return nil
}

func (s *Strategy) scheduleForCriteria(dataGroups []string) *Schedule {
	inGroups := map[string]bool{}
	for _, dg := range dataGroups {
		inGroups[dg] = true
	}

	for i := range s.Groups {
		group := &s.Groups[i]
		matches := true
		for _, required := range group.AllOfDataGroups {
			if !inGroups[required] {
				matches = false
				break
			}
		}
		if matches {
			for _, excluded := range group.NoneOfDataGroups {
				if inGroups[excluded] {
					matches = false
					break
				}
			}
		}
		if matches {
			return &group.Schedule
		}
	}
	return nil
}
