// Package valuation prices chore completions. A completion's value is the
// household's base hourly rate times the hours spent, plus a skill bonus
// (INTERMEDIATE and ADVANCED chores pay more) and a rarity bonus when the
// completer is the household's only demonstrated performer of that skill
// level.
//
// The engine is a pure read-side computation: it never writes, and the caller
// is responsible for persisting the resulting CompletedChore. Hours spent are
// trusted from the caller, which validates them at the HTTP boundary.
//
// Two concurrent first completions of a skill level can each observe an empty
// completion history and both earn the rarity bonus. The read and the
// caller's insert are not serialized; this is a known limitation.
package valuation

import (
	"errors"
	"fmt"

	"github.com/mwhitlock/fairshare/internal/model"
	"github.com/mwhitlock/fairshare/internal/store"
)

// ErrChoreNotFound is returned when the chore being valued does not exist.
var ErrChoreNotFound = errors.New("chore not found")

const (
	intermediateBonus = 0.15
	advancedBonus     = 0.30
	rarityBonus       = 0.25
)

// Service computes completion values from household and completion history
// data. It holds no state beyond its store dependencies.
type Service struct {
	chores     *store.ChoreStore
	users      *store.UserStore
	households *store.HouseholdStore
}

func NewService(chores *store.ChoreStore, users *store.UserStore, households *store.HouseholdStore) *Service {
	return &Service{chores: chores, users: users, households: households}
}

func skillBonus(level model.SkillLevel) float64 {
	switch level {
	case model.SkillIntermediate:
		return intermediateBonus
	case model.SkillAdvanced:
		return advancedBonus
	default:
		return 0
	}
}

// rarityFraction returns the rarity bonus fraction for a completion by
// completedBy. The bonus applies only when the chore is skilled, the
// household has exactly two members, and no other member has ever completed
// a chore of this skill level.
func (s *Service) rarityFraction(householdID, completedBy string, level model.SkillLevel) (float64, error) {
	if level == model.SkillBasic {
		return 0, nil
	}

	members, err := s.users.ListByHousehold(householdID)
	if err != nil {
		return 0, err
	}
	if len(members) != 2 {
		return 0, nil
	}

	completers, err := s.chores.DistinctCompleters(householdID, level)
	if err != nil {
		return 0, err
	}

	unique := make(map[string]struct{}, len(completers)+1)
	for _, id := range completers {
		unique[id] = struct{}{}
	}
	unique[completedBy] = struct{}{}

	if len(unique) == 1 {
		return rarityBonus, nil
	}
	return 0, nil
}

// Calculate returns the monetary value of one chore completion. It fails
// with ErrChoreNotFound if the chore does not exist; any other error is a
// data-store failure propagated unchanged.
func (s *Service) Calculate(choreID, completedBy string, timeSpent float64) (float64, error) {
	chore, err := s.chores.GetByID(choreID)
	if err != nil {
		return 0, err
	}
	if chore == nil {
		return 0, ErrChoreNotFound
	}

	household, err := s.households.GetByID(chore.HouseholdID)
	if err != nil {
		return 0, err
	}
	if household == nil {
		return 0, fmt.Errorf("household %s for chore %s not found", chore.HouseholdID, choreID)
	}

	rarity, err := s.rarityFraction(chore.HouseholdID, completedBy, chore.SkillLevel)
	if err != nil {
		return 0, err
	}

	baseValue := household.BaseRate * timeSpent
	return baseValue + baseValue*skillBonus(chore.SkillLevel) + baseValue*rarity, nil
}
