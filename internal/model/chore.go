package model

import "time"

// SkillLevel classifies how much skill a chore demands. It drives the
// valuation bonus applied when the chore is completed.
type SkillLevel string

const (
	SkillBasic        SkillLevel = "BASIC"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
)

// ValidSkillLevel reports whether s is one of the three known skill levels.
func ValidSkillLevel(s SkillLevel) bool {
	switch s {
	case SkillBasic, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

type Chore struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	SkillLevel  SkillLevel `json:"skillLevel"`
	AssignedTo  *string    `json:"assignedTo"`
	HouseholdID string     `json:"householdId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CompletedChore is an append-only record of one chore completion, priced by
// the valuation engine at creation time. Never updated or deleted.
type CompletedChore struct {
	ID          string    `json:"id"`
	ChoreID     string    `json:"choreId"`
	CompletedBy string    `json:"completedBy"`
	TimeSpent   float64   `json:"timeSpent"`
	Value       float64   `json:"value"`
	HouseholdID string    `json:"householdId"`
	CompletedAt time.Time `json:"completedAt"`

	// Populated via JOIN on list queries.
	CompletedByName string `json:"completedByName,omitempty"`
	ChoreName       string `json:"choreName,omitempty"`
}
