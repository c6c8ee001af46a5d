package model

import "time"

// Settlement records a real-world payment between two household members that
// offsets the computed equity imbalance. Append-only, like CompletedChore.
type Settlement struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"householdId"`
	Amount      float64   `json:"amount"`
	FromUser    string    `json:"fromUser"`
	ToUser      string    `json:"toUser"`
	SettledBy   string    `json:"settledBy"`
	Note        *string   `json:"note"`
	SettledAt   time.Time `json:"settledAt"`

	// Populated via JOIN on list queries.
	FromUserName string `json:"fromUserName,omitempty"`
	ToUserName   string `json:"toUserName,omitempty"`
}
