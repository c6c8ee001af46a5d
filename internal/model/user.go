package model

import "time"

type User struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	HouseholdID *string   `json:"householdId"`
	HasPIN      bool      `json:"hasPin"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
