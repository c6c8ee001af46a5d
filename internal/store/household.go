package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/mwhitlock/fairshare/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.InviteCode, &h.BaseRate, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, name, invite_code, base_rate, created_at, updated_at`

// inviteAlphabet omits characters that read ambiguously (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// generateInviteCode returns an 8-character code from inviteAlphabet.
func generateInviteCode() (string, error) {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		code[i] = inviteAlphabet[n.Int64()]
	}
	return string(code), nil
}

func (s *HouseholdStore) Create(name string) (*model.Household, error) {
	id := uuid.NewString()
	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO households (id, name, invite_code) VALUES (?, ?, ?)`,
		id, name, code,
	)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) GetByID(id string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) GetByInviteCode(code string) (*model.Household, error) {
	row := s.db.QueryRow(`SELECT `+householdCols+` FROM households WHERE invite_code = ?`, code)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household by invite code: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) UpdateName(id, name string) (*model.Household, error) {
	_, err := s.db.Exec(
		`UPDATE households SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update household name: %w", err)
	}
	return s.GetByID(id)
}

func (s *HouseholdStore) UpdateBaseRate(id string, baseRate float64) (*model.Household, error) {
	_, err := s.db.Exec(
		`UPDATE households SET base_rate = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		baseRate, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update base rate: %w", err)
	}
	return s.GetByID(id)
}
