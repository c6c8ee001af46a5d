package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mwhitlock/fairshare/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var householdID sql.NullString

	err := scanner.Scan(&u.ID, &u.FirstName, &householdID, &u.HasPIN, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if householdID.Valid {
		u.HouseholdID = &householdID.String
	}
	return &u, nil
}

const userCols = `id, first_name, household_id, pin_hash IS NOT NULL, created_at, updated_at`

func (s *UserStore) Create(firstName string) (*model.User, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO users (id, first_name) VALUES (?, ?)`,
		id, firstName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetMember returns the user only if they belong to the given household.
func (s *UserStore) GetMember(id, householdID string) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userCols+` FROM users WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return u, nil
}

func (s *UserStore) ListByHousehold(householdID string) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE household_id = ? ORDER BY created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by household: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) SetHousehold(id, householdID string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET household_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		householdID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set household: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) SetPINHash(id, pinHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		pinHash, id,
	)
	if err != nil {
		return fmt.Errorf("set pin hash: %w", err)
	}
	return nil
}

// PINHash returns the stored bcrypt hash, or "" if the user has no PIN.
func (s *UserStore) PINHash(id string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash.String, nil
}
