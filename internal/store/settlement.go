package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitlock/fairshare/internal/model"
)

type SettlementStore struct {
	db *sql.DB
}

func NewSettlementStore(db *sql.DB) *SettlementStore {
	return &SettlementStore{db: db}
}

const settlementCols = `id, household_id, amount, from_user, to_user, settled_by, note, settled_at`

func scanSettlement(scanner interface{ Scan(...any) error }) (*model.Settlement, error) {
	var s model.Settlement
	var note sql.NullString

	err := scanner.Scan(
		&s.ID, &s.HouseholdID, &s.Amount, &s.FromUser, &s.ToUser,
		&s.SettledBy, &note, &s.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	if note.Valid {
		s.Note = &note.String
	}
	return &s, nil
}

func (s *SettlementStore) Create(householdID string, amount float64, fromUser, toUser, settledBy string, note *string) (*model.Settlement, error) {
	var n sql.NullString
	if note != nil {
		n = sql.NullString{String: *note, Valid: true}
	}

	id := uuid.NewString()
	// Bound explicitly so stored values and the bound range parameters in
	// List share one encoding.
	_, err := s.db.Exec(
		`INSERT INTO settlements (id, household_id, amount, from_user, to_user, settled_by, note, settled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, amount, fromUser, toUser, settledBy, n, time.Now().UTC().Truncate(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("insert settlement: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+settlementCols+` FROM settlements WHERE id = ?`, id)
	st, err := scanSettlement(row)
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	return st, nil
}

// List returns the household's settlements, newest first, optionally
// restricted to settled_at within [start, end]. Payer and receiver first
// names are joined in.
func (s *SettlementStore) List(householdID string, start, end *time.Time) ([]model.Settlement, error) {
	query := `SELECT st.id, st.household_id, st.amount, st.from_user, st.to_user,
	                 st.settled_by, st.note, st.settled_at, fu.first_name, tu.first_name
	          FROM settlements st
	          JOIN users fu ON st.from_user = fu.id
	          JOIN users tu ON st.to_user = tu.id
	          WHERE st.household_id = ?`
	args := []any{householdID}
	query, args = timeRange("st.settled_at", start, end, query, args)
	query += ` ORDER BY st.settled_at DESC, st.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []model.Settlement
	for rows.Next() {
		var st model.Settlement
		var note sql.NullString
		err := rows.Scan(
			&st.ID, &st.HouseholdID, &st.Amount, &st.FromUser, &st.ToUser,
			&st.SettledBy, &note, &st.SettledAt, &st.FromUserName, &st.ToUserName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		if note.Valid {
			st.Note = &note.String
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}
