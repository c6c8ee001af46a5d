package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitlock/fairshare/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo sql.NullString

	err := scanner.Scan(
		&c.ID, &c.Name, &c.SkillLevel, &assignedTo, &c.HouseholdID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.String
	}
	return &c, nil
}

const choreCols = `id, name, skill_level, assigned_to, household_id, created_at, updated_at`

func (s *ChoreStore) Create(name string, skillLevel model.SkillLevel, assignedTo *string, householdID string) (*model.Chore, error) {
	var aTo sql.NullString
	if assignedTo != nil {
		aTo = sql.NullString{String: *assignedTo, Valid: true}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO chores (id, name, skill_level, assigned_to, household_id) VALUES (?, ?, ?, ?, ?)`,
		id, name, skillLevel, aTo, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id string) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByHousehold(householdID string) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE household_id = ? ORDER BY created_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// --- Completion methods ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.CompletedChore, error) {
	var c model.CompletedChore
	err := scanner.Scan(
		&c.ID, &c.ChoreID, &c.CompletedBy, &c.TimeSpent, &c.Value,
		&c.HouseholdID, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, chore_id, completed_by, time_spent, value, household_id, completed_at`

func (s *ChoreStore) CreateCompletion(choreID, completedBy string, timeSpent, value float64, householdID string) (*model.CompletedChore, error) {
	id := uuid.NewString()
	// Bound explicitly rather than defaulted, so stored values and the
	// bound range parameters in ListCompletions share one encoding.
	_, err := s.db.Exec(
		`INSERT INTO completed_chores (id, chore_id, completed_by, time_spent, value, household_id, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, choreID, completedBy, timeSpent, value, householdID, time.Now().UTC().Truncate(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completed_chores WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// CountCompletions reports how many completion records reference the chore.
// Chores with history cannot be deleted.
func (s *ChoreStore) CountCompletions(choreID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM completed_chores WHERE chore_id = ?`, choreID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return n, nil
}

func (s *ChoreStore) LastCompletionForChore(choreID string) (*model.CompletedChore, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM completed_chores WHERE chore_id = ? ORDER BY completed_at DESC, id DESC LIMIT 1`,
		choreID,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completion: %w", err)
	}
	return c, nil
}

// DistinctCompleters returns the IDs of every user who has completed a chore
// of the given skill level within the household.
func (s *ChoreStore) DistinctCompleters(householdID string, skillLevel model.SkillLevel) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT cc.completed_by
		 FROM completed_chores cc
		 JOIN chores c ON cc.chore_id = c.id
		 WHERE cc.household_id = ? AND c.skill_level = ?`,
		householdID, skillLevel,
	)
	if err != nil {
		return nil, fmt.Errorf("distinct completers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// timeRange appends inclusive bound conditions on column for whichever of
// start/end are set. Omitting both means no filtering.
func timeRange(column string, start, end *time.Time, query string, args []any) (string, []any) {
	if start != nil {
		query += ` AND ` + column + ` >= ?`
		args = append(args, start.UTC())
	}
	if end != nil {
		query += ` AND ` + column + ` <= ?`
		args = append(args, end.UTC())
	}
	return query, args
}

// ListCompletions returns the household's completion records, newest first,
// optionally restricted to completed_at within [start, end]. Each record
// carries the completer's first name and the chore name from joins.
func (s *ChoreStore) ListCompletions(householdID string, start, end *time.Time) ([]model.CompletedChore, error) {
	query := `SELECT cc.id, cc.chore_id, cc.completed_by, cc.time_spent, cc.value,
	                 cc.household_id, cc.completed_at, u.first_name, c.name
	          FROM completed_chores cc
	          JOIN users u ON cc.completed_by = u.id
	          JOIN chores c ON cc.chore_id = c.id
	          WHERE cc.household_id = ?`
	args := []any{householdID}
	query, args = timeRange("cc.completed_at", start, end, query, args)
	query += ` ORDER BY cc.completed_at DESC, cc.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.CompletedChore
	for rows.Next() {
		var c model.CompletedChore
		err := rows.Scan(
			&c.ID, &c.ChoreID, &c.CompletedBy, &c.TimeSpent, &c.Value,
			&c.HouseholdID, &c.CompletedAt, &c.CompletedByName, &c.ChoreName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
