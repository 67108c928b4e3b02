// backend/src/store/sqlite.go
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/tofuledger/backend/src/models"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already-opened database handle.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

const userColumns = "id, line_user_id, display_name, state, disclaimer_accepted, setup_completed, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var state string
	err := row.Scan(&user.ID, &user.LineUserID, &user.DisplayName, &state,
		&user.DisclaimerAccepted, &user.SetupCompleted, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.State = models.UserState(state)
	return user, nil
}

func (s *sqliteStore) GetOrCreateUser(lineUserID, displayName string) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE line_user_id = ?", lineUserID)
	user, err := scanUser(row)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying user %q: %w", lineUserID, err)
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(
		"INSERT INTO users (line_user_id, display_name, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		lineUserID, displayName, string(models.StateNew), now, now)
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", lineUserID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new user id: %w", err)
	}
	return &models.User{
		ID:          id,
		LineUserID:  lineUserID,
		DisplayName: displayName,
		State:       models.StateNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *sqliteStore) GetUserByID(id int64) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user %d: %w", id, err)
	}
	return user, nil
}

func (s *sqliteStore) UpdateUser(userID int64, update UserUpdate) error {
	setClauses := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if update.State != nil {
		setClauses = append(setClauses, "state = ?")
		args = append(args, string(*update.State))
	}
	if update.DisclaimerAccepted != nil {
		setClauses = append(setClauses, "disclaimer_accepted = ?")
		args = append(args, *update.DisclaimerAccepted)
	}
	if update.SetupCompleted != nil {
		setClauses = append(setClauses, "setup_completed = ?")
		args = append(args, *update.SetupCompleted)
	}
	if update.DisplayName != nil {
		setClauses = append(setClauses, "display_name = ?")
		args = append(args, *update.DisplayName)
	}

	args = append(args, userID)
	query := "UPDATE users SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of user %d: %w", userID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

const recordColumns = "id, user_id, category, amount, kind, recorded_at, created_at"

func scanRecord(row interface{ Scan(...any) error }) (*models.Record, error) {
	record := &models.Record{}
	var kind string
	err := row.Scan(&record.ID, &record.UserID, &record.Category, &record.Amount,
		&kind, &record.RecordedAt, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.Kind = models.RecordKind(kind)
	return record, nil
}

func (s *sqliteStore) InsertRecord(record *models.Record) error {
	now := time.Now().UTC()
	if record.RecordedAt.IsZero() {
		record.RecordedAt = now
	}
	record.CreatedAt = now

	result, err := s.db.Exec(
		"INSERT INTO records (user_id, category, amount, kind, recorded_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		record.UserID, record.Category, record.Amount, string(record.Kind), record.RecordedAt, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting record for user %d: %w", record.UserID, err)
	}
	record.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new record id: %w", err)
	}
	return nil
}

func (s *sqliteStore) ListRecords(userID int64, kind *models.RecordKind) ([]models.Record, error) {
	query := "SELECT " + recordColumns + " FROM records WHERE user_id = ?"
	args := []any{userID}
	if kind != nil {
		query += " AND kind = ?"
		args = append(args, string(*kind))
	}
	query += " ORDER BY recorded_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records for user %d: %w", userID, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *sqliteStore) GetRecord(userID, recordID int64) (*models.Record, error) {
	row := s.db.QueryRow("SELECT "+recordColumns+" FROM records WHERE id = ? AND user_id = ?", recordID, userID)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying record %d: %w", recordID, err)
	}
	return record, nil
}

func (s *sqliteStore) UpdateRecord(record *models.Record) error {
	result, err := s.db.Exec(
		"UPDATE records SET category = ?, amount = ?, kind = ?, recorded_at = ? WHERE id = ? AND user_id = ?",
		record.Category, record.Amount, string(record.Kind), record.RecordedAt, record.ID, record.UserID)
	if err != nil {
		return fmt.Errorf("updating record %d: %w", record.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of record %d: %w", record.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) DeleteRecord(userID, recordID int64) error {
	result, err := s.db.Exec("DELETE FROM records WHERE id = ? AND user_id = ?", recordID, userID)
	if err != nil {
		return fmt.Errorf("deleting record %d: %w", recordID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete of record %d: %w", recordID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
