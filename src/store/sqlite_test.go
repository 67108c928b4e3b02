package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/username/tofuledger/backend/src/models"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	schema, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "000001_create_users_and_records.up.sql"))
	if err != nil {
		t.Fatalf("reading migration: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("applying migration: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestGetOrCreateUser(t *testing.T) {
	st := newTestStore(t)

	created, err := st.GetOrCreateUser("U1", "小豆腐")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	if created.ID == 0 {
		t.Error("created user has no ID")
	}
	if created.State != models.StateNew {
		t.Errorf("state = %q, want %q", created.State, models.StateNew)
	}

	again, err := st.GetOrCreateUser("U1", "ignored")
	if err != nil {
		t.Fatalf("GetOrCreateUser (existing): %v", err)
	}
	if again.ID != created.ID {
		t.Errorf("second call returned a new user: %d != %d", again.ID, created.ID)
	}
	if again.DisplayName != "小豆腐" {
		t.Errorf("display name overwritten: %q", again.DisplayName)
	}
}

func TestUpdateUser(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("U1", "")

	state := models.StateActive
	accepted := true
	completed := true
	err := st.UpdateUser(user.ID, UserUpdate{
		State:              &state,
		DisclaimerAccepted: &accepted,
		SetupCompleted:     &completed,
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := st.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.State != models.StateActive || !got.DisclaimerAccepted || !got.SetupCompleted {
		t.Errorf("user after update = %+v", got)
	}

	if err := st.UpdateUser(9999, UserUpdate{State: &state}); err != ErrNotFound {
		t.Errorf("UpdateUser(missing) = %v, want ErrNotFound", err)
	}
}

func TestListUsers(t *testing.T) {
	st := newTestStore(t)
	st.GetOrCreateUser("U1", "")
	st.GetOrCreateUser("U2", "")

	users, err := st.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("users = %d, want 2", len(users))
	}
}

func TestRecordLifecycle(t *testing.T) {
	st := newTestStore(t)
	user, _ := st.GetOrCreateUser("U1", "")

	record := &models.Record{
		UserID:   user.ID,
		Category: "午餐",
		Amount:   120,
		Kind:     models.KindExpense,
	}
	if err := st.InsertRecord(record); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if record.ID == 0 {
		t.Error("inserted record has no ID")
	}
	if record.RecordedAt.IsZero() {
		t.Error("RecordedAt not defaulted")
	}

	st.InsertRecord(&models.Record{UserID: user.ID, Category: "信用卡", Amount: 15000, Kind: models.KindDebt})

	all, err := st.ListRecords(user.ID, nil)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("records = %d, want 2", len(all))
	}

	kind := models.KindDebt
	debts, err := st.ListRecords(user.ID, &kind)
	if err != nil {
		t.Fatalf("ListRecords(debt): %v", err)
	}
	if len(debts) != 1 || debts[0].Category != "信用卡" {
		t.Errorf("debt filter = %+v", debts)
	}

	record.Amount = 150
	record.Category = "晚餐"
	if err := st.UpdateRecord(record); err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	got, err := st.GetRecord(user.ID, record.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Amount != 150 || got.Category != "晚餐" {
		t.Errorf("record after update = %+v", got)
	}

	if err := st.DeleteRecord(user.ID, record.ID); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, err := st.GetRecord(user.ID, record.ID); err != ErrNotFound {
		t.Errorf("GetRecord(deleted) = %v, want ErrNotFound", err)
	}
	if err := st.DeleteRecord(user.ID, record.ID); err != ErrNotFound {
		t.Errorf("DeleteRecord(deleted) = %v, want ErrNotFound", err)
	}
}

func TestRecordsScopedToUser(t *testing.T) {
	st := newTestStore(t)
	alice, _ := st.GetOrCreateUser("U1", "")
	bob, _ := st.GetOrCreateUser("U2", "")

	record := &models.Record{UserID: alice.ID, Category: "午餐", Amount: 120, Kind: models.KindExpense}
	st.InsertRecord(record)

	if _, err := st.GetRecord(bob.ID, record.ID); err != ErrNotFound {
		t.Errorf("cross-user GetRecord = %v, want ErrNotFound", err)
	}
	if err := st.DeleteRecord(bob.ID, record.ID); err != ErrNotFound {
		t.Errorf("cross-user DeleteRecord = %v, want ErrNotFound", err)
	}
}
