package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/tofuledger/backend/src/line"
	"github.com/username/tofuledger/backend/src/models"
	"github.com/username/tofuledger/backend/src/store"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory store.Store for service tests.
type fakeStore struct {
	users      map[string]*models.User
	records    map[int64][]models.Record
	nextUserID int64
	nextRecID  int64

	listCalls  int
	failInsert bool
	failList   bool
	failUpdate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]*models.User),
		records:    make(map[int64][]models.Record),
		nextUserID: 1,
		nextRecID:  1,
	}
}

func (f *fakeStore) seedUser(lineUserID string) *models.User {
	user, _ := f.GetOrCreateUser(lineUserID, "")
	return user
}

func (f *fakeStore) GetOrCreateUser(lineUserID, displayName string) (*models.User, error) {
	if user, ok := f.users[lineUserID]; ok {
		return user, nil
	}
	user := &models.User{
		ID:          f.nextUserID,
		LineUserID:  lineUserID,
		DisplayName: displayName,
		State:       models.StateNew,
		CreatedAt:   time.Now().UTC(),
	}
	f.nextUserID++
	f.users[lineUserID] = user
	return user, nil
}

func (f *fakeStore) GetUserByID(id int64) (*models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateUser(userID int64, update store.UserUpdate) error {
	if f.failUpdate {
		return errStoreDown
	}
	user, err := f.GetUserByID(userID)
	if err != nil {
		return err
	}
	if update.State != nil {
		user.State = *update.State
	}
	if update.DisclaimerAccepted != nil {
		user.DisclaimerAccepted = *update.DisclaimerAccepted
	}
	if update.SetupCompleted != nil {
		user.SetupCompleted = *update.SetupCompleted
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}
	return nil
}

func (f *fakeStore) ListUsers() ([]models.User, error) {
	if f.failList {
		return nil, errStoreDown
	}
	var users []models.User
	for _, user := range f.users {
		users = append(users, *user)
	}
	return users, nil
}

func (f *fakeStore) InsertRecord(record *models.Record) error {
	if f.failInsert {
		return errStoreDown
	}
	record.ID = f.nextRecID
	f.nextRecID++
	f.records[record.UserID] = append(f.records[record.UserID], *record)
	return nil
}

func (f *fakeStore) ListRecords(userID int64, kind *models.RecordKind) ([]models.Record, error) {
	f.listCalls++
	if f.failList {
		return nil, errStoreDown
	}
	var out []models.Record
	for _, record := range f.records[userID] {
		if kind == nil || record.Kind == *kind {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRecord(userID, recordID int64) (*models.Record, error) {
	for _, record := range f.records[userID] {
		if record.ID == recordID {
			r := record
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpdateRecord(record *models.Record) error {
	for i, existing := range f.records[record.UserID] {
		if existing.ID == record.ID {
			f.records[record.UserID][i] = *record
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteRecord(userID, recordID int64) error {
	for i, existing := range f.records[userID] {
		if existing.ID == recordID {
			f.records[userID] = append(f.records[userID][:i], f.records[userID][i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeReplier records every outbound reply.
type fakeReplier struct {
	replies []sentReply
	failAll bool
}

type sentReply struct {
	replyToken string
	messages   []line.Message
}

func (f *fakeReplier) Reply(_ context.Context, replyToken string, messages ...line.Message) error {
	if f.failAll {
		return errors.New("transport down")
	}
	f.replies = append(f.replies, sentReply{replyToken: replyToken, messages: messages})
	return nil
}

func (f *fakeReplier) Push(_ context.Context, to string, messages ...line.Message) error {
	if f.failAll {
		return errors.New("transport down")
	}
	f.replies = append(f.replies, sentReply{replyToken: to, messages: messages})
	return nil
}

// fakeTokenIssuer hands out a fixed token.
type fakeTokenIssuer struct{}

func (fakeTokenIssuer) IssueDashboardToken(int64) (string, error) {
	return "test-token", nil
}
