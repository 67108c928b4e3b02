// backend/src/store/store.go
package store

import (
	"errors"

	"github.com/username/tofuledger/backend/src/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// UserUpdate carries the mutable user fields. Nil means leave unchanged.
type UserUpdate struct {
	State              *models.UserState
	DisclaimerAccepted *bool
	SetupCompleted     *bool
	DisplayName        *string
}

// Store is the persistence collaborator. Implementations own all durable
// state; callers hold no cross-request state of their own.
type Store interface {
	GetOrCreateUser(lineUserID, displayName string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	UpdateUser(userID int64, update UserUpdate) error
	ListUsers() ([]models.User, error)

	InsertRecord(record *models.Record) error
	ListRecords(userID int64, kind *models.RecordKind) ([]models.Record, error)
	GetRecord(userID, recordID int64) (*models.Record, error)
	UpdateRecord(record *models.Record) error
	DeleteRecord(userID, recordID int64) error
}
