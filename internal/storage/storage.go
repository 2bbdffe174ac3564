package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// KeyValueStore is the durable string store the client caches live in.
// Get returns ErrNotFound for absent keys. Set replaces any prior value
// atomically; readers never observe a partial write.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
}

// UserStore captures account persistence needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, account models.Account) (models.Account, error)
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.Account, error)
}

// FieldStore captures the dashboard reads served by the field-data API.
type FieldStore interface {
	UserStore
	ListUsers(ctx context.Context) ([]models.SystemUser, error)
	ListUsersCreatedBy(ctx context.Context, creatorID string) ([]models.SystemUser, error)
	ListVoters(ctx context.Context) ([]models.VoterRecord, error)
	ListVotersInBooths(ctx context.Context, boothIDs []string) ([]models.VoterRecord, error)
	ListBoothsByLocale(ctx context.Context, locale models.LocaleHint) ([]models.PollingBooth, error)
	ListBoothsByIDs(ctx context.Context, boothIDs []string) ([]models.PollingBooth, error)
	ListConstituenciesByLocale(ctx context.Context, locale models.LocaleHint) ([]models.Constituency, error)
	ListConstituenciesAssignedTo(ctx context.Context, adminID string) ([]models.Constituency, error)
}
