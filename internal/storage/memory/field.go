package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage"
)

var _ storage.FieldStore = (*FieldStore)(nil)

// FieldStore is an in-process FieldStore. It backs handler tests and
// DATABASE_URL=memory development runs of the API server.
type FieldStore struct {
	mu             sync.RWMutex
	accounts       []models.Account
	voters         []models.VoterRecord
	booths         []models.PollingBooth
	constituencies []constituencyRow
	assignments    map[string][]string // admin id -> constituency ids
}

type constituencyRow struct {
	models.Constituency
	StateID    string
	DistrictID string
}

// NewFieldStore returns an empty store.
func NewFieldStore() *FieldStore {
	return &FieldStore{assignments: make(map[string][]string)}
}

// AddVoters appends voters to the roll.
func (s *FieldStore) AddVoters(voters ...models.VoterRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters = append(s.voters, voters...)
}

// AddBooths appends polling booths.
func (s *FieldStore) AddBooths(booths ...models.PollingBooth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.booths = append(s.booths, booths...)
}

// AddConstituency records a constituency under the given state and district.
func (s *FieldStore) AddConstituency(c models.Constituency, stateID, districtID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constituencies = append(s.constituencies, constituencyRow{Constituency: c, StateID: stateID, DistrictID: districtID})
}

// AssignConstituency gives an admin responsibility for a constituency.
func (s *FieldStore) AssignConstituency(adminID, constituencyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[adminID] = append(s.assignments[adminID], constituencyID)
}

func (s *FieldStore) CreateUser(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == account.Username || a.Email == account.Email || (account.ID != "" && a.ID == account.ID) {
			return models.Account{}, storage.ErrAlreadyExists
		}
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.AssignedBoothIDs == nil {
		account.AssignedBoothIDs = []string{}
	}
	account.CreatedAt = time.Now().UTC()
	s.accounts = append(s.accounts, account)
	return account, nil
}

func (s *FieldStore) FindByID(_ context.Context, id string) (models.Account, error) {
	return s.findAccount(func(a models.Account) bool { return a.ID == id })
}

func (s *FieldStore) FindByUsernameOrEmail(_ context.Context, identifier string) (models.Account, error) {
	return s.findAccount(func(a models.Account) bool {
		return a.Username == identifier || strings.EqualFold(a.Email, identifier)
	})
}

func (s *FieldStore) findAccount(match func(models.Account) bool) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if match(a) {
			return a, nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *FieldStore) ListUsers(_ context.Context) ([]models.SystemUser, error) {
	return s.users(func(models.Account) bool { return true }), nil
}

func (s *FieldStore) ListUsersCreatedBy(_ context.Context, creatorID string) ([]models.SystemUser, error) {
	return s.users(func(a models.Account) bool { return a.CreatedBy == creatorID }), nil
}

func (s *FieldStore) users(keep func(models.Account) bool) []models.SystemUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.SystemUser{}
	for _, a := range s.accounts {
		if keep(a) {
			out = append(out, a.SystemUser)
		}
	}
	return out
}

func (s *FieldStore) ListVoters(_ context.Context) ([]models.VoterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.VoterRecord{}, s.voters...), nil
}

func (s *FieldStore) ListVotersInBooths(_ context.Context, boothIDs []string) ([]models.VoterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.VoterRecord{}
	for _, v := range s.voters {
		if slices.Contains(boothIDs, v.BoothID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *FieldStore) ListBoothsByLocale(_ context.Context, locale models.LocaleHint) ([]models.PollingBooth, error) {
	return s.filterBooths(func(b models.PollingBooth) bool {
		return b.StateCode == locale.StateID && b.DistrictCode == locale.DistrictID && b.AssemblyID == locale.AssemblyID
	}), nil
}

func (s *FieldStore) ListBoothsByIDs(_ context.Context, boothIDs []string) ([]models.PollingBooth, error) {
	return s.filterBooths(func(b models.PollingBooth) bool { return slices.Contains(boothIDs, b.ID) }), nil
}

func (s *FieldStore) filterBooths(keep func(models.PollingBooth) bool) []models.PollingBooth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.PollingBooth{}
	for _, b := range s.booths {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *FieldStore) ListConstituenciesByLocale(_ context.Context, locale models.LocaleHint) ([]models.Constituency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Constituency{}
	for _, c := range s.constituencies {
		if c.StateID == locale.StateID && c.DistrictID == locale.DistrictID {
			out = append(out, c.Constituency)
		}
	}
	return out, nil
}

func (s *FieldStore) ListConstituenciesAssignedTo(_ context.Context, adminID string) ([]models.Constituency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.assignments[adminID]
	out := []models.Constituency{}
	for _, c := range s.constituencies {
		if slices.Contains(ids, c.ID) {
			out = append(out, c.Constituency)
		}
	}
	return out, nil
}
