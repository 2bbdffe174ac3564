// Package testutil holds fixtures and fakes shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/memory"
)

// ErrInjected is returned by FaultyKV when a fault is armed.
var ErrInjected = errors.New("injected storage failure")

// FaultyKV is a memory KeyValueStore whose operations can be made to fail.
type FaultyKV struct {
	*memory.KVStore

	mu        sync.Mutex
	failGet   bool
	failSet   bool
	failRemov bool
	sets      int
}

// NewFaultyKV returns a healthy store.
func NewFaultyKV() *FaultyKV {
	return &FaultyKV{KVStore: memory.NewKVStore()}
}

// FailGet makes Get fail until cleared.
func (f *FaultyKV) FailGet(on bool) { f.mu.Lock(); f.failGet = on; f.mu.Unlock() }

// FailSet makes Set fail until cleared.
func (f *FaultyKV) FailSet(on bool) { f.mu.Lock(); f.failSet = on; f.mu.Unlock() }

// FailRemove makes Remove and MultiRemove fail until cleared.
func (f *FaultyKV) FailRemove(on bool) { f.mu.Lock(); f.failRemov = on; f.mu.Unlock() }

// Sets reports how many successful Set calls were made.
func (f *FaultyKV) Sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func (f *FaultyKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", ErrInjected
	}
	return f.KVStore.Get(ctx, key)
}

func (f *FaultyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return ErrInjected
	}
	f.sets++
	return f.KVStore.Set(ctx, key, value)
}

func (f *FaultyKV) Remove(ctx context.Context, key string) error {
	return f.MultiRemove(ctx, []string{key})
}

func (f *FaultyKV) MultiRemove(ctx context.Context, keys []string) error {
	f.mu.Lock()
	fail := f.failRemov
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.KVStore.MultiRemove(ctx, keys)
}

// Bundle returns a small fetch result whose ids are prefixed with tag.
func Bundle(tag string) models.Bundle {
	return models.Bundle{
		Users: []models.SystemUser{
			{ID: tag + "-u1", Username: tag + "admin", FullName: "Asha Rao", Role: "admin", CreatedBy: "root"},
			{ID: tag + "-u2", Username: tag + "boy", FullName: "Ravi Kumar", Role: "booth_boy",
				AssignedBoothIDs: []string{tag + "-b1"}, CreatedBy: tag + "-u1"},
		},
		Voters: []models.VoterRecord{
			{EPIC: tag + "-EPIC0001", Name: "Lakshmi Devi", Age: 41, BoothID: tag + "-b1"},
		},
		Booths: []models.PollingBooth{
			{ID: tag + "-b1", Number: "12", Name: "Govt School", StateCode: "1", DistrictCode: "1", AssemblyID: "1"},
		},
		Constituencies: []models.Constituency{
			{ID: tag + "-c1", Name: "North", District: "Central"},
		},
	}
}

// Snapshot returns Bundle(tag) stamped with a fixed UTC time.
func Snapshot(tag string) models.Snapshot {
	return models.NewSnapshot(Bundle(tag), time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC))
}
