package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
	"github.com/hongminglow/fieldops-dashboard/internal/storage/memory"
	"github.com/hongminglow/fieldops-dashboard/internal/testutil"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewKVStore(), nil)

	tests := []struct {
		name string
		snap models.Snapshot
	}{
		{"populated", testutil.Snapshot("a")},
		{"empty collections", models.Snapshot{
			Users:          []models.SystemUser{},
			Voters:         []models.VoterRecord{},
			Booths:         []models.PollingBooth{},
			Constituencies: []models.Constituency{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Write(ctx, tt.snap))
			got, ok := store.Read(ctx)
			require.True(t, ok)
			assert.Equal(t, tt.snap, got)
		})
	}
}

func TestStore_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewKVStore(), nil)

	require.NoError(t, store.Write(ctx, testutil.Snapshot("a")))
	require.NoError(t, store.Write(ctx, testutil.Snapshot("b")))

	got, ok := store.Read(ctx)
	require.True(t, ok)
	assert.Equal(t, testutil.Snapshot("b"), got)
}

func TestStore_MissingIsMiss(t *testing.T) {
	store := NewStore(memory.NewKVStore(), nil)
	_, ok := store.Read(context.Background())
	assert.False(t, ok)
}

func TestStore_CorruptIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	require.NoError(t, kv.Set(ctx, KeyDashboard, `{"users": [`))

	_, ok := NewStore(kv, nil).Read(ctx)
	assert.False(t, ok)
}

func TestStore_StorageErrorIsMiss(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFaultyKV()
	store := NewStore(kv, nil)
	require.NoError(t, store.Write(ctx, testutil.Snapshot("a")))

	kv.FailGet(true)
	_, ok := store.Read(ctx)
	assert.False(t, ok)
}

func TestStore_WriteFailurePropagates(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFaultyKV()
	kv.FailSet(true)

	err := NewStore(kv, nil).Write(ctx, testutil.Snapshot("a"))
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(memory.NewKVStore(), nil)
	require.NoError(t, store.Write(ctx, testutil.Snapshot("a")))

	require.NoError(t, store.Clear(ctx))
	_, ok := store.Read(ctx)
	assert.False(t, ok)
}
