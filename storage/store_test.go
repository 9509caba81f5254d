package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(name string, kind Kind, pollID uint32) *Record {
	return &Record{
		Address: identity.CandidateAddress(pollID, name),
		Kind:    kind,
		PollID:  pollID,
		Owner:   "alice",
		Deposit: 10,
		Data:    []byte(name),
	}
}

func setupSQLiteStore(t *testing.T) RecordStore {
	t.Helper()
	logging.Log = logrus.New()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := OpenSQLiteRecordStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err, "failed to open sqlite store")
	return s
}

func setupMemoryStore(t *testing.T) RecordStore {
	t.Helper()
	logging.Log = logrus.New()
	return NewMemoryRecordStore()
}

func TestRecordStores(t *testing.T) {
	stores := map[string]func(t *testing.T) RecordStore{
		"memory": setupMemoryStore,
		"sqlite": setupSQLiteStore,
	}
	for name, setup := range stores {
		t.Run(name, func(t *testing.T) {
			runRecordStoreContract(t, setup)
		})
	}
}

func runRecordStoreContract(t *testing.T, setup func(t *testing.T) RecordStore) {
	ctx := context.Background()

	t.Run("Happy path - create then get", func(t *testing.T) {
		s := setup(t)
		r := newRecord("alice", KindCandidate, 1)

		var batch Batch
		batch.Create(r)
		require.NoError(t, s.Commit(ctx, &batch))

		got, err := s.Get(ctx, r.Address)
		require.NoError(t, err)
		assert.Equal(t, r.Data, got.Data)
		assert.Equal(t, uint64(0), got.Version)
		assert.Equal(t, "alice", got.Owner)
		assert.Equal(t, uint64(10), got.Deposit)
	})

	t.Run("Unhappy path - get missing record", func(t *testing.T) {
		s := setup(t)
		_, err := s.Get(ctx, identity.PollAddress(99))
		assert.True(t, errors.Is(err, ErrRecordNotFound))
	})

	t.Run("Unhappy path - create on occupied address", func(t *testing.T) {
		s := setup(t)
		r := newRecord("bob", KindCandidate, 1)

		var first Batch
		first.Create(r)
		require.NoError(t, s.Commit(ctx, &first))

		var second Batch
		second.Create(r)
		assert.True(t, errors.Is(s.Commit(ctx, &second), ErrRecordExists))
	})

	t.Run("Happy path - update bumps the version", func(t *testing.T) {
		s := setup(t)
		r := newRecord("carol", KindCandidate, 1)

		var create Batch
		create.Create(r)
		require.NoError(t, s.Commit(ctx, &create))

		stored, err := s.Get(ctx, r.Address)
		require.NoError(t, err)
		stored.Data = []byte("carol-2")

		var update Batch
		update.Update(stored)
		require.NoError(t, s.Commit(ctx, &update))

		got, err := s.Get(ctx, r.Address)
		require.NoError(t, err)
		assert.Equal(t, []byte("carol-2"), got.Data)
		assert.Equal(t, uint64(1), got.Version)

		// The stale copy still carries version 0.
		var stale Batch
		stale.Update(stored)
		assert.True(t, errors.Is(s.Commit(ctx, &stale), ErrConflict))
	})

	t.Run("Happy path - failed batch applies nothing", func(t *testing.T) {
		s := setup(t)
		existing := newRecord("dave", KindCandidate, 1)
		var seed Batch
		seed.Create(existing)
		require.NoError(t, s.Commit(ctx, &seed))

		stored, err := s.Get(ctx, existing.Address)
		require.NoError(t, err)
		stored.Data = []byte("changed")

		fresh := newRecord("erin", KindCandidate, 1)
		var batch Batch
		batch.Update(stored)
		batch.Create(fresh)
		batch.Create(newRecord("dave", KindCandidate, 1))
		assert.True(t, errors.Is(s.Commit(ctx, &batch), ErrRecordExists))

		got, err := s.Get(ctx, existing.Address)
		require.NoError(t, err)
		assert.Equal(t, []byte("dave"), got.Data, "update must be rolled back")
		assert.Equal(t, uint64(0), got.Version)

		_, err = s.Get(ctx, fresh.Address)
		assert.True(t, errors.Is(err, ErrRecordNotFound), "create must be rolled back")
	})

	t.Run("Happy path - delete with matching version", func(t *testing.T) {
		s := setup(t)
		r := newRecord("frank", KindVoterRecord, 2)
		var create Batch
		create.Create(r)
		require.NoError(t, s.Commit(ctx, &create))

		stored, err := s.Get(ctx, r.Address)
		require.NoError(t, err)

		var del Batch
		del.Delete(stored)
		require.NoError(t, s.Commit(ctx, &del))

		_, err = s.Get(ctx, r.Address)
		assert.True(t, errors.Is(err, ErrRecordNotFound))

		var again Batch
		again.Delete(stored)
		assert.True(t, errors.Is(s.Commit(ctx, &again), ErrConflict))
	})

	t.Run("Happy path - get many omits missing addresses", func(t *testing.T) {
		s := setup(t)
		a := newRecord("gina", KindCandidate, 3)
		b := newRecord("hugo", KindCandidate, 3)
		var batch Batch
		batch.Create(a)
		batch.Create(b)
		require.NoError(t, s.Commit(ctx, &batch))

		missing := identity.CandidateAddress(3, "nobody")
		got, err := s.GetMany(ctx, []identity.Address{a.Address, b.Address, missing})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Contains(t, got, a.Address)
		assert.Contains(t, got, b.Address)
		assert.NotContains(t, got, missing)
	})

	t.Run("Happy path - list by poll filters kind and poll", func(t *testing.T) {
		s := setup(t)
		var batch Batch
		batch.Create(newRecord("ivy", KindCandidate, 4))
		batch.Create(newRecord("jack", KindCandidate, 4))
		batch.Create(newRecord("kim", KindCandidate, 5))
		batch.Create(newRecord("lee", KindVoterRecord, 4))
		require.NoError(t, s.Commit(ctx, &batch))

		got, err := s.ListByPoll(ctx, KindCandidate, 4)
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, r := range got {
			assert.Equal(t, KindCandidate, r.Kind)
			assert.Equal(t, uint32(4), r.PollID)
		}
	})
}

func TestBatchAddresses(t *testing.T) {
	a := newRecord("a", KindCandidate, 1)
	b := newRecord("b", KindCandidate, 1)

	var batch Batch
	batch.Create(a)
	batch.Delete(b)

	assert.Equal(t, []identity.Address{a.Address, b.Address}, batch.Addresses())
	assert.Equal(t, "create", batch.Ops[0].Type.String())
	assert.Equal(t, "delete", batch.Ops[1].Type.String())
}
