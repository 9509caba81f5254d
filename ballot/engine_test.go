package ballot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mickael78000/voting-dapp/events"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/Mickael78000/voting-dapp/records"
	"github.com/Mickael78000/voting-dapp/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	organizer = "organizer"
	voter     = "voter-1"
	now       = 1_000
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// failingStore rejects every commit with the configured error.
type failingStore struct {
	storage.RecordStore
	err error
}

func (s *failingStore) Commit(context.Context, *storage.Batch) error { return s.err }

func setupEngine(t *testing.T, opts ...Option) (*Engine, *storage.MemoryRecordStore) {
	t.Helper()
	logging.Log = logrus.New()

	store := storage.NewMemoryRecordStore()
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(now, 0) })}, opts...)
	return NewEngine(store, opts...), store
}

// seedPoll creates a poll with the given seats and candidates and returns the
// candidate addresses in registration order.
func seedPoll(t *testing.T, e *Engine, pollID uint32, winners uint8, end uint64, names ...string) []identity.Address {
	t.Helper()
	ctx := context.Background()

	_, err := e.InitializePoll(ctx, organizer, PollParams{
		PollID:      pollID,
		Description: "board election",
		Start:       0,
		End:         end,
		Winners:     winners,
	})
	require.NoError(t, err)

	addrs := make([]identity.Address, 0, len(names))
	for _, name := range names {
		_, err := e.InitializeCandidate(ctx, organizer, pollID, name)
		require.NoError(t, err)
		addrs = append(addrs, identity.CandidateAddress(pollID, name))
	}
	return addrs
}

// snapshot captures every payload and version in the store for one poll.
func snapshot(t *testing.T, store storage.RecordStore, pollID uint32) map[identity.Address]string {
	t.Helper()
	ctx := context.Background()
	out := map[identity.Address]string{}
	for _, kind := range []storage.Kind{storage.KindPoll, storage.KindCandidate, storage.KindVoterRecord} {
		recs, err := store.ListByPoll(ctx, kind, pollID)
		require.NoError(t, err)
		for _, r := range recs {
			out[r.Address] = fmt.Sprintf("%x@%d", r.Data, r.Version)
		}
	}
	return out
}

func tallyOf(t *testing.T, e *Engine, addr identity.Address) (uint64, uint64) {
	t.Helper()
	c, err := e.Candidate(context.Background(), addr)
	require.NoError(t, err)
	return c.PlusVotes, c.MinusVotes
}

func TestInitializePoll(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path - budget is frozen at creation", func(t *testing.T) {
		pub := &recordingPublisher{}
		e, store := setupEngine(t, WithPublisher(pub))

		receipt, err := e.InitializePoll(ctx, organizer, PollParams{PollID: 1, Description: "seats", Start: 10, End: 5, Winners: 5})
		require.NoError(t, err)
		assert.Equal(t, OpInitializePoll, receipt.Operation)
		assert.Equal(t, organizer, receipt.Signer)
		assert.NotEmpty(t, receipt.ID)
		assert.Equal(t, []identity.Address{identity.PollAddress(1)}, receipt.Touched)

		poll, err := e.Poll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(5), poll.PlusVotesAllowed)
		assert.Equal(t, uint8(1), poll.MinusVotesAllowed)
		assert.Equal(t, uint64(0), poll.CandidateCount)
		assert.Equal(t, uint64(10), poll.Start, "start is stored verbatim")
		assert.Equal(t, uint64(5), poll.End, "end is stored verbatim")

		rec, err := store.Get(ctx, identity.PollAddress(1))
		require.NoError(t, err)
		assert.Equal(t, organizer, rec.Owner)
		assert.Equal(t, records.Deposit(records.PollSize), rec.Deposit)

		require.Len(t, pub.events, 1)
		assert.Equal(t, events.PollInitialized, pub.events[0].Type)
		assert.Equal(t, receipt.ID, pub.events[0].ReceiptID)
	})

	t.Run("Unhappy path - poll id already taken", func(t *testing.T) {
		e, _ := setupEngine(t)
		seedPoll(t, e, 1, 5, 2000)

		_, err := e.InitializePoll(ctx, organizer, PollParams{PollID: 1, Winners: 3})
		assert.True(t, errors.Is(err, ErrAlreadyExists))

		poll, err := e.Poll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint8(5), poll.Winners, "existing poll is untouched")
	})

	t.Run("Unhappy path - description over 100 bytes", func(t *testing.T) {
		e, _ := setupEngine(t)
		_, err := e.InitializePoll(ctx, organizer, PollParams{PollID: 1, Description: strings.Repeat("x", 101), Winners: 3})
		assert.True(t, errors.Is(err, ErrInvalidInput))

		_, err = e.InitializePoll(ctx, organizer, PollParams{PollID: 1, Description: strings.Repeat("x", 100), Winners: 3})
		assert.NoError(t, err)
	})

	t.Run("Unhappy path - fewer than two winners", func(t *testing.T) {
		e, _ := setupEngine(t)
		_, err := e.InitializePoll(ctx, organizer, PollParams{PollID: 1, Winners: 1})
		assert.True(t, errors.Is(err, ErrInvalidInput))

		_, err = e.Poll(ctx, 1)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Unhappy path - missing signer", func(t *testing.T) {
		e, _ := setupEngine(t)
		_, err := e.InitializePoll(ctx, "", PollParams{PollID: 1, Winners: 3})
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestInitializeCandidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path - count grows by one per candidate", func(t *testing.T) {
		e, _ := setupEngine(t)
		seedPoll(t, e, 1, 5, 2000)

		for i, name := range []string{"alice", "bob", "carol"} {
			receipt, err := e.InitializeCandidate(ctx, organizer, 1, name)
			require.NoError(t, err)
			assert.Equal(t, []identity.Address{identity.CandidateAddress(1, name), identity.PollAddress(1)}, receipt.Touched)

			poll, err := e.Poll(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, uint64(i+1), poll.CandidateCount)
		}

		c, err := e.Candidate(ctx, identity.CandidateAddress(1, "bob"))
		require.NoError(t, err)
		assert.Equal(t, "bob", c.DisplayName())
		assert.Zero(t, c.PlusVotes)
		assert.Zero(t, c.MinusVotes)
	})

	t.Run("Unhappy path - duplicate name", func(t *testing.T) {
		e, _ := setupEngine(t)
		seedPoll(t, e, 1, 5, 2000, "alice")

		_, err := e.InitializeCandidate(ctx, organizer, 1, "alice")
		assert.True(t, errors.Is(err, ErrAlreadyExists))

		poll, err := e.Poll(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), poll.CandidateCount)
	})

	t.Run("Happy path - same name in another poll", func(t *testing.T) {
		e, _ := setupEngine(t)
		seedPoll(t, e, 1, 5, 2000, "alice")
		seedPoll(t, e, 2, 5, 2000, "alice")
		assert.NotEqual(t, identity.CandidateAddress(1, "alice"), identity.CandidateAddress(2, "alice"))
	})

	t.Run("Unhappy path - poll does not exist", func(t *testing.T) {
		e, _ := setupEngine(t)
		_, err := e.InitializeCandidate(ctx, organizer, 9, "alice")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Unhappy path - strict mode rejects long and empty names", func(t *testing.T) {
		e, _ := setupEngine(t)
		seedPoll(t, e, 1, 5, 2000)

		_, err := e.InitializeCandidate(ctx, organizer, 1, strings.Repeat("n", 33))
		assert.True(t, errors.Is(err, ErrInvalidInput))
		_, err = e.InitializeCandidate(ctx, organizer, 1, "")
		assert.True(t, errors.Is(err, ErrInvalidInput))
		_, err = e.InitializeCandidate(ctx, organizer, 1, strings.Repeat("n", 32))
		assert.NoError(t, err)
	})

	t.Run("Happy path - compatibility mode truncates the stored name", func(t *testing.T) {
		e, _ := setupEngine(t, WithStrictCandidateNames(false))
		seedPoll(t, e, 1, 5, 2000)

		long := strings.Repeat("a", 32) + "-first"
		other := strings.Repeat("a", 32) + "-second"
		_, err := e.InitializeCandidate(ctx, organizer, 1, long)
		require.NoError(t, err)
		_, err = e.InitializeCandidate(ctx, organizer, 1, other)
		require.NoError(t, err, "addresses derive from the full name")

		c, err := e.Candidate(ctx, identity.CandidateAddress(1, long))
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("a", 32), c.DisplayName())
	})

	t.Run("Unhappy path - candidate count overflow", func(t *testing.T) {
		e, store := setupEngine(t)
		poll := &records.Poll{PollID: 1, Winners: 5, CandidateCount: math.MaxUint64}
		data, err := poll.Marshal()
		require.NoError(t, err)
		var batch storage.Batch
		batch.Create(&storage.Record{Address: identity.PollAddress(1), Kind: storage.KindPoll, PollID: 1, Owner: organizer, Data: data})
		require.NoError(t, store.Commit(ctx, &batch))

		_, err = e.InitializeCandidate(ctx, organizer, 1, "alice")
		assert.True(t, errors.Is(err, ErrOverflow))

		_, err = store.Get(ctx, identity.CandidateAddress(1, "alice"))
		assert.True(t, errors.Is(err, storage.ErrRecordNotFound), "candidate must not be created")
	})

	t.Run("Unhappy path - concurrent registration conflict", func(t *testing.T) {
		e, store := setupEngine(t)
		seedPoll(t, e, 1, 5, 2000)

		conflicted := NewEngine(&failingStore{RecordStore: store, err: storage.ErrConflict})
		_, err := conflicted.InitializeCandidate(ctx, organizer, 1, "alice")
		assert.True(t, errors.Is(err, ErrConflict))
	})
}

func TestCandidates(t *testing.T) {
	ctx := context.Background()
	e, _ := setupEngine(t)
	seedPoll(t, e, 1, 5, 2000, "carol", "alice", "bob")
	seedPoll(t, e, 2, 5, 2000, "dave")

	list, err := e.Candidates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].DisplayName())
	assert.Equal(t, "bob", list[1].DisplayName())
	assert.Equal(t, "carol", list[2].DisplayName())
	assert.Equal(t, identity.CandidateAddress(1, "alice"), list[0].Address)
	assert.Equal(t, uint32(1), list[0].PollID)

	_, err = e.Candidates(ctx, 3)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestVote(t *testing.T) {
	ctx := context.Background()
	names := []string{"a", "b", "c", "d", "e", "f", "g"}

	t.Run("Happy path - full D21 ballot", func(t *testing.T) {
		pub := &recordingPublisher{}
		e, store := setupEngine(t, WithPublisher(pub))
		cands := seedPoll(t, e, 1, 5, 2000, names...)

		receipt, err := e.Vote(ctx, voter, Ballot{
			PollID:     1,
			Plus:       []Allocation{{cands[0], 2}, {cands[1], 1}, {cands[2], 1}, {cands[3], 1}},
			Minus:      []Allocation{{cands[4], 1}},
			Candidates: cands,
		})
		require.NoError(t, err)
		assert.Equal(t, OpVote, receipt.Operation)
		assert.Len(t, receipt.Touched, 6)

		for i, want := range [][2]uint64{{2, 0}, {1, 0}, {1, 0}, {1, 0}, {0, 1}, {0, 0}, {0, 0}} {
			plus, minus := tallyOf(t, e, cands[i])
			assert.Equal(t, want[0], plus, "plus of %s", names[i])
			assert.Equal(t, want[1], minus, "minus of %s", names[i])
		}

		vr, err := e.VoterRecord(ctx, 1, voter)
		require.NoError(t, err)
		assert.True(t, vr.HasVoted)
		assert.Equal(t, uint8(5), vr.PlusUsed)
		assert.Equal(t, uint8(1), vr.MinusUsed)

		rec, err := store.Get(ctx, identity.VoterRecordAddress([]byte(voter), 1))
		require.NoError(t, err)
		assert.Equal(t, voter, rec.Owner)
		assert.Equal(t, records.Deposit(records.VoterRecordSize), rec.Deposit)

		last := pub.events[len(pub.events)-1]
		assert.Equal(t, events.BallotCast, last.Type)
		assert.Equal(t, "5", last.Attributes["plusUsed"])
	})

	t.Run("Unhappy path - second ballot leaves state bit-identical", func(t *testing.T) {
		e, store := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)

		_, err := e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 2}}, Candidates: cands})
		require.NoError(t, err)

		before := snapshot(t, store, 1)
		_, err = e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[1], 1}}, Candidates: cands})
		assert.True(t, errors.Is(err, ErrAlreadyVoted))

		// AlreadyVoted wins over every later check.
		_, err = e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[1], 200}}, Candidates: cands})
		assert.True(t, errors.Is(err, ErrAlreadyVoted))
		assert.Equal(t, before, snapshot(t, store, 1))
	})

	t.Run("Unhappy path - poll does not exist", func(t *testing.T) {
		e, _ := setupEngine(t)
		_, err := e.Vote(ctx, voter, Ballot{PollID: 4})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Unhappy path - budget rules", func(t *testing.T) {
		e, store := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)
		before := snapshot(t, store, 1)

		cases := []struct {
			name  string
			plus  []Allocation
			minus []Allocation
			want  error
		}{
			{"plus sum wraps", []Allocation{{cands[0], 200}, {cands[1], 100}}, nil, ErrOverflow},
			{"minus sum wraps", nil, []Allocation{{cands[0], 255}, {cands[1], 1}}, ErrOverflow},
			{"one plus over budget", []Allocation{{cands[0], 3}, {cands[1], 3}}, nil, ErrTooManyPlus},
			{"two minus votes", []Allocation{{cands[0], 2}}, []Allocation{{cands[1], 1}, {cands[2], 1}}, ErrTooManyMinus},
			{"minus with one plus", []Allocation{{cands[0], 1}}, []Allocation{{cands[1], 1}}, ErrMinusRequiresTwoPlus},
			{"minus alone", nil, []Allocation{{cands[1], 1}}, ErrMinusRequiresTwoPlus},
		}
		for _, c := range cases {
			_, err := e.Vote(ctx, voter, Ballot{PollID: 1, Plus: c.plus, Minus: c.minus, Candidates: cands})
			assert.True(t, errors.Is(err, c.want), "%s: got %v", c.name, err)
		}
		assert.Equal(t, before, snapshot(t, store, 1))
	})

	t.Run("Unhappy path - total must stay below candidate count", func(t *testing.T) {
		e, _ := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, "a", "b", "c")

		_, err := e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 2}, {cands[1], 1}}, Candidates: cands})
		assert.True(t, errors.Is(err, ErrInvalidTotal))

		_, err = e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 1}, {cands[1], 1}}, Candidates: cands})
		assert.NoError(t, err)
	})

	t.Run("Unhappy path - unknown candidate aborts the whole ballot", func(t *testing.T) {
		e, store := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)
		before := snapshot(t, store, 1)

		_, err := e.Vote(ctx, voter, Ballot{
			PollID:     1,
			Plus:       []Allocation{{cands[0], 2}, {cands[6], 1}},
			Candidates: cands[:6],
		})
		assert.True(t, errors.Is(err, ErrMissingCandidate))
		assert.Equal(t, before, snapshot(t, store, 1))

		_, err = e.VoterRecord(ctx, 1, voter)
		assert.True(t, errors.Is(err, ErrNotFound), "failed ballot must not create the voter record")
	})

	t.Run("Unhappy path - candidate of another poll", func(t *testing.T) {
		e, _ := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)
		foreign := seedPoll(t, e, 2, 5, 2000, "x")

		_, err := e.Vote(ctx, voter, Ballot{
			PollID:     1,
			Plus:       []Allocation{{cands[0], 1}, {foreign[0], 1}},
			Candidates: append([]identity.Address{foreign[0]}, cands...),
		})
		assert.True(t, errors.Is(err, ErrMissingCandidate))

		plus, _ := tallyOf(t, e, foreign[0])
		assert.Zero(t, plus)
	})

	t.Run("Happy path - repeated entries accumulate", func(t *testing.T) {
		e, _ := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)

		_, err := e.Vote(ctx, voter, Ballot{
			PollID:     1,
			Plus:       []Allocation{{cands[0], 2}, {cands[0], 2}},
			Candidates: cands,
		})
		require.NoError(t, err)

		plus, _ := tallyOf(t, e, cands[0])
		assert.Equal(t, uint64(4), plus)
	})

	t.Run("Unhappy path - tally overflow rolls back earlier increments", func(t *testing.T) {
		e, store := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)

		rec, err := store.Get(ctx, cands[1])
		require.NoError(t, err)
		full := &records.Candidate{Name: records.NameBuffer("b"), PlusVotes: math.MaxUint64}
		rec.Data = full.Marshal()
		var batch storage.Batch
		batch.Update(rec)
		require.NoError(t, store.Commit(ctx, &batch))

		before := snapshot(t, store, 1)
		_, err = e.Vote(ctx, voter, Ballot{
			PollID:     1,
			Plus:       []Allocation{{cands[0], 1}, {cands[1], 1}},
			Candidates: cands,
		})
		assert.True(t, errors.Is(err, ErrOverflow))
		assert.Equal(t, before, snapshot(t, store, 1))
	})

	t.Run("Unhappy path - concurrent first vote reports already voted", func(t *testing.T) {
		e, store := setupEngine(t)
		cands := seedPoll(t, e, 1, 5, 2000, names...)

		raced := NewEngine(&failingStore{RecordStore: store, err: storage.ErrRecordExists})
		_, err := raced.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 1}}, Candidates: cands})
		assert.True(t, errors.Is(err, ErrAlreadyVoted))

		conflicted := NewEngine(&failingStore{RecordStore: store, err: storage.ErrConflict})
		_, err = conflicted.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 1}}, Candidates: cands})
		assert.True(t, errors.Is(err, ErrConflict))
	})

	t.Run("Happy path - publish failure does not fail the vote", func(t *testing.T) {
		pub := &recordingPublisher{}
		e, _ := setupEngine(t, WithPublisher(pub))
		cands := seedPoll(t, e, 1, 5, 2000, names...)
		pub.err = errors.New("broker down")

		_, err := e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 1}}, Candidates: cands})
		assert.NoError(t, err)
	})
}

func TestCloseVoterRecord(t *testing.T) {
	ctx := context.Background()
	addr := identity.VoterRecordAddress([]byte(voter), 1)

	cast := func(t *testing.T, e *Engine, end uint64) []identity.Address {
		cands := seedPoll(t, e, 1, 5, end, "a", "b", "c")
		_, err := e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[0], 1}}, Candidates: cands})
		require.NoError(t, err)
		return cands
	}

	t.Run("Happy path - owner closes after the poll ended", func(t *testing.T) {
		pub := &recordingPublisher{}
		e, store := setupEngine(t, WithPublisher(pub))
		cast(t, e, now-1)

		receipt, err := e.CloseVoterRecord(ctx, voter, addr)
		require.NoError(t, err)
		assert.Equal(t, OpCloseVoterRecord, receipt.Operation)
		assert.Equal(t, voter, receipt.Payer)
		assert.Equal(t, records.Deposit(records.VoterRecordSize), receipt.Refund)
		assert.Equal(t, uint64(967440), receipt.Refund)

		_, err = store.Get(ctx, addr)
		assert.True(t, errors.Is(err, storage.ErrRecordNotFound))

		last := pub.events[len(pub.events)-1]
		assert.Equal(t, events.VoterRecordClosed, last.Type)
		assert.Equal(t, "967440", last.Attributes["refund"])
	})

	t.Run("Happy path - a closed record can be recreated by voting again", func(t *testing.T) {
		e, _ := setupEngine(t)
		cands := cast(t, e, now-1)

		_, err := e.CloseVoterRecord(ctx, voter, addr)
		require.NoError(t, err)

		_, err = e.Vote(ctx, voter, Ballot{PollID: 1, Plus: []Allocation{{cands[1], 1}}, Candidates: cands})
		assert.NoError(t, err)
	})

	t.Run("Unhappy path - poll still open", func(t *testing.T) {
		e, _ := setupEngine(t)
		cast(t, e, now)

		_, err := e.CloseVoterRecord(ctx, voter, addr)
		assert.True(t, errors.Is(err, ErrPollOpen))

		vr, err := e.VoterRecord(ctx, 1, voter)
		require.NoError(t, err)
		assert.True(t, vr.HasVoted)
	})

	t.Run("Unhappy path - signer is not the owner", func(t *testing.T) {
		e, _ := setupEngine(t)
		cast(t, e, now-1)

		_, err := e.CloseVoterRecord(ctx, "mallory", addr)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("Unhappy path - address is not a voter record", func(t *testing.T) {
		e, _ := setupEngine(t)
		cast(t, e, now-1)

		_, err := e.CloseVoterRecord(ctx, organizer, identity.PollAddress(1))
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = e.CloseVoterRecord(ctx, voter, identity.VoterRecordAddress([]byte("nobody"), 1))
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
