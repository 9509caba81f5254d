// Package ballot implements the D21 poll operations on top of a record store.
// Each operation reads what it needs, validates everything in memory and then
// hands a single batch to the store, so a failed operation never leaves a
// partial write behind.
package ballot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Mickael78000/voting-dapp/events"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/Mickael78000/voting-dapp/records"
	"github.com/Mickael78000/voting-dapp/storage"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	OpInitializePoll      = "initialize_poll"
	OpInitializeCandidate = "initialize_candidate"
	OpVote                = "vote"
	OpCloseVoterRecord    = "close_voter_record"
)

type Engine struct {
	store       storage.RecordStore
	publisher   events.Publisher
	strictNames bool
	now         func() time.Time
}

type Option func(*Engine)

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithStrictCandidateNames controls whether names longer than
// records.NameLength are rejected (true) or silently truncated (false).
func WithStrictCandidateNames(strict bool) Option {
	return func(e *Engine) {
		e.strictNames = strict
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(store storage.RecordStore, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		publisher:   events.NopPublisher{},
		strictNames: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Receipt acknowledges one committed unit of work.
type Receipt struct {
	ID          string             `json:"id"`
	Operation   string             `json:"operation"`
	Signer      string             `json:"signer"`
	Touched     []identity.Address `json:"touched"`
	CommittedAt time.Time          `json:"committedAt"`
}

type CloseReceipt struct {
	Receipt
	Payer  string `json:"payer"`
	Refund uint64 `json:"refund"`
}

type CandidateState struct {
	Address identity.Address
	PollID  uint32
	records.Candidate
}

func (e *Engine) newReceipt(op, signer string, batch *storage.Batch) (*Receipt, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt id: %w", err)
	}
	return &Receipt{
		ID:          id,
		Operation:   op,
		Signer:      signer,
		Touched:     batch.Addresses(),
		CommittedAt: e.now().UTC(),
	}, nil
}

func (e *Engine) publish(ctx context.Context, t events.Type, pollID uint32, r *Receipt, attrs map[string]string) {
	addrs := make([]string, 0, len(r.Touched))
	for _, a := range r.Touched {
		addrs = append(addrs, a.String())
	}
	evt := &events.Event{
		ReceiptID:  r.ID,
		Type:       t,
		PollID:     pollID,
		Signer:     r.Signer,
		Addresses:  addrs,
		Attributes: attrs,
		OccurredAt: r.CommittedAt,
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		logging.Log.Errorf("EVENTS: failed to publish %s for receipt %s: %v", t, r.ID, err)
	}
}

func requireSigner(signer string) error {
	if signer == "" {
		return fmt.Errorf("%w: signer is required", ErrInvalidInput)
	}
	return nil
}

func (e *Engine) loadPoll(ctx context.Context, pollID uint32) (*storage.Record, *records.Poll, error) {
	rec, err := e.store.Get(ctx, identity.PollAddress(pollID))
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: poll %d", ErrNotFound, pollID)
		}
		logging.Log.Errorf("POLL: failed to load poll %d: %v", pollID, err)
		return nil, nil, err
	}
	if rec.Kind != storage.KindPoll {
		return nil, nil, fmt.Errorf("%w: poll %d", ErrNotFound, pollID)
	}
	poll, err := records.UnmarshalPoll(rec.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rec, poll, nil
}

func (e *Engine) Poll(ctx context.Context, pollID uint32) (*records.Poll, error) {
	_, poll, err := e.loadPoll(ctx, pollID)
	return poll, err
}

func candidateState(rec *storage.Record) (*CandidateState, error) {
	c, err := records.UnmarshalCandidate(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &CandidateState{Address: rec.Address, PollID: rec.PollID, Candidate: *c}, nil
}

func (e *Engine) Candidate(ctx context.Context, addr identity.Address) (*CandidateState, error) {
	rec, err := e.store.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: candidate %s", ErrNotFound, addr)
		}
		logging.Log.Errorf("CANDIDATE: failed to load candidate %s: %v", addr, err)
		return nil, err
	}
	if rec.Kind != storage.KindCandidate {
		return nil, fmt.Errorf("%w: candidate %s", ErrNotFound, addr)
	}
	return candidateState(rec)
}

// Candidates lists every candidate registered for the poll, ordered by name.
func (e *Engine) Candidates(ctx context.Context, pollID uint32) ([]*CandidateState, error) {
	if _, _, err := e.loadPoll(ctx, pollID); err != nil {
		return nil, err
	}

	recs, err := e.store.ListByPoll(ctx, storage.KindCandidate, pollID)
	if err != nil {
		logging.Log.Errorf("CANDIDATE: failed to list candidates of poll %d: %v", pollID, err)
		return nil, err
	}

	out := make([]*CandidateState, 0, len(recs))
	for _, rec := range recs {
		c, err := candidateState(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i].DisplayName(), out[j].DisplayName()
		if ni != nj {
			return ni < nj
		}
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, nil
}

func (e *Engine) VoterRecord(ctx context.Context, pollID uint32, voter string) (*records.VoterRecord, error) {
	addr := identity.VoterRecordAddress([]byte(voter), pollID)
	rec, err := e.store.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: voter record %s", ErrNotFound, addr)
		}
		logging.Log.Errorf("VOTER: failed to load voter record %s: %v", addr, err)
		return nil, err
	}
	vr, err := records.UnmarshalVoterRecord(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return vr, nil
}

// commitError translates store failures. onExists is the ballot error a
// vacant-address violation stands for in the calling operation.
func commitError(tag string, err error, onExists error) error {
	switch {
	case errors.Is(err, storage.ErrRecordExists):
		return fmt.Errorf("%w: %v", onExists, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, storage.ErrBatchTooLarge):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	logging.Log.Errorf("%s: commit failed: %v", tag, err)
	return err
}
