package ballot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Mickael78000/voting-dapp/events"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/Mickael78000/voting-dapp/records"
	"github.com/Mickael78000/voting-dapp/storage"
)

type Allocation struct {
	Candidate identity.Address
	Votes     uint8
}

// Ballot is one voter's submission. Candidates lists every candidate address
// the ballot may touch; allocations are resolved against that set only.
type Ballot struct {
	PollID     uint32
	Plus       []Allocation
	Minus      []Allocation
	Candidates []identity.Address
}

type tally struct {
	rec       *storage.Record
	candidate *records.Candidate
	touched   bool
}

func sumVotes(allocs []Allocation) (uint8, error) {
	var sum uint8
	for _, a := range allocs {
		if a.Votes > math.MaxUint8-sum {
			return 0, ErrOverflow
		}
		sum += a.Votes
	}
	return sum, nil
}

// Vote validates the ballot against the poll's D21 budget and applies every
// allocation plus the voter latch in one unit.
func (e *Engine) Vote(ctx context.Context, signer string, b Ballot) (*Receipt, error) {
	if err := requireSigner(signer); err != nil {
		return nil, err
	}

	_, poll, err := e.loadPoll(ctx, b.PollID)
	if err != nil {
		return nil, err
	}

	voterAddr := identity.VoterRecordAddress([]byte(signer), b.PollID)
	voterRec, err := e.store.Get(ctx, voterAddr)
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		voterRec = nil
	case err != nil:
		logging.Log.Errorf("VOTER: failed to load voter record %s: %v", voterAddr, err)
		return nil, err
	default:
		vr, err := records.UnmarshalVoterRecord(voterRec.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if vr.HasVoted {
			return nil, fmt.Errorf("%w: poll %d", ErrAlreadyVoted, b.PollID)
		}
	}

	sumPlus, err := sumVotes(b.Plus)
	if err != nil {
		return nil, fmt.Errorf("%w: plus votes exceed %d", err, math.MaxUint8)
	}
	sumMinus, err := sumVotes(b.Minus)
	if err != nil {
		return nil, fmt.Errorf("%w: minus votes exceed %d", err, math.MaxUint8)
	}

	if sumPlus > poll.PlusVotesAllowed {
		return nil, fmt.Errorf("%w: %d allocated, %d allowed", ErrTooManyPlus, sumPlus, poll.PlusVotesAllowed)
	}
	if sumMinus > poll.MinusVotesAllowed {
		return nil, fmt.Errorf("%w: %d allocated, %d allowed", ErrTooManyMinus, sumMinus, poll.MinusVotesAllowed)
	}
	if uint64(sumPlus)+uint64(sumMinus) >= poll.CandidateCount {
		return nil, fmt.Errorf("%w: %d votes for %d candidates", ErrInvalidTotal, uint64(sumPlus)+uint64(sumMinus), poll.CandidateCount)
	}
	if sumMinus > 0 && sumPlus < 2 {
		return nil, fmt.Errorf("%w: %d plus votes", ErrMinusRequiresTwoPlus, sumPlus)
	}

	tallies, err := e.loadTallies(ctx, b)
	if err != nil {
		return nil, err
	}

	var order []identity.Address
	apply := func(allocs []Allocation, minus bool) error {
		for _, a := range allocs {
			t, ok := tallies[a.Candidate]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingCandidate, a.Candidate)
			}
			counter := &t.candidate.PlusVotes
			if minus {
				counter = &t.candidate.MinusVotes
			}
			if *counter > math.MaxUint64-uint64(a.Votes) {
				return fmt.Errorf("%w: tally of candidate %s", ErrOverflow, a.Candidate)
			}
			*counter += uint64(a.Votes)
			if !t.touched {
				t.touched = true
				order = append(order, a.Candidate)
			}
		}
		return nil
	}
	if err := apply(b.Plus, false); err != nil {
		return nil, err
	}
	if err := apply(b.Minus, true); err != nil {
		return nil, err
	}

	var batch storage.Batch
	for _, addr := range order {
		t := tallies[addr]
		updated := t.rec.Clone()
		updated.Data = t.candidate.Marshal()
		batch.Update(updated)
	}

	latch := &records.VoterRecord{HasVoted: true, PlusUsed: sumPlus, MinusUsed: sumMinus}
	if voterRec == nil {
		batch.Create(&storage.Record{
			Address: voterAddr,
			Kind:    storage.KindVoterRecord,
			PollID:  b.PollID,
			Owner:   signer,
			Deposit: records.Deposit(records.VoterRecordSize),
			Data:    latch.Marshal(),
		})
	} else {
		updated := voterRec.Clone()
		updated.Data = latch.Marshal()
		batch.Update(updated)
	}

	if err := e.store.Commit(ctx, &batch); err != nil {
		return nil, commitError("BALLOT", err, ErrAlreadyVoted)
	}

	receipt, err := e.newReceipt(OpVote, signer, &batch)
	if err != nil {
		return nil, err
	}
	logging.Log.Infof("BALLOT: vote cast in poll %d (plus %d, minus %d, %d candidates)", b.PollID, sumPlus, sumMinus, len(order))
	e.publish(ctx, events.BallotCast, b.PollID, receipt, map[string]string{
		"plusUsed":  strconv.Itoa(int(sumPlus)),
		"minusUsed": strconv.Itoa(int(sumMinus)),
	})
	return receipt, nil
}

// loadTallies fetches the supplied candidate set once. Addresses that do not
// hold a candidate of this poll are left out, so allocations naming them
// fail as missing.
func (e *Engine) loadTallies(ctx context.Context, b Ballot) (map[identity.Address]*tally, error) {
	recs, err := e.store.GetMany(ctx, b.Candidates)
	if err != nil {
		logging.Log.Errorf("BALLOT: failed to load candidates of poll %d: %v", b.PollID, err)
		return nil, err
	}

	tallies := make(map[identity.Address]*tally, len(recs))
	for addr, rec := range recs {
		if rec.Kind != storage.KindCandidate || rec.PollID != b.PollID {
			continue
		}
		c, err := records.UnmarshalCandidate(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		tallies[addr] = &tally{rec: rec, candidate: c}
	}
	return tallies, nil
}
