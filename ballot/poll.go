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

// MinWinners is the smallest seat count the budget formula is defined for.
const MinWinners = 2

type PollParams struct {
	PollID      uint32
	Description string
	Start       uint64
	End         uint64
	Winners     uint8
}

func (e *Engine) InitializePoll(ctx context.Context, signer string, params PollParams) (*Receipt, error) {
	if err := requireSigner(signer); err != nil {
		return nil, err
	}
	if len(params.Description) > records.MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description is %d bytes, at most %d allowed",
			ErrInvalidInput, len(params.Description), records.MaxDescriptionLength)
	}
	if params.Winners < MinWinners {
		return nil, fmt.Errorf("%w: winners must be at least %d", ErrInvalidInput, MinWinners)
	}

	plus, minus := Budget(params.Winners)
	poll := &records.Poll{
		PollID:            params.PollID,
		Description:       params.Description,
		Start:             params.Start,
		End:               params.End,
		Winners:           params.Winners,
		PlusVotesAllowed:  plus,
		MinusVotesAllowed: minus,
	}
	data, err := poll.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var batch storage.Batch
	batch.Create(&storage.Record{
		Address: identity.PollAddress(params.PollID),
		Kind:    storage.KindPoll,
		PollID:  params.PollID,
		Owner:   signer,
		Deposit: records.Deposit(records.PollSize),
		Data:    data,
	})
	if err := e.store.Commit(ctx, &batch); err != nil {
		return nil, commitError("POLL", err, ErrAlreadyExists)
	}

	receipt, err := e.newReceipt(OpInitializePoll, signer, &batch)
	if err != nil {
		return nil, err
	}
	logging.Log.Infof("POLL: initialized poll %d with %d winners (plus %d, minus %d)", params.PollID, params.Winners, plus, minus)
	e.publish(ctx, events.PollInitialized, params.PollID, receipt, map[string]string{
		"winners":           strconv.Itoa(int(params.Winners)),
		"plusVotesAllowed":  strconv.Itoa(int(plus)),
		"minusVotesAllowed": strconv.Itoa(int(minus)),
	})
	return receipt, nil
}

func (e *Engine) checkCandidateName(name string) error {
	if !e.strictNames {
		return nil
	}
	if name == "" {
		return fmt.Errorf("%w: candidate name is empty", ErrInvalidInput)
	}
	if len(name) > records.NameLength {
		return fmt.Errorf("%w: candidate name is %d bytes, at most %d allowed", ErrInvalidInput, len(name), records.NameLength)
	}
	return nil
}

// InitializeCandidate registers name under the poll and bumps the poll's
// candidate count in the same unit.
func (e *Engine) InitializeCandidate(ctx context.Context, signer string, pollID uint32, name string) (*Receipt, error) {
	if err := requireSigner(signer); err != nil {
		return nil, err
	}
	if err := e.checkCandidateName(name); err != nil {
		return nil, err
	}

	pollRec, poll, err := e.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	addr := identity.CandidateAddress(pollID, name)
	if _, err := e.store.Get(ctx, addr); err == nil {
		return nil, fmt.Errorf("%w: candidate %q in poll %d", ErrAlreadyExists, name, pollID)
	} else if !errors.Is(err, storage.ErrRecordNotFound) {
		logging.Log.Errorf("CANDIDATE: failed to look up candidate %s: %v", addr, err)
		return nil, err
	}

	if poll.CandidateCount == math.MaxUint64 {
		return nil, fmt.Errorf("%w: candidate count of poll %d", ErrOverflow, pollID)
	}
	poll.CandidateCount++

	pollData, err := poll.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	candidate := &records.Candidate{Name: records.NameBuffer(name)}

	updated := pollRec.Clone()
	updated.Data = pollData

	var batch storage.Batch
	batch.Create(&storage.Record{
		Address: addr,
		Kind:    storage.KindCandidate,
		PollID:  pollID,
		Owner:   signer,
		Deposit: records.Deposit(records.CandidateSize),
		Data:    candidate.Marshal(),
	})
	batch.Update(updated)
	if err := e.store.Commit(ctx, &batch); err != nil {
		return nil, commitError("CANDIDATE", err, ErrAlreadyExists)
	}

	receipt, err := e.newReceipt(OpInitializeCandidate, signer, &batch)
	if err != nil {
		return nil, err
	}
	logging.Log.Infof("CANDIDATE: registered %q in poll %d (%d candidates)", candidate.DisplayName(), pollID, poll.CandidateCount)
	e.publish(ctx, events.CandidateInitialized, pollID, receipt, map[string]string{
		"name":           candidate.DisplayName(),
		"candidateCount": strconv.FormatUint(poll.CandidateCount, 10),
	})
	return receipt, nil
}
