package ballot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Mickael78000/voting-dapp/events"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
	"github.com/Mickael78000/voting-dapp/storage"
)

// CloseVoterRecord deletes a voter record and reports the deposit owed back
// to its payer. Only the owner may close it, and only once the poll has ended.
// A voter whose record is closed after the poll ended can vote again, since
// the record is recreated from scratch.
func (e *Engine) CloseVoterRecord(ctx context.Context, signer string, addr identity.Address) (*CloseReceipt, error) {
	if err := requireSigner(signer); err != nil {
		return nil, err
	}

	rec, err := e.store.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: voter record %s", ErrNotFound, addr)
		}
		logging.Log.Errorf("VOTER: failed to load voter record %s: %v", addr, err)
		return nil, err
	}
	if rec.Kind != storage.KindVoterRecord {
		return nil, fmt.Errorf("%w: voter record %s", ErrNotFound, addr)
	}
	if rec.Owner != signer {
		logging.Log.Warnf("VOTER: %s tried to close voter record %s owned by %s", signer, addr, rec.Owner)
		return nil, fmt.Errorf("%w: voter record %s", ErrUnauthorized, addr)
	}

	_, poll, err := e.loadPoll(ctx, rec.PollID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	case uint64(e.now().Unix()) <= poll.End:
		return nil, fmt.Errorf("%w: poll %d ends at %d", ErrPollOpen, rec.PollID, poll.End)
	}

	var batch storage.Batch
	batch.Delete(rec)
	if err := e.store.Commit(ctx, &batch); err != nil {
		return nil, commitError("VOTER", err, ErrConflict)
	}

	receipt, err := e.newReceipt(OpCloseVoterRecord, signer, &batch)
	if err != nil {
		return nil, err
	}
	logging.Log.Infof("VOTER: closed voter record %s, refunding %d to %s", addr, rec.Deposit, rec.Owner)
	e.publish(ctx, events.VoterRecordClosed, rec.PollID, receipt, map[string]string{
		"payer":  rec.Owner,
		"refund": strconv.FormatUint(rec.Deposit, 10),
	})
	return &CloseReceipt{Receipt: *receipt, Payer: rec.Owner, Refund: rec.Deposit}, nil
}
