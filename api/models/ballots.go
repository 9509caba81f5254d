package models

import (
	"fmt"
	"time"

	"github.com/Mickael78000/voting-dapp/ballot"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/records"
)

type AllocationEntry struct {
	Candidate string `json:"candidate"`
	Votes     uint8  `json:"votes"`
}

// CastBallotRequest carries hex candidate addresses. When Candidates is
// empty the set defaults to every address named by an allocation.
type CastBallotRequest struct {
	Plus       []AllocationEntry `json:"plus"`
	Minus      []AllocationEntry `json:"minus"`
	Candidates []string          `json:"candidates"`
}

type ReceiptResponse struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Signer      string    `json:"signer"`
	Touched     []string  `json:"touched"`
	CommittedAt time.Time `json:"committedAt"`
}

type CloseVoterRecordResponse struct {
	ReceiptResponse
	Payer  string `json:"payer"`
	Refund uint64 `json:"refund"`
}

type VoterRecordResponse struct {
	Address   string `json:"address"`
	PollID    uint32 `json:"pollId"`
	Voter     string `json:"voter"`
	HasVoted  bool   `json:"hasVoted"`
	PlusUsed  uint8  `json:"plusUsed"`
	MinusUsed uint8  `json:"minusUsed"`
}

func parseAllocations(entries []AllocationEntry) ([]ballot.Allocation, error) {
	out := make([]ballot.Allocation, 0, len(entries))
	for _, e := range entries {
		addr, err := identity.ParseAddress(e.Candidate)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %q", ballot.ErrInvalidInput, e.Candidate)
		}
		out = append(out, ballot.Allocation{Candidate: addr, Votes: e.Votes})
	}
	return out, nil
}

func (r CastBallotRequest) ToBallot(pollID uint32) (ballot.Ballot, error) {
	plus, err := parseAllocations(r.Plus)
	if err != nil {
		return ballot.Ballot{}, err
	}
	minus, err := parseAllocations(r.Minus)
	if err != nil {
		return ballot.Ballot{}, err
	}

	b := ballot.Ballot{PollID: pollID, Plus: plus, Minus: minus}
	if len(r.Candidates) == 0 {
		for _, a := range append(append([]ballot.Allocation{}, plus...), minus...) {
			b.Candidates = append(b.Candidates, a.Candidate)
		}
		return b, nil
	}
	for _, c := range r.Candidates {
		addr, err := identity.ParseAddress(c)
		if err != nil {
			return ballot.Ballot{}, fmt.Errorf("%w: candidate %q", ballot.ErrInvalidInput, c)
		}
		b.Candidates = append(b.Candidates, addr)
	}
	return b, nil
}

func TransformReceiptToResponse(r *ballot.Receipt) ReceiptResponse {
	touched := make([]string, 0, len(r.Touched))
	for _, a := range r.Touched {
		touched = append(touched, a.String())
	}
	return ReceiptResponse{
		ID:          r.ID,
		Operation:   r.Operation,
		Signer:      r.Signer,
		Touched:     touched,
		CommittedAt: r.CommittedAt,
	}
}

func TransformCloseReceiptToResponse(r *ballot.CloseReceipt) CloseVoterRecordResponse {
	return CloseVoterRecordResponse{
		ReceiptResponse: TransformReceiptToResponse(&r.Receipt),
		Payer:           r.Payer,
		Refund:          r.Refund,
	}
}

func TransformVoterRecordToResponse(pollID uint32, voter string, vr *records.VoterRecord) VoterRecordResponse {
	return VoterRecordResponse{
		Address:   identity.VoterRecordAddress([]byte(voter), pollID).String(),
		PollID:    pollID,
		Voter:     voter,
		HasVoted:  vr.HasVoted,
		PlusUsed:  vr.PlusUsed,
		MinusUsed: vr.MinusUsed,
	}
}
