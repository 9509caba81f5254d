package models

import (
	"github.com/Mickael78000/voting-dapp/ballot"
	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/records"
)

type CreatePollRequest struct {
	PollID      uint32 `json:"pollId"`
	Description string `json:"description"`
	Start       uint64 `json:"start"`
	End         uint64 `json:"end"`
	Winners     uint8  `json:"winners"`
}

type PollResponse struct {
	Address           string              `json:"address"`
	PollID            uint32              `json:"pollId"`
	Description       string              `json:"description"`
	Start             uint64              `json:"start"`
	End               uint64              `json:"end"`
	CandidateCount    uint64              `json:"candidateCount"`
	Winners           uint8               `json:"winners"`
	PlusVotesAllowed  uint8               `json:"plusVotesAllowed"`
	MinusVotesAllowed uint8               `json:"minusVotesAllowed"`
	Candidates        []CandidateResponse `json:"candidates,omitempty"`
}

type CreateCandidateRequest struct {
	Name string `json:"name"`
}

type CandidateResponse struct {
	Address    string `json:"address"`
	PollID     uint32 `json:"pollId"`
	Name       string `json:"name"`
	PlusVotes  uint64 `json:"plusVotes"`
	MinusVotes uint64 `json:"minusVotes"`
}

func (r CreatePollRequest) ToParams() ballot.PollParams {
	return ballot.PollParams{
		PollID:      r.PollID,
		Description: r.Description,
		Start:       r.Start,
		End:         r.End,
		Winners:     r.Winners,
	}
}

func TransformPollToResponse(p *records.Poll, candidates []*ballot.CandidateState) PollResponse {
	resp := PollResponse{
		Address:           identity.PollAddress(p.PollID).String(),
		PollID:            p.PollID,
		Description:       p.Description,
		Start:             p.Start,
		End:               p.End,
		CandidateCount:    p.CandidateCount,
		Winners:           p.Winners,
		PlusVotesAllowed:  p.PlusVotesAllowed,
		MinusVotesAllowed: p.MinusVotesAllowed,
	}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, TransformCandidateToResponse(c))
	}
	return resp
}

func TransformCandidateToResponse(c *ballot.CandidateState) CandidateResponse {
	return CandidateResponse{
		Address:    c.Address.String(),
		PollID:     c.PollID,
		Name:       c.DisplayName(),
		PlusVotes:  c.PlusVotes,
		MinusVotes: c.MinusVotes,
	}
}
