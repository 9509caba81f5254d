// Package events announces committed units of work to interested consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	PollInitialized      Type = "poll.initialized"
	CandidateInitialized Type = "candidate.initialized"
	BallotCast           Type = "ballot.cast"
	VoterRecordClosed    Type = "voter_record.closed"
)

// Event describes one committed unit. ReceiptID matches the receipt handed
// back to the caller.
type Event struct {
	ReceiptID  string            `json:"receiptId"`
	Type       Type              `json:"type"`
	PollID     uint32            `json:"pollId"`
	Signer     string            `json:"signer"`
	Addresses  []string          `json:"addresses"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

func (e *Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &e, nil
}

type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }

func (NopPublisher) Close() error { return nil }
