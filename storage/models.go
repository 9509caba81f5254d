package storage

import (
	"context"

	"github.com/Mickael78000/voting-dapp/identity"
)

type Kind string

const (
	KindPoll        Kind = "poll"
	KindCandidate   Kind = "candidate"
	KindVoterRecord Kind = "voter_record"
)

// Record is the envelope the store keeps for every address. Data holds the
// binary payload from the records package; the remaining fields are bookkeeping.
type Record struct {
	Address identity.Address
	Kind    Kind
	PollID  uint32
	Owner   string
	Deposit uint64
	Version uint64
	Data    []byte
}

func (r *Record) Clone() *Record {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}

type OpType int

const (
	OpCreate OpType = iota
	OpUpdate
	OpDelete
)

func (t OpType) String() string {
	switch t {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is one mutation inside a Batch. For updates and deletes Record.Version is
// the version the unit read; the store rejects the batch if it has moved.
type Op struct {
	Type   OpType
	Record *Record
}

// Batch is a unit of work: every op is applied or none is.
type Batch struct {
	Ops []Op
}

func (b *Batch) Create(r *Record) {
	b.Ops = append(b.Ops, Op{Type: OpCreate, Record: r})
}

func (b *Batch) Update(r *Record) {
	b.Ops = append(b.Ops, Op{Type: OpUpdate, Record: r})
}

func (b *Batch) Delete(r *Record) {
	b.Ops = append(b.Ops, Op{Type: OpDelete, Record: r})
}

func (b *Batch) Addresses() []identity.Address {
	addrs := make([]identity.Address, 0, len(b.Ops))
	for _, op := range b.Ops {
		addrs = append(addrs, op.Record.Address)
	}
	return addrs
}

type RecordStore interface {
	Get(ctx context.Context, addr identity.Address) (*Record, error)
	GetMany(ctx context.Context, addrs []identity.Address) (map[identity.Address]*Record, error)
	ListByPoll(ctx context.Context, kind Kind, pollID uint32) ([]*Record, error)
	Commit(ctx context.Context, batch *Batch) error
}
