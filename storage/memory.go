package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Mickael78000/voting-dapp/identity"
	"github.com/Mickael78000/voting-dapp/logging"
)

// MemoryRecordStore keeps records in a map. Commit validates the whole batch
// against the current state before touching anything.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[identity.Address]*Record
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[identity.Address]*Record)}
}

func (s *MemoryRecordStore) Get(_ context.Context, addr identity.Address) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[addr]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryRecordStore) GetMany(_ context.Context, addrs []identity.Address) (map[identity.Address]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[identity.Address]*Record, len(addrs))
	for _, addr := range addrs {
		if r, ok := s.records[addr]; ok {
			out[addr] = r.Clone()
		}
	}
	return out, nil
}

func (s *MemoryRecordStore) ListByPoll(_ context.Context, kind Kind, pollID uint32) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, r := range s.records {
		if r.Kind == kind && r.PollID == pollID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out, nil
}

func (s *MemoryRecordStore) Commit(_ context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Track the version each address will have after the ops seen so far, so
	// a batch touching one address twice is checked against its own writes.
	type pending struct {
		exists  bool
		version uint64
	}
	staged := make(map[identity.Address]pending)
	lookup := func(addr identity.Address) pending {
		if p, ok := staged[addr]; ok {
			return p
		}
		if r, ok := s.records[addr]; ok {
			return pending{exists: true, version: r.Version}
		}
		return pending{}
	}

	for _, op := range batch.Ops {
		addr := op.Record.Address
		current := lookup(addr)
		switch op.Type {
		case OpCreate:
			if current.exists {
				logging.Log.Warnf("STORE: create on occupied address %s", addr)
				return fmt.Errorf("%w: %s", ErrRecordExists, addr)
			}
			staged[addr] = pending{exists: true, version: 0}
		case OpUpdate, OpDelete:
			if !current.exists || current.version != op.Record.Version {
				logging.Log.Warnf("STORE: %s on %s rejected, expected version %d", op.Type, addr, op.Record.Version)
				return fmt.Errorf("%w: %s", ErrConflict, addr)
			}
			if op.Type == OpUpdate {
				staged[addr] = pending{exists: true, version: current.version + 1}
			} else {
				staged[addr] = pending{}
			}
		default:
			return fmt.Errorf("unknown op type %d", op.Type)
		}
	}

	for _, op := range batch.Ops {
		addr := op.Record.Address
		switch op.Type {
		case OpCreate:
			r := op.Record.Clone()
			r.Version = 0
			s.records[addr] = r
		case OpUpdate:
			r := op.Record.Clone()
			r.Version = op.Record.Version + 1
			s.records[addr] = r
		case OpDelete:
			delete(s.records, addr)
		}
	}
	return nil
}
