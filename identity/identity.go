// Package identity derives the deterministic addresses of every persistent
// record. Any caller holding the same inputs computes the same address, so no
// directory of polls, candidates or voters is ever stored.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// Size is the width of an Address in bytes.
	Size = sha256.Size

	namespace = "d21-ballot/v1"

	TagPoll      = "poll"
	TagCandidate = "cand"
	TagVoter     = "voter"
)

var ErrMalformedAddress = errors.New("malformed address")

// Address is the identity of one record in the record store.
type Address [Size]byte

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes the hex form produced by Address.String.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	if len(raw) != Size {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedAddress, Size, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// AddressFromBytes copies a raw 32 byte identity.
func AddressFromBytes(raw []byte) (Address, error) {
	var addr Address
	if len(raw) != Size {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedAddress, Size, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func PollIDBytes(pollID uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, pollID)
	return buf
}

// Derive hashes the namespace, the tag and every seed. Each element is
// prefixed with its length so adjacent seeds cannot trade bytes.
func Derive(tag string, seeds ...[]byte) Address {
	h := sha256.New()
	writeSeed(h.Write, []byte(namespace))
	writeSeed(h.Write, []byte(tag))
	for _, seed := range seeds {
		writeSeed(h.Write, seed)
	}

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

func writeSeed(write func([]byte) (int, error), seed []byte) {
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(seed)))
	_, _ = write(prefix[:])
	_, _ = write(seed)
}

func PollAddress(pollID uint32) Address {
	return Derive(TagPoll, PollIDBytes(pollID))
}

// CandidateAddress uses the name bytes exactly as supplied, before any
// truncation applied to the stored name.
func CandidateAddress(pollID uint32, name string) Address {
	return Derive(TagCandidate, PollIDBytes(pollID), []byte(name))
}

func VoterRecordAddress(voter []byte, pollID uint32) Address {
	return Derive(TagVoter, voter, PollIDBytes(pollID))
}
