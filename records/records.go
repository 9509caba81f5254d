// Package records holds the fixed-width binary layouts of the persistent
// records. All integers are little-endian; text lives in zero-padded buffers.
package records

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	DiscriminatorSize    = 8
	MaxDescriptionLength = 100
	NameLength           = 32

	PollSize        = DiscriminatorSize + 4 + 4 + MaxDescriptionLength + 8 + 8 + 8 + 1 + 1 + 1
	CandidateSize   = DiscriminatorSize + NameLength + 8 + 8
	VoterRecordSize = DiscriminatorSize + 1 + 1 + 1

	// StorageOverhead and DepositPerByte price the deposit held while a record exists.
	StorageOverhead = 128
	DepositPerByte  = 6960
)

var (
	ErrInvalidRecord       = errors.New("invalid record payload")
	ErrDescriptionTooLong  = fmt.Errorf("description longer than %d bytes", MaxDescriptionLength)
	pollDiscriminator      = discriminator("Poll")
	candidateDiscriminator = discriminator("Candidate")
	voterDiscriminator     = discriminator("VoterRecord")
)

func discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Deposit is the storage deposit owed for a payload of the given size.
func Deposit(size int) uint64 {
	return uint64(StorageOverhead+size) * DepositPerByte
}

type Poll struct {
	PollID            uint32
	Description       string
	Start             uint64
	End               uint64
	CandidateCount    uint64
	Winners           uint8
	PlusVotesAllowed  uint8
	MinusVotesAllowed uint8
}

type Candidate struct {
	Name       [NameLength]byte
	PlusVotes  uint64
	MinusVotes uint64
}

type VoterRecord struct {
	HasVoted  bool
	PlusUsed  uint8
	MinusUsed uint8
}

// NameBuffer copies up to NameLength bytes of name into a zero-padded buffer.
func NameBuffer(name string) [NameLength]byte {
	var buf [NameLength]byte
	copy(buf[:], name)
	return buf
}

// DisplayName trims the zero padding of the stored name.
func (c *Candidate) DisplayName() string {
	return string(bytes.TrimRight(c.Name[:], "\x00"))
}

func (p *Poll) Marshal() ([]byte, error) {
	if len(p.Description) > MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}

	buf := make([]byte, PollSize)
	copy(buf, pollDiscriminator[:])
	off := DiscriminatorSize
	binary.LittleEndian.PutUint32(buf[off:], p.PollID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(p.Description)))
	off += 4
	copy(buf[off:off+MaxDescriptionLength], p.Description)
	off += MaxDescriptionLength
	binary.LittleEndian.PutUint64(buf[off:], p.Start)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.End)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], p.CandidateCount)
	off += 8
	buf[off] = p.Winners
	buf[off+1] = p.PlusVotesAllowed
	buf[off+2] = p.MinusVotesAllowed
	return buf, nil
}

func UnmarshalPoll(data []byte) (*Poll, error) {
	if err := checkHeader(data, PollSize, pollDiscriminator); err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}

	p := &Poll{}
	off := DiscriminatorSize
	p.PollID = binary.LittleEndian.Uint32(data[off:])
	off += 4
	descLen := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if descLen > MaxDescriptionLength {
		return nil, fmt.Errorf("poll: %w: description length %d", ErrInvalidRecord, descLen)
	}
	p.Description = string(data[off : off+int(descLen)])
	off += MaxDescriptionLength
	p.Start = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.End = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.CandidateCount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	p.Winners = data[off]
	p.PlusVotesAllowed = data[off+1]
	p.MinusVotesAllowed = data[off+2]
	return p, nil
}

func (c *Candidate) Marshal() []byte {
	buf := make([]byte, CandidateSize)
	copy(buf, candidateDiscriminator[:])
	off := DiscriminatorSize
	copy(buf[off:off+NameLength], c.Name[:])
	off += NameLength
	binary.LittleEndian.PutUint64(buf[off:], c.PlusVotes)
	binary.LittleEndian.PutUint64(buf[off+8:], c.MinusVotes)
	return buf
}

func UnmarshalCandidate(data []byte) (*Candidate, error) {
	if err := checkHeader(data, CandidateSize, candidateDiscriminator); err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}

	c := &Candidate{}
	off := DiscriminatorSize
	copy(c.Name[:], data[off:off+NameLength])
	off += NameLength
	c.PlusVotes = binary.LittleEndian.Uint64(data[off:])
	c.MinusVotes = binary.LittleEndian.Uint64(data[off+8:])
	return c, nil
}

func (v *VoterRecord) Marshal() []byte {
	buf := make([]byte, VoterRecordSize)
	copy(buf, voterDiscriminator[:])
	if v.HasVoted {
		buf[DiscriminatorSize] = 1
	}
	buf[DiscriminatorSize+1] = v.PlusUsed
	buf[DiscriminatorSize+2] = v.MinusUsed
	return buf
}

func UnmarshalVoterRecord(data []byte) (*VoterRecord, error) {
	if err := checkHeader(data, VoterRecordSize, voterDiscriminator); err != nil {
		return nil, fmt.Errorf("voter record: %w", err)
	}

	switch data[DiscriminatorSize] {
	case 0, 1:
	default:
		return nil, fmt.Errorf("voter record: %w: has_voted byte %d", ErrInvalidRecord, data[DiscriminatorSize])
	}
	return &VoterRecord{
		HasVoted:  data[DiscriminatorSize] == 1,
		PlusUsed:  data[DiscriminatorSize+1],
		MinusUsed: data[DiscriminatorSize+2],
	}, nil
}

func checkHeader(data []byte, size int, want [DiscriminatorSize]byte) error {
	if len(data) != size {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRecord, size, len(data))
	}
	if !bytes.Equal(data[:DiscriminatorSize], want[:]) {
		return fmt.Errorf("%w: discriminator mismatch", ErrInvalidRecord)
	}
	return nil
}
