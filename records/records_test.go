package records

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, 143, PollSize)
	assert.Equal(t, 56, CandidateSize)
	assert.Equal(t, 11, VoterRecordSize)
}

func TestPollLayout(t *testing.T) {
	poll := &Poll{
		PollID:            42,
		Description:       "Test poll?",
		Start:             1,
		End:               999,
		CandidateCount:    7,
		Winners:           5,
		PlusVotesAllowed:  5,
		MinusVotesAllowed: 1,
	}

	data, err := poll.Marshal()
	require.NoError(t, err)
	require.Len(t, data, PollSize)

	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(data[8:12]), "poll id follows the discriminator")
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(data[12:16]), "description length prefix")
	assert.Equal(t, "Test poll?", string(data[16:26]))
	assert.Equal(t, uint64(999), binary.LittleEndian.Uint64(data[124:132]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[132:140]))
	assert.Equal(t, []byte{5, 5, 1}, data[140:143])

	decoded, err := UnmarshalPoll(data)
	require.NoError(t, err)
	assert.Equal(t, poll, decoded)
}

func TestPollDescriptionBound(t *testing.T) {
	t.Run("Happy path - exactly 100 bytes", func(t *testing.T) {
		poll := &Poll{Description: strings.Repeat("a", MaxDescriptionLength)}
		_, err := poll.Marshal()
		assert.NoError(t, err)
	})

	t.Run("Unhappy path - 101 bytes", func(t *testing.T) {
		poll := &Poll{Description: strings.Repeat("a", MaxDescriptionLength+1)}
		_, err := poll.Marshal()
		assert.ErrorIs(t, err, ErrDescriptionTooLong)
	})
}

func TestCandidateNameBuffer(t *testing.T) {
	t.Run("Happy path - short names are zero padded", func(t *testing.T) {
		c := &Candidate{Name: NameBuffer("Alice")}
		assert.Equal(t, "Alice", c.DisplayName())
		assert.Equal(t, byte(0), c.Name[5])
	})

	t.Run("Happy path - long names keep the first 32 bytes", func(t *testing.T) {
		long := strings.Repeat("x", 40)
		c := &Candidate{Name: NameBuffer(long)}
		assert.Equal(t, long[:NameLength], c.DisplayName())
	})
}

func TestCandidateLayout(t *testing.T) {
	c := &Candidate{Name: NameBuffer("Bob"), PlusVotes: 3, MinusVotes: 1}
	data := c.Marshal()

	assert.Equal(t, "Bob", string(data[8:11]))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[40:48]))
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[48:56]))
}

func TestDiscriminatorMismatch(t *testing.T) {
	candidate := (&Candidate{Name: NameBuffer("Bob")}).Marshal()

	_, err := UnmarshalVoterRecord(candidate[:VoterRecordSize])
	assert.True(t, errors.Is(err, ErrInvalidRecord), "a candidate payload must not decode as a voter record")

	_, err = UnmarshalPoll(candidate)
	assert.True(t, errors.Is(err, ErrInvalidRecord), "size mismatch must be rejected")
}

func TestVoterRecordLayout(t *testing.T) {
	data := (&VoterRecord{HasVoted: true, PlusUsed: 5, MinusUsed: 1}).Marshal()
	assert.Equal(t, []byte{1, 5, 1}, data[8:])

	data[8] = 2
	_, err := UnmarshalVoterRecord(data)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDeposit(t *testing.T) {
	assert.Equal(t, uint64((128+11)*6960), Deposit(VoterRecordSize))
}
