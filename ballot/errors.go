package ballot

import "errors"

var (
	ErrAlreadyExists        = errors.New("record already exists")
	ErrNotFound             = errors.New("record not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrOverflow             = errors.New("arithmetic overflow")
	ErrAlreadyVoted         = errors.New("voter has already voted in this poll")
	ErrTooManyPlus          = errors.New("too many plus votes")
	ErrTooManyMinus         = errors.New("too many minus votes")
	ErrInvalidTotal         = errors.New("total votes must be fewer than the number of candidates")
	ErrMinusRequiresTwoPlus = errors.New("minus votes require at least two plus votes")
	ErrMissingCandidate     = errors.New("candidate account not supplied")
	ErrUnauthorized         = errors.New("signer does not own the record")
	ErrPollOpen             = errors.New("poll has not ended yet")
	ErrConflict             = errors.New("records changed concurrently, retry")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrNotFound, "NotFound"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrOverflow, "Overflow"},
	{ErrAlreadyVoted, "AlreadyVoted"},
	{ErrTooManyPlus, "TooManyPlus"},
	{ErrTooManyMinus, "TooManyMinus"},
	{ErrInvalidTotal, "InvalidTotal"},
	{ErrMinusRequiresTwoPlus, "MinusRequiresTwoPlus"},
	{ErrMissingCandidate, "MissingCandidate"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrPollOpen, "PollOpen"},
	{ErrConflict, "Conflict"},
}

// Code returns the stable kind name of err, or "Internal" for anything that
// is not one of the ballot errors.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}
