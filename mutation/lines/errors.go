package lines

import (
	"github.com/cockroachdb/errors"
)

// Kind classifies an operator failure so callers can branch without
// inspecting message text.
type Kind int

const (
	KindNone Kind = iota
	KindUsage
	KindRange
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindRange:
		return "range"
	case KindUnexpected:
		return "unexpected"
	default:
		return "none"
	}
}

// Sentinel errors for each Kind. Returned errors wrap one of these.
var (
	// ErrUsage is returned when the buffer is too small to be meaningful.
	ErrUsage = errors.New("usage error")

	// ErrRange is returned when a cursor or line index is out of bounds.
	ErrRange = errors.New("index out of range")

	// ErrUnexpected is returned when a required buffer is nil.
	ErrUnexpected = errors.New("unexpected nil input")
)

// KindOf reports the Kind of err, or KindNone if err does not wrap one of
// the sentinels.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUsage):
		return KindUsage
	case errors.Is(err, ErrRange):
		return KindRange
	case errors.Is(err, ErrUnexpected):
		return KindUnexpected
	default:
		return KindNone
	}
}

// checkBuffer enforces the preconditions shared by every entry point.
func checkBuffer(buf []byte) error {
	if buf == nil {
		return errors.Wrap(ErrUnexpected, "buffer is nil")
	}
	if len(buf) == 0 {
		return errors.Wrap(ErrUsage, "buffer is empty")
	}
	return nil
}

func checkIndex(buf []byte, index int) error {
	if err := checkBuffer(buf); err != nil {
		return err
	}
	if index < 0 || index > len(buf)-1 {
		return errors.Wrapf(ErrRange, "index %d outside buffer of size %d", index, len(buf))
	}
	return nil
}
