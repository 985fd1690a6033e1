package lines

import (
	"github.com/cockroachdb/errors"
)

// Sink hands out output buffers by key. Allocate returns a zero-initialised
// slice of exactly size bytes whose lifetime the sink manages.
type Sink interface {
	Allocate(key string, size int) ([]byte, error)
}

// Op names one of the line operators.
type Op int

const (
	OpDeleteLine Op = iota
	OpDeleteSequentialLines
	OpDuplicateLine
	OpCopyLineCloseBy
	OpRepeatLine
	OpSwapLine
	// OpPermuteLines is experimental and not part of AllOps.
	OpPermuteLines
)

// AllOps lists the stable operators.
var AllOps = []Op{
	OpDeleteLine,
	OpDeleteSequentialLines,
	OpDuplicateLine,
	OpCopyLineCloseBy,
	OpRepeatLine,
	OpSwapLine,
}

var opNames = map[Op]string{
	OpDeleteLine:            "delete_line",
	OpDeleteSequentialLines: "delete_sequential_lines",
	OpDuplicateLine:         "duplicate_line",
	OpCopyLineCloseBy:       "copy_line_close_by",
	OpRepeatLine:            "repeat_line",
	OpSwapLine:              "swap_line",
	OpPermuteLines:          "permute_lines",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOp maps an operator name back to its Op.
func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name {
			return op, nil
		}
	}
	return 0, errors.Newf("unknown line operator %q", name)
}

// Engine applies line operators using a random source and an output sink.
// It holds no mutable state of its own.
type Engine struct {
	rng  Rand
	sink Sink
}

// NewEngine creates an engine drawing from rng and writing through sink.
func NewEngine(rng Rand, sink Sink) *Engine {
	return &Engine{rng: rng, sink: sink}
}

// Apply runs op on src.
func (e *Engine) Apply(op Op, key string, src []byte, cursor int) ([]byte, error) {
	switch op {
	case OpDeleteLine:
		return e.DeleteLine(key, src, cursor)
	case OpDeleteSequentialLines:
		return e.DeleteSequentialLines(key, src, cursor)
	case OpDuplicateLine:
		return e.DuplicateLine(key, src, cursor)
	case OpCopyLineCloseBy:
		return e.CopyLineCloseBy(key, src, cursor)
	case OpRepeatLine:
		return e.RepeatLine(key, src, cursor)
	case OpSwapLine:
		return e.SwapLine(key, src, cursor)
	case OpPermuteLines:
		return e.PermuteLines(key, src, cursor)
	default:
		return nil, errors.Wrapf(ErrUsage, "unknown operator %d", int(op))
	}
}

// DeleteLine removes one line past the cursor. Binary-looking input passes
// through unchanged.
func (e *Engine) DeleteLine(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, false)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	line, err := e.pickLine(src, remaining)
	if err != nil {
		return nil, err
	}
	return e.emit(key, len(src)-line.Length, src[:line.Start], src[line.End():])
}

// DeleteSequentialLines removes a contiguous run of lines past the cursor.
// Binary-looking input passes through unchanged.
func (e *Engine) DeleteSequentialLines(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, false)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	from := e.rng.Draw(0, remaining-1)
	to := e.rng.Draw(from, remaining-1)
	first, err := ResolveLine(src, from, remaining)
	if err != nil {
		return nil, err
	}
	last, err := ResolveLine(src, to, remaining)
	if err != nil {
		return nil, err
	}
	removed := last.End() - first.Start
	return e.emit(key, len(src)-removed, src[:first.Start], src[last.End():])
}

// DuplicateLine inserts a copy of one line directly after it. Only
// binary-looking input is rewritten.
func (e *Engine) DuplicateLine(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, true)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	line, err := e.pickLine(src, remaining)
	if err != nil {
		return nil, err
	}
	body := src[line.Start:line.End()]
	return e.emit(key, len(src)+line.Length, src[:line.End()], body, src[line.End():])
}

// CopyLineCloseBy inserts a copy of one line in front of another, possibly
// the same one. Only binary-looking input is rewritten.
func (e *Engine) CopyLineCloseBy(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, true)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	from, err := e.pickLine(src, remaining)
	if err != nil {
		return nil, err
	}
	to, err := e.pickLine(src, remaining)
	if err != nil {
		return nil, err
	}
	body := src[from.Start:from.End()]
	return e.emit(key, len(src)+from.Length, src[:to.Start], body, src[to.Start:])
}

// RepeatLine inserts RepetitionLength extra copies of one line directly
// after it. Only binary-looking input is rewritten.
func (e *Engine) RepeatLine(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, true)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	line, err := e.pickLine(src, remaining)
	if err != nil {
		return nil, err
	}
	repeats := e.rng.RepetitionLength()
	if repeats < 0 {
		return nil, errors.Wrapf(ErrRange, "negative repetition count %d", repeats)
	}

	out, err := e.sink.Allocate(key, len(src)+line.Length*repeats+1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate output")
	}
	n := copy(out, src[:line.End()])
	body := src[line.Start:line.End()]
	for i := 0; i < repeats; i++ {
		n += copy(out[n:], body)
	}
	n += copy(out[n:], src[line.End():])
	out[n] = 0
	return out, nil
}

// SwapLine exchanges one line past the cursor with the line that follows it.
// The last line has no successor and is left in place. Binary-looking input
// passes through unchanged.
func (e *Engine) SwapLine(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, false)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	total, err := CountLinesFrom(src, 0)
	if err != nil {
		return nil, err
	}
	idx := e.rng.Draw(0, remaining-1)
	first, err := ResolveLine(src, idx, remaining)
	if err != nil {
		return nil, err
	}
	next := min(idx+total-remaining+1, total-1)
	second, err := ResolveLine(src, next, total)
	if err != nil {
		return nil, err
	}
	if second.Start == first.Start {
		return e.passThrough(key, src, nil)
	}
	return e.emit(key, len(src),
		src[:first.Start],
		src[second.Start:second.End()],
		src[first.Start:first.End()],
		src[second.End():],
	)
}

// PermuteLines shuffles a window of at least two lines starting at or after
// the cursor line. Experimental: the window choice may change.
func (e *Engine) PermuteLines(key string, src []byte, cursor int) ([]byte, error) {
	remaining, rewrite, err := e.prepare(src, cursor, false)
	if err != nil || !rewrite {
		return e.passThrough(key, src, err)
	}

	list, err := SnapshotLines(src)
	if err != nil {
		return nil, err
	}
	total := list.Len()
	if total < 2 {
		return e.passThrough(key, src, nil)
	}

	start := e.rng.Draw(min(total-remaining, total-2), total-2)
	span := total - start
	window := e.rng.Draw(2, span)
	if b := BiasedLog(e.rng, span); b >= 2 && b < window {
		window = b
	}
	for i := window - 1; i > 0; i-- {
		list.Swap(start+i, start+e.rng.Draw(0, i))
	}

	out, err := e.sink.Allocate(key, list.Capacity()+1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate output")
	}
	n, err := list.Flatten(out)
	if err != nil {
		return nil, err
	}
	out[n] = 0
	return out, nil
}

// prepare validates src and cursor, counts the lines past the cursor and
// evaluates the operator's gate. wantBinary selects which classifier verdict
// enables the rewrite.
func (e *Engine) prepare(src []byte, cursor int, wantBinary bool) (int, bool, error) {
	remaining, err := CountLinesFrom(src, cursor)
	if err != nil {
		return 0, false, err
	}
	binary, err := LooksBinary(src)
	if err != nil {
		return 0, false, err
	}
	return remaining, binary == wantBinary, nil
}

func (e *Engine) pickLine(src []byte, remaining int) (Line, error) {
	return ResolveLine(src, e.rng.Draw(0, remaining-1), remaining)
}

// passThrough copies src verbatim plus the terminator, or forwards err.
func (e *Engine) passThrough(key string, src []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return e.emit(key, len(src), src)
}

// emit allocates size+1 bytes, writes parts back to back and terminates the
// result with a zero byte.
func (e *Engine) emit(key string, size int, parts ...[]byte) ([]byte, error) {
	out, err := e.sink.Allocate(key, size+1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate output")
	}
	n := 0
	for _, p := range parts {
		n += copy(out[n:], p)
	}
	out[n] = 0
	return out, nil
}
