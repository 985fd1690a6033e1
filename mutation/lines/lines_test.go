package lines

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand returns queued values for Draw, clamped into the requested
// range, and a fixed repetition count.
type scriptedRand struct {
	draws   []int
	repeats int
	calls   [][2]int
}

func (r *scriptedRand) Draw(lo, hi int) int {
	r.calls = append(r.calls, [2]int{lo, hi})
	v := lo
	if len(r.draws) > 0 {
		v, r.draws = r.draws[0], r.draws[1:]
	}
	return min(max(v, lo), hi)
}

func (r *scriptedRand) RepetitionLength() int {
	return r.repeats
}

// recordingSink hands out fresh buffers and remembers what it allocated.
type recordingSink struct {
	allocs map[string]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{allocs: make(map[string]int)}
}

func (s *recordingSink) Allocate(key string, size int) ([]byte, error) {
	s.allocs[key] = size
	return make([]byte, size), nil
}

var fiveLines = []byte("Line0\nLine1\nLine2\nLine3\nLine4\x00")

func TestCountLinesFrom(t *testing.T) {
	tests := []struct {
		name  string
		buf   []byte
		index int
		want  int
	}{
		{"example", fiveLines, 0, 5},
		{"from middle", fiveLines, 12, 3},
		{"last byte", fiveLines, len(fiveLines) - 1, 1},
		{"single byte", []byte("a"), 0, 1},
		{"single delimiter", []byte("\n"), 0, 2},
		{"trailing delimiter", []byte("a\nb\n"), 0, 3},
		{"no trailing delimiter", []byte("a\nb"), 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountLinesFrom(tt.buf, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountLinesFromErrors(t *testing.T) {
	_, err := CountLinesFrom(nil, 0)
	assert.ErrorIs(t, err, ErrUnexpected)

	_, err = CountLinesFrom([]byte{}, 0)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = CountLinesFrom([]byte("abc"), 3)
	assert.ErrorIs(t, err, ErrRange)

	_, err = CountLinesFrom([]byte("abc"), -1)
	assert.Equal(t, KindRange, KindOf(err))
}

func TestResolveLine(t *testing.T) {
	tests := []struct {
		name      string
		buf       []byte
		lineIndex int
		after     int
		want      Line
	}{
		{"first line", fiveLines, 0, 5, Line{Valid: true, Start: 0, Length: 6}},
		{"middle line", fiveLines, 2, 5, Line{Valid: true, Start: 12, Length: 6}},
		{"undelimited last line", fiveLines, 4, 5, Line{Valid: true, Start: 24, Length: 6}},
		{"relative to cursor", fiveLines, 0, 3, Line{Valid: true, Start: 12, Length: 6}},
		{"relative last", fiveLines, 2, 3, Line{Valid: true, Start: 24, Length: 6}},
		{"clamped past end", fiveLines, 4, 3, Line{Valid: true, Start: 24, Length: 6}},
		{"empty trailing line", []byte("a\nb\n"), 2, 3, Line{Valid: true, Start: 4, Length: 0}},
		{"lone delimiter", []byte("\n"), 0, 2, Line{Valid: true, Start: 0, Length: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLine(tt.buf, tt.lineIndex, tt.after)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveLine mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveLineIsRepeatable(t *testing.T) {
	first, err := ResolveLine(fiveLines, 1, 4)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := ResolveLine(fiveLines, 1, 4)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveLineErrors(t *testing.T) {
	_, err := ResolveLine(fiveLines, 5, 5)
	assert.ErrorIs(t, err, ErrRange)

	_, err = ResolveLine(fiveLines, 0, 6)
	assert.ErrorIs(t, err, ErrRange)

	_, err = ResolveLine(fiveLines, -1, 5)
	assert.ErrorIs(t, err, ErrRange)

	_, err = ResolveLine(nil, 0, 1)
	assert.ErrorIs(t, err, ErrUnexpected)
}

func TestLooksBinary(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"printable", []byte("hello world\n"), false},
		{"leading zero", []byte{0, 'a', 'b'}, true},
		{"high bit first", []byte{0x80, 'a'}, true},
		{"zero inside peek", []byte("abc\x00def"), true},
		{"zero past peek", []byte("abcdefgh\x00"), false},
		{"utf8 inside peek", []byte("héllo"), true},
		{"short", []byte("a"), false},
		{"example", fiveLines, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LooksBinary(tt.buf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := LooksBinary(nil)
	assert.ErrorIs(t, err, ErrUnexpected)
	_, err = LooksBinary([]byte{})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindUsage, KindOf(checkBuffer([]byte{})))
	assert.Equal(t, KindUnexpected, KindOf(checkBuffer(nil)))
	assert.Equal(t, KindRange, KindOf(checkIndex([]byte("a"), 1)))
	assert.Equal(t, "range", KindRange.String())
}

func TestBiasedBits(t *testing.T) {
	// high = (5-1)*2 = 8
	r := &scriptedRand{draws: []int{3}}
	assert.Equal(t, 11, BiasedBits(r, 5))
	assert.Equal(t, [][2]int{{0, 8}}, r.calls)

	r = &scriptedRand{draws: []int{0}}
	assert.Equal(t, 8, BiasedBits(r, 5))
}

func TestBiasedLog(t *testing.T) {
	r := &scriptedRand{}
	assert.Equal(t, 0, BiasedLog(r, 2))
	assert.Empty(t, r.calls)

	// bit budget 1 -> n = 3 -> high = 4, draw 1 -> 5
	r = &scriptedRand{draws: []int{1, 1}}
	assert.Equal(t, 5, BiasedLog(r, 10))
	assert.Equal(t, [][2]int{{0, 8}, {0, 4}}, r.calls)
}

func TestBiasedBitsKeepsHighBits(t *testing.T) {
	for n := 2; n < 64; n++ {
		high := (n - 1) * 2
		for _, d := range []int{0, 1, high / 2, high} {
			got := BiasedBits(&scriptedRand{draws: []int{d}}, n)
			assert.Equal(t, high, got&high, "n=%d draw=%d", n, d)
		}
	}
}

func assertTerminated(t *testing.T, out []byte) {
	t.Helper()
	require.NotEmpty(t, out)
	assert.Equal(t, byte(0), out[len(out)-1])
}

func TestSnapshotCopyAndTake(t *testing.T) {
	buf := []byte("abc\ndef\n")
	s, err := NewSnapshot(buf, Line{Valid: true, Start: 4, Length: 4})
	require.NoError(t, err)
	assert.Equal(t, []byte("def\n"), s.Bytes())

	buf[4] = 'X'
	assert.Equal(t, []byte("def\n"), s.Bytes(), "snapshot must not alias the source")

	c := s.Clone()
	assert.True(t, c.Equal(s))
	c.Bytes()[0] = 'Z'
	assert.False(t, c.Equal(s))

	moved := s.Take()
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Bytes())
	assert.Equal(t, []byte("def\n"), moved.Bytes())
}

func TestNewSnapshotErrors(t *testing.T) {
	_, err := NewSnapshot([]byte("abc"), Line{Valid: true, Start: 2, Length: 5})
	assert.ErrorIs(t, err, ErrRange)

	_, err = NewSnapshot([]byte("abc"), Line{})
	assert.ErrorIs(t, err, ErrRange)

	_, err = NewSnapshot(nil, Line{Valid: true})
	assert.ErrorIs(t, err, ErrUnexpected)
}

func TestSnapshotLines(t *testing.T) {
	list, err := SnapshotLines([]byte("a\nbb\nccc\n"))
	require.NoError(t, err)
	require.Equal(t, 4, list.Len())
	assert.Equal(t, 9, list.Capacity())

	var got []string
	for i := 0; i < list.Len(); i++ {
		got = append(got, string(list.At(i).Bytes()))
	}
	assert.Equal(t, []string{"a\n", "bb\n", "ccc\n", ""}, got)

	out := make([]byte, list.Capacity())
	n, err := list.Flatten(out)
	require.NoError(t, err)
	assert.Equal(t, "a\nbb\nccc\n", string(out[:n]))

	_, err = list.Flatten(make([]byte, 3))
	assert.ErrorIs(t, err, ErrRange)
}

func TestSnapshotListCloneAndTake(t *testing.T) {
	list, err := SnapshotLines(fiveLines)
	require.NoError(t, err)

	clone := list.Clone()
	assert.True(t, clone.Equal(list))
	clone.Swap(0, 1)
	assert.False(t, clone.Equal(list))

	moved := list.Take()
	assert.Equal(t, 0, list.Len())
	assert.Equal(t, 0, list.Capacity())
	assert.Equal(t, 5, moved.Len())
	assert.Equal(t, len(fiveLines), moved.Capacity())
}

func TestDeleteLineExample(t *testing.T) {
	sink := newRecordingSink()
	e := NewEngine(&scriptedRand{draws: []int{0}}, sink)

	out, err := e.DeleteLine("out", fiveLines, 0)
	require.NoError(t, err)
	assert.Len(t, out, 25)
	assert.Equal(t, []byte("Line1\nLine2\nLine3\nLine4\x00\x00"), out)
	assert.Equal(t, 25, sink.allocs["out"])
}

func TestDeleteLineReconstruction(t *testing.T) {
	for idx := 0; idx < 5; idx++ {
		e := NewEngine(&scriptedRand{draws: []int{idx}}, newRecordingSink())
		out, err := e.DeleteLine("k", fiveLines, 0)
		require.NoError(t, err)

		line, err := ResolveLine(fiveLines, idx, 5)
		require.NoError(t, err)
		assertTerminated(t, out)
		assert.Len(t, out, len(fiveLines)-line.Length+1)

		want := append(bytes.Clone(fiveLines[:line.Start]), fiveLines[line.End():]...)
		assert.Equal(t, want, out[:len(out)-1])
	}
}

func TestDeleteLineFromCursor(t *testing.T) {
	// Cursor in Line3: two lines remain, draw 0 selects Line3.
	e := NewEngine(&scriptedRand{draws: []int{0}}, newRecordingSink())
	out, err := e.DeleteLine("k", fiveLines, 19)
	require.NoError(t, err)
	assert.Equal(t, "Line0\nLine1\nLine2\nLine4\x00\x00", string(out))
}

func TestDeleteSequentialLines(t *testing.T) {
	r := &scriptedRand{draws: []int{1, 3}}
	e := NewEngine(r, newRecordingSink())

	out, err := e.DeleteSequentialLines("k", fiveLines, 0)
	require.NoError(t, err)
	assert.Equal(t, "Line0\nLine4\x00\x00", string(out))
	assert.Equal(t, [][2]int{{0, 4}, {1, 4}}, r.calls)
}

func TestDeleteSequentialLinesFromCursor(t *testing.T) {
	// Cursor inside Line2 leaves three lines; draws 0 and 1 map to Line2 and Line3.
	r := &scriptedRand{draws: []int{0, 1}}
	e := NewEngine(r, newRecordingSink())

	out, err := e.DeleteSequentialLines("k", fiveLines, 13)
	require.NoError(t, err)
	assert.Equal(t, "Line0\nLine1\nLine4\x00\x00", string(out))
	assert.Equal(t, [][2]int{{0, 2}, {0, 2}}, r.calls)
}

func TestDuplicateLine(t *testing.T) {
	src := []byte("\x00bin\nrow\nend")
	e := NewEngine(&scriptedRand{draws: []int{1}}, newRecordingSink())

	out, err := e.DuplicateLine("k", src, 0)
	require.NoError(t, err)
	assert.Len(t, out, len(src)+4+1)
	assert.Equal(t, "\x00bin\nrow\nrow\nend\x00", string(out))
	assert.True(t, bytes.Contains(out, []byte("row\nrow\n")))
}

func TestCopyLineCloseBy(t *testing.T) {
	src := []byte("\x80aa\nbb\ncc")
	e := NewEngine(&scriptedRand{draws: []int{2, 0}}, newRecordingSink())

	out, err := e.CopyLineCloseBy("k", src, 0)
	require.NoError(t, err)
	assert.Equal(t, "cc\x80aa\nbb\ncc\x00", string(out))
	assert.Len(t, out, len(src)+2+1)
}

func TestCopyLineCloseByFromCursor(t *testing.T) {
	// Cursor inside "cc" leaves two lines: draw 1 picks "dd", draw 0 inserts before "cc".
	src := []byte("\x80aa\nbb\ncc\ndd")
	r := &scriptedRand{draws: []int{1, 0}}
	e := NewEngine(r, newRecordingSink())

	out, err := e.CopyLineCloseBy("k", src, 8)
	require.NoError(t, err)
	assert.Equal(t, "\x80aa\nbb\nddcc\ndd\x00", string(out))
	assert.Equal(t, [][2]int{{0, 1}, {0, 1}}, r.calls)
}

func TestCopyLineCloseBySameLine(t *testing.T) {
	src := []byte("\x80aa\nbb\ncc")
	e := NewEngine(&scriptedRand{draws: []int{1, 1}}, newRecordingSink())

	out, err := e.CopyLineCloseBy("k", src, 0)
	require.NoError(t, err)
	assert.Equal(t, "\x80aa\nbb\nbb\ncc\x00", string(out))
}

func TestRepeatLine(t *testing.T) {
	src := []byte("\x00a\nxy\nz")
	e := NewEngine(&scriptedRand{draws: []int{1}, repeats: 3}, newRecordingSink())

	out, err := e.RepeatLine("k", src, 0)
	require.NoError(t, err)
	assert.Len(t, out, len(src)+3*3+1)
	assert.Equal(t, "\x00a\nxy\nxy\nxy\nxy\nz\x00", string(out))
}

func TestSwapLine(t *testing.T) {
	tests := []struct {
		name string
		src  string
		draw int
		want string
	}{
		{"equal lengths", "aa\nbb\ncc\n", 0, "bb\naa\ncc\n\x00"},
		{"unequal lengths", "a\nbbbb\ncc", 0, "bbbb\na\ncc\x00"},
		{"into undelimited tail", "a\nbbbb\ncc", 1, "a\nccbbbb\n\x00"},
		{"last line stays", "a\nbbbb\ncc", 2, "a\nbbbb\ncc\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(&scriptedRand{draws: []int{tt.draw}}, newRecordingSink())
			out, err := e.SwapLine("k", []byte(tt.src), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
			assert.Len(t, out, len(tt.src)+1)
		})
	}
}

func TestSwapLineFromCursor(t *testing.T) {
	// Cursor inside Line3 leaves two lines; draw 0 selects Line3, swapped with Line4.
	e := NewEngine(&scriptedRand{draws: []int{0}}, newRecordingSink())
	out, err := e.SwapLine("k", fiveLines, 20)
	require.NoError(t, err)
	assert.Equal(t, "Line0\nLine1\nLine2\nLine4\x00Line3\n\x00", string(out))
}

func TestOperatorGates(t *testing.T) {
	text := []byte("one\ntwo\nthree\n")
	binary := []byte("\x00one\ntwo\nthree\n")

	rewritesText := map[Op]bool{
		OpDeleteLine:            true,
		OpDeleteSequentialLines: true,
		OpDuplicateLine:         false,
		OpCopyLineCloseBy:       false,
		OpRepeatLine:            false,
		OpSwapLine:              true,
	}
	for _, op := range AllOps {
		t.Run(op.String(), func(t *testing.T) {
			e := NewEngine(&scriptedRand{repeats: 1}, newRecordingSink())

			textOut, err := e.Apply(op, "k", text, 0)
			require.NoError(t, err)
			binOut, err := e.Apply(op, "k", binary, 0)
			require.NoError(t, err)
			assertTerminated(t, textOut)
			assertTerminated(t, binOut)

			textPassed := bytes.Equal(textOut[:len(textOut)-1], text)
			binPassed := bytes.Equal(binOut[:len(binOut)-1], binary)
			if rewritesText[op] {
				assert.False(t, textPassed, "text should be rewritten")
				assert.True(t, binPassed, "binary should pass through")
			} else {
				assert.True(t, textPassed, "text should pass through")
				assert.False(t, binPassed, "binary should be rewritten")
			}
		})
	}
}

func TestOperatorPreconditions(t *testing.T) {
	ops := append(append([]Op{}, AllOps...), OpPermuteLines)
	for _, op := range ops {
		t.Run(op.String(), func(t *testing.T) {
			sink := newRecordingSink()
			e := NewEngine(&scriptedRand{repeats: 1}, sink)

			_, err := e.Apply(op, "k", []byte{}, 0)
			assert.Equal(t, KindUsage, KindOf(err))

			_, err = e.Apply(op, "k", []byte("abc"), 3)
			assert.Equal(t, KindRange, KindOf(err))

			_, err = e.Apply(op, "k", nil, 0)
			assert.Equal(t, KindUnexpected, KindOf(err))

			assert.Empty(t, sink.allocs, "no output may be written on failure")
		})
	}
}

func TestPermuteLinesKeepsContent(t *testing.T) {
	src := []byte("a\nb\nc\nd\ne\n")
	r := &scriptedRand{draws: []int{0, 5, 0, 0, 4, 0, 3, 1, 2, 0}}
	e := NewEngine(r, newRecordingSink())

	out, err := e.PermuteLines("k", src, 0)
	require.NoError(t, err)
	assertTerminated(t, out)
	require.Len(t, out, len(src)+1)

	want, err := SnapshotLines(src)
	require.NoError(t, err)
	got, err := SnapshotLines(out[:len(out)-1])
	require.NoError(t, err)
	assert.Equal(t, want.Capacity(), got.Capacity())
	assert.ElementsMatch(t, lineStrings(want), lineStrings(got))
}

func TestPermuteLinesSingleLine(t *testing.T) {
	e := NewEngine(&scriptedRand{}, newRecordingSink())
	out, err := e.PermuteLines("k", []byte("only"), 0)
	require.NoError(t, err)
	assert.Equal(t, "only\x00", string(out))
}

func lineStrings(l *SnapshotList) []string {
	out := make([]string, l.Len())
	for i := range out {
		out[i] = string(l.At(i).Bytes())
	}
	return out
}

func TestParseOp(t *testing.T) {
	for _, op := range append(append([]Op{}, AllOps...), OpPermuteLines) {
		got, err := ParseOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	_, err := ParseOp("flip_bits")
	assert.Error(t, err)
}
