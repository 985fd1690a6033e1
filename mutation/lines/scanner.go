// Package lines implements line-oriented mutations over raw byte buffers.
//
// A buffer is treated as a sequence of lines separated by '\n'. Every line
// includes its trailing delimiter; the segment after the last delimiter is
// always counted as a line, even when it is empty. Operators draw line
// indices relative to a cursor offset and rebuild the buffer through a Sink,
// always appending a single zero byte after the logical content.
package lines

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

// Delimiter separates lines.
const Delimiter = '\n'

// Line locates one line inside a specific buffer.
type Line struct {
	Valid  bool
	Start  int
	Length int
}

// End returns the offset one past the last byte of the line.
func (l Line) End() int {
	return l.Start + l.Length
}

// CountLinesFrom returns the number of delimiters in buf[index:] plus one.
func CountLinesFrom(buf []byte, index int) (int, error) {
	if err := checkIndex(buf, index); err != nil {
		return 0, err
	}
	return bytes.Count(buf[index:], []byte{Delimiter}) + 1, nil
}

// ResolveLine locates a line given an index relative to the lines remaining
// past some cursor. linesAfterIndex is the CountLinesFrom result at that
// cursor; lineIndex is shifted by the number of lines before the cursor and
// clamped into the buffer's line range before scanning.
func ResolveLine(buf []byte, lineIndex, linesAfterIndex int) (Line, error) {
	total, err := CountLinesFrom(buf, 0)
	if err != nil {
		return Line{}, err
	}
	if lineIndex < 0 || lineIndex >= total {
		return Line{}, errors.Wrapf(ErrRange, "line index %d outside %d lines", lineIndex, total)
	}
	if linesAfterIndex < 0 || linesAfterIndex > total {
		return Line{}, errors.Wrapf(ErrRange, "%d lines after cursor exceeds %d total lines", linesAfterIndex, total)
	}

	target := min(max(lineIndex+total-linesAfterIndex, 0), total-1)
	return scanLine(buf, target), nil
}

// scanLine walks buf once and returns the span of absolute line target.
// target must be below the buffer's line count.
func scanLine(buf []byte, target int) Line {
	line := Line{Valid: true}
	seen := 0
	for i, b := range buf {
		if seen == target {
			line.Start = i
			if j := bytes.IndexByte(buf[i:], Delimiter); j >= 0 {
				line.Length = j + 1
			} else {
				line.Length = len(buf) - i
			}
			return line
		}
		if b == Delimiter {
			seen++
		}
	}
	// The empty segment after a trailing delimiter.
	line.Start = len(buf)
	return line
}
