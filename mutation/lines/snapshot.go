package lines

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

// Snapshot owns an independent copy of one line's bytes.
type Snapshot struct {
	data []byte
}

// NewSnapshot copies the bytes of line out of buf.
func NewSnapshot(buf []byte, line Line) (Snapshot, error) {
	if err := checkBuffer(buf); err != nil {
		return Snapshot{}, err
	}
	if !line.Valid || line.Start < 0 || line.Length < 0 || line.End() > len(buf) {
		return Snapshot{}, errors.Wrapf(ErrRange, "line [%d, %d) outside buffer of size %d", line.Start, line.End(), len(buf))
	}
	return Snapshot{data: bytes.Clone(buf[line.Start:line.End()])}, nil
}

// Len returns the number of bytes held.
func (s Snapshot) Len() int {
	return len(s.data)
}

// Bytes returns the held bytes. The slice is owned by the snapshot and must
// not be modified.
func (s Snapshot) Bytes() []byte {
	return s.data
}

// Clone returns a snapshot with its own copy of the bytes.
func (s Snapshot) Clone() Snapshot {
	if s.data == nil {
		return Snapshot{}
	}
	return Snapshot{data: bytes.Clone(s.data)}
}

// Take transfers ownership of the bytes to the returned snapshot and leaves
// s empty. No bytes are copied.
func (s *Snapshot) Take() Snapshot {
	t := *s
	*s = Snapshot{}
	return t
}

// Equal compares length first, then content.
func (s Snapshot) Equal(o Snapshot) bool {
	return len(s.data) == len(o.data) && bytes.Equal(s.data, o.data)
}

// SnapshotList is an ordered set of line snapshots. Capacity is the exact
// number of bytes Flatten writes.
type SnapshotList struct {
	items    []Snapshot
	capacity int
}

// SnapshotLines snapshots every line of buf in order, including the empty
// segment after a trailing delimiter.
func SnapshotLines(buf []byte) (*SnapshotList, error) {
	total, err := CountLinesFrom(buf, 0)
	if err != nil {
		return nil, err
	}

	list := &SnapshotList{items: make([]Snapshot, 0, total)}
	start := 0
	for start <= len(buf) && len(list.items) < total {
		end := len(buf)
		if j := bytes.IndexByte(buf[start:], Delimiter); j >= 0 {
			end = start + j + 1
		}
		snap, err := NewSnapshot(buf, Line{Valid: true, Start: start, Length: end - start})
		if err != nil {
			return nil, err
		}
		list.Append(snap)
		start = end
	}
	return list, nil
}

// Append adds s to the end of the list, taking ownership of its bytes.
func (l *SnapshotList) Append(s Snapshot) {
	l.capacity += s.Len()
	l.items = append(l.items, s)
}

// Len returns the number of snapshots.
func (l *SnapshotList) Len() int {
	return len(l.items)
}

// Capacity returns the sum of all snapshot lengths.
func (l *SnapshotList) Capacity() int {
	return l.capacity
}

// At returns the snapshot at index i.
func (l *SnapshotList) At(i int) Snapshot {
	return l.items[i]
}

// Swap exchanges the snapshots at i and j.
func (l *SnapshotList) Swap(i, j int) {
	l.items[i], l.items[j] = l.items[j], l.items[i]
}

// Clone deep-copies every snapshot.
func (l *SnapshotList) Clone() *SnapshotList {
	c := &SnapshotList{items: make([]Snapshot, len(l.items)), capacity: l.capacity}
	for i, s := range l.items {
		c.items[i] = s.Clone()
	}
	return c
}

// Take moves all snapshots into a new list and leaves l empty.
func (l *SnapshotList) Take() *SnapshotList {
	t := &SnapshotList{items: l.items, capacity: l.capacity}
	l.items, l.capacity = nil, 0
	return t
}

// Equal reports whether both lists hold equal snapshots in the same order.
func (l *SnapshotList) Equal(o *SnapshotList) bool {
	if l.Len() != o.Len() || l.capacity != o.capacity {
		return false
	}
	for i := range l.items {
		if !l.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

// Flatten writes every snapshot back to back into dst and returns the number
// of bytes written. dst must hold at least Capacity bytes.
func (l *SnapshotList) Flatten(dst []byte) (int, error) {
	if len(dst) < l.capacity {
		return 0, errors.Wrapf(ErrRange, "destination of %d bytes cannot hold %d", len(dst), l.capacity)
	}
	n := 0
	for _, s := range l.items {
		n += copy(dst[n:], s.data)
	}
	return n, nil
}
