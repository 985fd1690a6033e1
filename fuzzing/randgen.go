// Copyright 2024 Fudong and Hosen
// This file is part of the D2PFuzz library.
//
// The D2PFuzz library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The D2PFuzz library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the D2PFuzz library. If not, see <http://www.gnu.org/licenses/>.

package fuzzing

import (
	"math/rand"
	"sync"
	"time"

	"github.com/AgnopraxLab/LineFuzz/mutation/lines"
)

// repetitionBits is log2 of the largest repetition step; together with the
// +1 offset it yields lines.MaxRepetitions.
const repetitionBits = 21

// RandGen is the seeded random source behind the line operators. It is safe
// for concurrent use.
type RandGen struct {
	mu             sync.Mutex
	r              *rand.Rand
	seed           int64
	maxRepetitions int
}

// NewRandGen creates a generator. A zero seed uses the current time.
func NewRandGen(seed int64) *RandGen {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandGen{
		r:              rand.New(rand.NewSource(seed)),
		seed:           seed,
		maxRepetitions: lines.MaxRepetitions,
	}
}

// Seed returns the seed actually in use.
func (g *RandGen) Seed() int64 {
	return g.seed
}

// SetMaxRepetitions caps RepetitionLength. Values outside
// [1, lines.MaxRepetitions] restore the full range.
func (g *RandGen) SetMaxRepetitions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n < 1 || n > lines.MaxRepetitions {
		n = lines.MaxRepetitions
	}
	g.maxRepetitions = n
}

// Draw returns a uniform integer in [min, max]. If max < min it returns min.
func (g *RandGen) Draw(min, max int) int {
	if max <= min {
		return min
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.r.Intn(max-min+1)
}

// Intn returns a uniform integer in [0, n), or 0 when n <= 0.
func (g *RandGen) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Intn(n)
}

// RepetitionLength draws a repetition count in [1, 2^21+1]. An exponent is
// chosen uniformly first, so small counts are far more likely than large
// ones while the full range stays reachable.
func (g *RandGen) RepetitionLength() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 1
	if e := g.r.Intn(repetitionBits + 1); e > 0 {
		lo := 1<<(e-1) + 1
		hi := 1<<e + 1
		n = lo + g.r.Intn(hi-lo+1)
	}
	return min(n, g.maxRepetitions)
}

// chooseLen chooses a length in [1,n], giving preference to short ranges.
func (g *RandGen) chooseLen(n int) int {
	switch x := g.Intn(100); {
	case x < 90:
		return g.Intn(min(8, n)) + 1
	case x < 99:
		return g.Intn(min(32, n)) + 1
	default:
		return g.Intn(n) + 1
	}
}

// Cursor picks a byte offset in a buffer of size n. Offsets near the start
// are favoured so most mutations see the whole buffer.
func (g *RandGen) Cursor(n int) int {
	if n <= 1 {
		return 0
	}
	if g.Intn(4) == 0 {
		return g.Intn(n)
	}
	return g.chooseLen(n) - 1
}
