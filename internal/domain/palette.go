package domain

import (
	"math/rand"
	"sync"
	"time"
)

// PrimingPalette colors the first cells of every grid, in order.
var PrimingPalette = []string{"#F25022", "#7FBA00", "#FFB900", "#00A4EF"}

// Palette is the pool random colors are drawn from once priming is exhausted.
var Palette = []string{
	"#e74c3c",
	"#9b59b6",
	"#f1c40f",
	"#2ecc71",
	"#3498db",
	"#e67e22",
	"#1abc9c",
	"#ff69b4",
}

// RandomSource yields a uniform int in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// ColorAllocator picks the color of each newly filled cell.
type ColorAllocator struct {
	rnd RandomSource
}

// NewColorAllocator builds an allocator over rnd; nil selects a time-seeded source.
func NewColorAllocator(rnd RandomSource) *ColorAllocator {
	if rnd == nil {
		rnd = NewLockedSource(time.Now().UnixNano())
	}
	return &ColorAllocator{rnd: rnd}
}

// ColorFor returns the color of the index-th cell. Indexes inside the priming palette
// ignore previous; after that a palette color different from previous is drawn.
func (a *ColorAllocator) ColorFor(index int, previous string) string {
	if index >= 0 && index < len(PrimingPalette) {
		return PrimingPalette[index]
	}
	for {
		next := Palette[a.rnd.Intn(len(Palette))]
		if next != previous {
			return next
		}
	}
}

// LockedSource is a RandomSource safe for use from several goroutines.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLockedSource(seed int64) *LockedSource {
	return &LockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *LockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
