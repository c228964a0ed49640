package core

import (
	"sync/atomic"
	"time"
)

// HeightSource supplies the monotonically increasing logical clock consulted
// by timelock checks. The swap engine only ever compares against it.
type HeightSource interface {
	Height() uint64
}

// IntervalHeightSource derives the current height from wall time: one unit
// per fixed interval since an anchor instant. This is the production source
// for a standalone daemon with no chain underneath it.
type IntervalHeightSource struct {
	anchor   time.Time
	interval time.Duration
}

// NewIntervalHeightSource anchors the clock at the given instant. A
// non-positive interval falls back to ten minutes.
func NewIntervalHeightSource(anchor time.Time, interval time.Duration) *IntervalHeightSource {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &IntervalHeightSource{anchor: anchor, interval: interval}
}

// Height implements HeightSource.
func (s *IntervalHeightSource) Height() uint64 {
	elapsed := time.Since(s.anchor)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / s.interval)
}

// ManualHeightSource is an explicitly advanced clock for tests and local
// development.
type ManualHeightSource struct {
	height atomic.Uint64
}

// NewManualHeightSource starts the clock at the given height.
func NewManualHeightSource(start uint64) *ManualHeightSource {
	s := &ManualHeightSource{}
	s.height.Store(start)
	return s
}

// Height implements HeightSource.
func (s *ManualHeightSource) Height() uint64 { return s.height.Load() }

// Advance moves the clock forward by delta units.
func (s *ManualHeightSource) Advance(delta uint64) { s.height.Add(delta) }

// Set moves the clock to an absolute height. Moving backwards is ignored to
// keep the clock monotone.
func (s *ManualHeightSource) Set(height uint64) {
	for {
		current := s.height.Load()
		if height <= current {
			return
		}
		if s.height.CompareAndSwap(current, height) {
			return
		}
	}
}
