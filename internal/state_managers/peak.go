package state_managers

import "sync"

// PeakTracker holds the highest reading seen since process start.
type PeakTracker struct {
	mu   sync.Mutex
	peak int
	seen bool
}

// NewPeakTracker returns a tracker with no readings.
func NewPeakTracker() *PeakTracker {
	return &PeakTracker{}
}

// Update records ppm and returns the current peak. changed is true exactly
// when ppm is greater than the previous peak.
func (p *PeakTracker) Update(ppm int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.seen || ppm > p.peak {
		p.peak = ppm
		p.seen = true
		return p.peak, true
	}
	return p.peak, false
}

// Peak returns the current peak.
func (p *PeakTracker) Peak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak
}
