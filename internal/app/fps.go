package app

import "time"

// DefaultFPSWindow is the number of frames the rate is averaged over.
const DefaultFPSWindow = 10

// FPSCounter measures the frame rate over a sliding window of frame times.
type FPSCounter struct {
	times []time.Time
	next  int
	count int
}

// NewFPSCounter averages over the last window frames.
func NewFPSCounter(window int) *FPSCounter {
	if window < 2 {
		window = 2
	}
	return &FPSCounter{times: make([]time.Time, window)}
}

// Tick records a frame at now and returns the current rate. The rate is zero
// until two frames have been seen.
func (f *FPSCounter) Tick(now time.Time) float64 {
	f.times[f.next] = now
	f.next = (f.next + 1) % len(f.times)
	if f.count < len(f.times) {
		f.count++
	}
	if f.count < 2 {
		return 0
	}

	newest := f.times[(f.next-1+len(f.times))%len(f.times)]
	oldest := f.times[(f.next-f.count+len(f.times))%len(f.times)]
	elapsed := newest.Sub(oldest).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(f.count-1) / elapsed
}
