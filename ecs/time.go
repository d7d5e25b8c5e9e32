package ecs

import "time"

// Time is the frame clock resource. The App advances it before every frame.
type Time struct {
	Delta   time.Duration
	Elapsed time.Duration
	Frame   uint64
}

// Advance records a frame of length dt.
func (t *Time) Advance(dt time.Duration) {
	t.Delta = dt
	t.Elapsed += dt
	t.Frame++
}

// DeltaSeconds returns Delta in seconds.
func (t Time) DeltaSeconds() float64 {
	return t.Delta.Seconds()
}
