package scenario

import "time"

// pacing shapes one stress run: orders go out in batches with a drain
// phase after each, and the run ends with one long bounded drain. The
// same table applies to unmatched, matching, and dual runs.
type pacing struct {
	batch      int           // pairs per batch
	sleep      time.Duration // inter-batch sleep
	finalDrain time.Duration // final drain bound
}

// pacingFor sizes batches as a piecewise function of the target count.
func pacingFor(n int) pacing {
	switch {
	case n < 10_000:
		return pacing{batch: 50, sleep: 10 * time.Millisecond, finalDrain: 60 * time.Second}
	case n < 100_000:
		return pacing{batch: 75, sleep: 25 * time.Millisecond, finalDrain: 2 * time.Minute}
	case n < 1_000_000:
		return pacing{batch: 100, sleep: 40 * time.Millisecond, finalDrain: 10 * time.Minute}
	default:
		return pacing{batch: 100, sleep: 50 * time.Millisecond, finalDrain: 30 * time.Minute}
	}
}

// drainTarget bounds how many events one inter-batch drain consumes.
func (p pacing) drainTarget() int {
	return 5 * p.batch
}

// progressInterval is the iteration stride between progress lines:
// 5% buckets at scale, 10% for small runs.
func progressInterval(n int) int {
	var interval int
	if n >= 10_000 {
		interval = n / 20
	} else {
		interval = n / 10
	}
	if interval < 1 {
		interval = 1
	}
	return interval
}
