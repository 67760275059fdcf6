package queue

import "math/bits"

// Remaining returns how many units of o are still outstanding at now (unix seconds).
//
// Orders queued behind others have a StartedAt in the future and count in full. An order is
// finished at CompletesAt inclusive. In between, units complete at a uniform rate of
// (CompletesAt-StartedAt)/TotalCount seconds each.
func Remaining(o Order, now int64) int {
	if o.TotalCount <= 0 {
		return 0
	}
	if now < o.StartedAt {
		return o.TotalCount
	}
	if now >= o.CompletesAt {
		return 0
	}

	// duration > 0 here: equal bounds are caught by the finished check above.
	duration := uint64(o.CompletesAt) - uint64(o.StartedAt)
	elapsed := uint64(now) - uint64(o.StartedAt)
	// floor(elapsed / (duration/total)) without float rounding. elapsed < duration keeps the
	// high word below the divisor, so Div64 cannot overflow.
	hi, lo := bits.Mul64(elapsed, uint64(o.TotalCount))
	completed, _ := bits.Div64(hi, lo, duration)

	left := uint64(o.TotalCount) - completed
	return int(left)
}
