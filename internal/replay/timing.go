// internal/replay/timing.go
package replay

import (
	"time"

	"github.com/user/ghostwalk/internal/types"
)

// negativeDelayFallback is the suspend applied when recorded timestamps
// run backwards (or an event has no timestamp at all). Out-of-order
// provider timestamps are a fact of life, not an error.
const negativeDelayFallback = 3 * time.Second

// TimingPolicy computes the suspend before an event is acted on, relative
// to the previous event's recorded timestamp. prevTime is nil until the
// stream has produced a timestamp.
type TimingPolicy interface {
	Next(prevTime *float64, event *types.Event) time.Duration
}

type fixedDelay time.Duration

// FixedDelay paces every event with the same suspend, ignoring recorded
// timestamps.
func FixedDelay(d time.Duration) TimingPolicy {
	return fixedDelay(d)
}

func (f fixedDelay) Next(*float64, *types.Event) time.Duration {
	return time.Duration(f)
}

type recordedTiming struct{}

// RecordedTiming paces events by the delta of their recorded timestamps
// (in seconds), clamping negative and unknown deltas to the fixed
// fallback. A delta is unknown when either side lacks a timestamp.
func RecordedTiming() TimingPolicy {
	return recordedTiming{}
}

func (recordedTiming) Next(prevTime *float64, event *types.Event) time.Duration {
	ts, ok := event.Timestamp()
	if !ok || prevTime == nil {
		return negativeDelayFallback
	}
	delta := time.Duration((ts - *prevTime) * float64(time.Second))
	if delta < 0 {
		return negativeDelayFallback
	}
	return delta
}
