// internal/types/event.go
package types

// Event is a normalized interaction record with a fixed field set,
// independent of the analytics provider that recorded it. Optional fields
// use pointers or untyped values so that an absent provider property stays
// distinguishable from a zero value.
type Event struct {
	Name          string   `json:"name"`
	Time          *float64 `json:"time,omitempty"`
	Page          *string  `json:"page,omitempty"`
	Dimension     any      `json:"dimension,omitempty"`
	ScrollTop     any      `json:"scrollTop,omitempty"`
	MousePosition any      `json:"mousePosition,omitempty"`
}

// Timestamp returns the recorded timestamp in seconds, if present.
func (e *Event) Timestamp() (float64, bool) {
	if e.Time == nil {
		return 0, false
	}
	return *e.Time, true
}

// PageURL returns the recorded page URL, if present.
func (e *Event) PageURL() (string, bool) {
	if e.Page == nil {
		return "", false
	}
	return *e.Page, true
}

// ScrollPixels returns the scroll offset when the event carries a non-zero
// scroll value.
func (e *Event) ScrollPixels() (float64, bool) {
	px, ok := asFloat(e.ScrollTop)
	if !ok || px == 0 {
		return 0, false
	}
	return px, true
}

// ClickPoint returns the recorded pointer coordinates when the event
// carries a non-empty position pair.
func (e *Event) ClickPoint() (x, y float64, ok bool) {
	return asPair(e.MousePosition)
}

// Viewport returns the recorded viewport dimensions when present.
func (e *Event) Viewport() (w, h float64, ok bool) {
	return asPair(e.Dimension)
}

// asFloat coerces JSON-decoded numeric values.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asPair coerces a two-element JSON array of numbers.
func asPair(v any) (a, b float64, ok bool) {
	list, isList := v.([]any)
	if !isList || len(list) < 2 {
		return 0, 0, false
	}
	a, okA := asFloat(list[0])
	b, okB := asFloat(list[1])
	if !okA || !okB {
		return 0, 0, false
	}
	return a, b, true
}

// Stream is an ordered collection of canonical events addressed by a
// 1-based contiguous index matching provider record order.
type Stream struct {
	events []Event
}

// NewStream creates an empty Stream.
func NewStream() *Stream {
	return &Stream{}
}

// Append adds an event at the next sequential index and returns that index.
func (s *Stream) Append(ev Event) int {
	s.events = append(s.events, ev)
	return len(s.events)
}

// Get returns the event at the given 1-based index.
func (s *Stream) Get(n int) (*Event, bool) {
	if n < 1 || n > len(s.events) {
		return nil, false
	}
	return &s.events[n-1], true
}

// Len returns the number of events in the stream.
func (s *Stream) Len() int {
	return len(s.events)
}

// First returns the first event, if any.
func (s *Stream) First() (*Event, bool) {
	return s.Get(1)
}
