package analytics

// RawRecord is one provider-shaped interaction record: an event name plus
// an open bag of recorded properties. No shape validation happens here;
// missing properties simply stay missing.
type RawRecord struct {
	Name       string         `json:"event"`
	Properties map[string]any `json:"properties"`
}
