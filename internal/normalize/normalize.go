// internal/normalize/normalize.go

// Package normalize converts provider-shaped raw records into the canonical
// ordered event stream the replay engine consumes.
package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/user/ghostwalk/internal/schema"
	"github.com/user/ghostwalk/internal/types"
	"github.com/user/ghostwalk/pkg/analytics"
)

// ErrUnsupportedProvider is returned when no parser is registered for the
// requested provider id.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ProviderMixpanel is the id of the built-in Mixpanel record parser.
const ProviderMixpanel = "mixpanel"

// ParseFunc converts a single raw record into a canonical event under the
// given mapping. Implementations must be pure: no shared state across
// records, so record-level parallelism stays safe if fetch ever fans out.
type ParseFunc func(record analytics.RawRecord, mapping *schema.Mapping) types.Event

var (
	registryMu sync.RWMutex
	registry   = map[string]ParseFunc{
		ProviderMixpanel: parseMixpanelRecord,
	}
)

// Register adds a record parser for a provider id. Registering an existing
// id replaces the previous parser.
func Register(provider string, fn ParseFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[provider] = fn
}

// Providers returns the registered provider ids, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normalizer turns raw records from one provider into canonical streams.
type Normalizer struct {
	provider string
	parse    ParseFunc
	mapping  *schema.Mapping
}

// New creates a Normalizer for the given provider id and mapping. It fails
// with ErrUnsupportedProvider when no parser is registered for the id.
func New(provider string, mapping *schema.Mapping) (*Normalizer, error) {
	registryMu.RLock()
	fn, ok := registry[provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported providers are %s)",
			ErrUnsupportedProvider, provider, strings.Join(Providers(), ", "))
	}
	return &Normalizer{provider: provider, parse: fn, mapping: mapping}, nil
}

// Provider returns the provider id this normalizer parses.
func (n *Normalizer) Provider() string {
	return n.provider
}

// Normalize converts records in input order into a stream indexed 1..N.
// Every record yields exactly one event; missing properties resolve to
// absent canonical fields rather than errors.
func (n *Normalizer) Normalize(records []analytics.RawRecord) *types.Stream {
	stream := types.NewStream()
	for _, record := range records {
		stream.Append(n.parse(record, n.mapping))
	}
	return stream
}

// LoadFile reads a persisted recording and normalizes it.
func (n *Normalizer) LoadFile(path string) (*types.Stream, error) {
	records, err := analytics.LoadRecording(path)
	if err != nil {
		return nil, err
	}
	return n.Normalize(records), nil
}

// parseMixpanelRecord converts one Mixpanel export record.
//
// Generic fields read from the source container: the nested object under
// the mapping's ReplayDataKey when that container is present and
// non-empty, otherwise the record's top-level properties. Time, page, and
// query always resolve against top-level properties, matching how the
// recordings were captured.
func parseMixpanelRecord(record analytics.RawRecord, mapping *schema.Mapping) types.Event {
	props := record.Properties
	source := sourceContainer(props, mapping.ReplayDataKey)

	ev := types.Event{Name: record.Name}
	for _, f := range mapping.ActiveFields() {
		switch f.Name {
		case schema.FieldDimension:
			ev.Dimension = source[f.Key]
		case schema.FieldScrollTop:
			ev.ScrollTop = source[f.Key]
		case schema.FieldMousePosition:
			ev.MousePosition = source[f.Key]
		}
	}

	if mapping.TimeKey != "" {
		ev.Time = numberValue(props[mapping.TimeKey])
	}
	if mapping.PageKey != "" {
		ev.Page = stringValue(props[mapping.PageKey])
	}

	// The query value folds into page as a bare suffix: the provider
	// records it with its own leading separator, so none is inserted. It
	// never surfaces as a field of its own.
	if mapping.QueryKey != "" && ev.Page != nil {
		if query, ok := props[mapping.QueryKey].(string); ok && query != "" {
			page := *ev.Page + query
			ev.Page = &page
		}
	}

	return ev
}

// sourceContainer picks the nested replay-data object when present and
// non-empty, else the top-level properties. One function on purpose so the
// two branches cannot drift apart.
func sourceContainer(props map[string]any, replayDataKey string) map[string]any {
	if replayDataKey != "" {
		if nested, ok := props[replayDataKey].(map[string]any); ok && len(nested) > 0 {
			return nested
		}
	}
	return props
}

func numberValue(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	default:
		return nil
	}
}

func stringValue(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}
