// internal/normalize/normalize_test.go
package normalize

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/ghostwalk/internal/schema"
	"github.com/user/ghostwalk/internal/types"
	"github.com/user/ghostwalk/pkg/analytics"
)

func fullMapping(t *testing.T) *schema.Mapping {
	t.Helper()
	m, err := schema.New(schema.Mapping{
		ReplayDataKey:    "reproductive",
		DimensionKey:     "dimension",
		ScrollTopKey:     "scrollTop",
		MousePositionKey: "mousePosition",
		TimeKey:          "time",
		PageKey:          "location",
		QueryKey:         "searchArgs",
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewUnsupportedProvider(t *testing.T) {
	if _, err := New("amplitude", fullMapping(t)); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestNormalizeIndexesFromOne(t *testing.T) {
	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}

	for _, count := range []int{0, 1, 5} {
		records := make([]analytics.RawRecord, count)
		for i := range records {
			records[i] = analytics.RawRecord{Name: "Page viewed", Properties: map[string]any{}}
		}

		stream := n.Normalize(records)
		if stream.Len() != count {
			t.Errorf("count %d: expected %d events, got %d", count, count, stream.Len())
		}
		for i := 1; i <= count; i++ {
			if _, ok := stream.Get(i); !ok {
				t.Errorf("count %d: missing index %d", count, i)
			}
		}
	}
}

func TestNormalizePrefersNestedContainer(t *testing.T) {
	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}

	// Conflicting scrollTop values top-level vs nested.
	withNested := analytics.RawRecord{
		Name: "Scrolled",
		Properties: map[string]any{
			"scrollTop": 111.0,
			"reproductive": map[string]any{
				"scrollTop": 222.0,
			},
		},
	}
	withoutNested := analytics.RawRecord{
		Name: "Scrolled",
		Properties: map[string]any{
			"scrollTop": 111.0,
		},
	}
	emptyNested := analytics.RawRecord{
		Name: "Scrolled",
		Properties: map[string]any{
			"scrollTop":    111.0,
			"reproductive": map[string]any{},
		},
	}

	stream := n.Normalize([]analytics.RawRecord{withNested, withoutNested, emptyNested})

	ev, _ := stream.Get(1)
	if px, ok := ev.ScrollPixels(); !ok || px != 222 {
		t.Errorf("nested container should win: got %v", ev.ScrollTop)
	}
	ev, _ = stream.Get(2)
	if px, ok := ev.ScrollPixels(); !ok || px != 111 {
		t.Errorf("top-level properties should be used without nesting: got %v", ev.ScrollTop)
	}
	ev, _ = stream.Get(3)
	if px, ok := ev.ScrollPixels(); !ok || px != 111 {
		t.Errorf("an empty nested container must fall back to top-level: got %v", ev.ScrollTop)
	}
}

func TestNormalizeTimeAndPageResolveFromTopLevel(t *testing.T) {
	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}

	record := analytics.RawRecord{
		Name: "Page viewed",
		Properties: map[string]any{
			"time":     100.0,
			"location": "https://example.com/top",
			"reproductive": map[string]any{
				"time":      999.0,
				"location":  "https://example.com/nested",
				"dimension": []any{390.0, 844.0},
			},
		},
	}

	ev, _ := n.Normalize([]analytics.RawRecord{record}).Get(1)
	if ts, _ := ev.Timestamp(); ts != 100 {
		t.Errorf("time resolves from top-level properties, got %v", ts)
	}
	if page, _ := ev.PageURL(); page != "https://example.com/top" {
		t.Errorf("page resolves from top-level properties, got %v", page)
	}
	if w, h, ok := ev.Viewport(); !ok || w != 390 || h != 844 {
		t.Errorf("dimension resolves from the nested container, got %v", ev.Dimension)
	}
}

func TestNormalizeQuerySuffix(t *testing.T) {
	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}

	records := []analytics.RawRecord{
		{Name: "Page viewed", Properties: map[string]any{
			"location":   "https://x/a",
			"searchArgs": "?ref=1",
		}},
		{Name: "Page viewed", Properties: map[string]any{
			"location": "https://x/a",
		}},
		{Name: "Page viewed", Properties: map[string]any{
			"location":   "https://x/a",
			"searchArgs": "",
		}},
	}

	stream := n.Normalize(records)

	ev, _ := stream.Get(1)
	if page, _ := ev.PageURL(); page != "https://x/a?ref=1" {
		t.Errorf("query appends verbatim with no separator, got %q", page)
	}
	for i := 2; i <= 3; i++ {
		ev, _ := stream.Get(i)
		if page, _ := ev.PageURL(); page != "https://x/a" {
			t.Errorf("event %d: absent/empty query must leave page unchanged, got %q", i, page)
		}
	}
}

func TestNormalizeMissingPropertiesStayAbsent(t *testing.T) {
	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}

	ev, _ := n.Normalize([]analytics.RawRecord{{Name: "Mystery", Properties: map[string]any{}}}).Get(1)
	if ev.Name != "Mystery" {
		t.Errorf("name copies unconditionally, got %q", ev.Name)
	}
	if _, ok := ev.Timestamp(); ok {
		t.Error("missing time stays absent")
	}
	if _, ok := ev.PageURL(); ok {
		t.Error("missing page stays absent")
	}
}

func TestRegisterAddsProvider(t *testing.T) {
	Register("static", func(record analytics.RawRecord, _ *schema.Mapping) types.Event {
		return types.Event{Name: record.Name}
	})

	n, err := New("static", fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}
	stream := n.Normalize([]analytics.RawRecord{{Name: "x"}})
	if stream.Len() != 1 {
		t.Errorf("expected 1 event, got %d", stream.Len())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	content := `[
    {"event": "Page viewed", "properties": {"location": "https://x/a", "time": 10}},
    {"event": "Button clicked", "properties": {"time": 12}}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}

	stream, err := n.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if stream.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", stream.Len())
	}
	ev, _ := stream.Get(2)
	if ev.Name != "Button clicked" {
		t.Error("file order must be preserved")
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte("{{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := New(ProviderMixpanel, fullMapping(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.LoadFile(path); !errors.Is(err, analytics.ErrInvalidRecording) {
		t.Fatalf("expected ErrInvalidRecording, got %v", err)
	}
}
