// internal/schema/schema.go

// Package schema declares the mapping from canonical replay fields to the
// property keys a specific analytics deployment records them under.
package schema

import "errors"

// ErrNoKeys is returned when a mapping configures no provider keys at all.
var ErrNoKeys = errors.New("schema mapping requires at least one provider key")

// Canonical field names populated by the normalizer.
const (
	FieldDimension     = "dimension"
	FieldScrollTop     = "scrollTop"
	FieldMousePosition = "mousePosition"
	FieldTime          = "time"
	FieldPage          = "page"
	FieldQuery         = "query"
)

// Mapping binds canonical fields to provider property keys. Every slot is
// optional; an empty string means the field is not recorded. ReplayDataKey
// does not map a field of its own: it names the property under which the
// provider nests replay-specific data, and when that container is present
// on a record it is preferred over top-level properties.
type Mapping struct {
	ReplayDataKey    string
	DimensionKey     string
	ScrollTopKey     string
	MousePositionKey string
	TimeKey          string
	PageKey          string
	QueryKey         string
}

// Field is one configured canonical-field-to-provider-key binding.
type Field struct {
	Name string
	Key  string
}

// New validates a mapping takes effect somewhere. It fails with ErrNoKeys
// when every slot is empty.
func New(m Mapping) (*Mapping, error) {
	if m == (Mapping{}) {
		return nil, ErrNoKeys
	}
	return &m, nil
}

// ActiveFields returns the configured bindings in a fixed order, excluding
// ReplayDataKey. The normalizer populates exactly these fields.
func (m *Mapping) ActiveFields() []Field {
	slots := []Field{
		{FieldDimension, m.DimensionKey},
		{FieldScrollTop, m.ScrollTopKey},
		{FieldMousePosition, m.MousePositionKey},
		{FieldTime, m.TimeKey},
		{FieldPage, m.PageKey},
		{FieldQuery, m.QueryKey},
	}

	active := make([]Field, 0, len(slots))
	for _, f := range slots {
		if f.Key != "" {
			active = append(active, f)
		}
	}
	return active
}
