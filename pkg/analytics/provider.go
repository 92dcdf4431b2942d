// Package analytics defines the surface ghostwalk consumes from analytics
// providers: raw exported records, validated export parameters, and the
// on-disk recording format. Implementations handle provider-specific
// details such as endpoints, authentication, and response framing.
package analytics

import "context"

// Provider fetches raw interaction records from an analytics service.
type Provider interface {
	// Export downloads the raw records matching the given parameters,
	// preserving provider order.
	Export(ctx context.Context, params Params) ([]RawRecord, error)
}

// Config holds common configuration for analytics providers.
type Config struct {
	BaseURL   string
	ProjectID string
	Username  string
	Secret    string
}
