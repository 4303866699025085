package recorder

import (
	"context"

	"streamvault/internal/metadata"
)

// MetadataStore is the persistence the clip engine and library need. Satisfied
// by *metadata.Store.
type MetadataStore interface {
	GetTrim(ctx context.Context, filename string) (*metadata.TrimRecord, error)
	PutTrim(ctx context.Context, record metadata.TrimRecord) error
	DeleteTrim(ctx context.Context, filename string) error
	Title(ctx context.Context, streamID string) string
}
