package metadata

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TrimRecord is the persisted start/end record for a clipped artifact, keyed
// by the artifact filename.
type TrimRecord struct {
	Filename     string    `bson:"_id" json:"filename"`
	StreamID     string    `bson:"stream_id" json:"stream_id"`
	Start        string    `bson:"start" json:"start"`
	End          string    `bson:"end,omitempty" json:"end,omitempty"`
	StartSeconds float64   `bson:"start_seconds" json:"start_seconds"`
	EndSeconds   *float64  `bson:"end_seconds,omitempty" json:"end_seconds,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

type cachedTitle struct {
	StreamID  string    `bson:"_id"`
	Title     string    `bson:"title"`
	FetchedAt time.Time `bson:"fetched_at"`
}

// TitleResolver looks up the display title for a stream id. Implementations
// are expected to bound their own execution time.
type TitleResolver interface {
	ResolveTitle(ctx context.Context, streamID string) (string, error)
}

// Store persists trim metadata and cached titles, one document per record.
// Writes are upserts of whole documents, so concurrent readers never observe
// a half-written record.
type Store struct {
	trims    *mongo.Collection
	titles   *mongo.Collection
	resolver TitleResolver
}

func NewStore(db *mongo.Database, resolver TitleResolver) *Store {
	return &Store{
		trims:    db.Collection("trim_metadata"),
		titles:   db.Collection("titles"),
		resolver: resolver,
	}
}

// GetTrim returns the trim record for filename, or nil when absent.
func (s *Store) GetTrim(ctx context.Context, filename string) (*TrimRecord, error) {
	var record TrimRecord
	err := s.trims.FindOne(ctx, bson.M{"_id": filename}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading trim metadata for %s: %w", filename, err)
	}
	return &record, nil
}

// PutTrim stores the record, overwriting any previous one for the same
// filename.
func (s *Store) PutTrim(ctx context.Context, record TrimRecord) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.trims.ReplaceOne(ctx, bson.M{"_id": record.Filename}, record, opts); err != nil {
		return fmt.Errorf("writing trim metadata for %s: %w", record.Filename, err)
	}
	return nil
}

// DeleteTrim removes the record for filename. Deleting an absent record is a
// no-op.
func (s *Store) DeleteTrim(ctx context.Context, filename string) error {
	if _, err := s.trims.DeleteOne(ctx, bson.M{"_id": filename}); err != nil {
		return fmt.Errorf("deleting trim metadata for %s: %w", filename, err)
	}
	return nil
}

// Title returns the display title for a stream id, read-through cached. The
// resolver runs once per id; a failed lookup falls back to the id itself and
// is not cached, so a later request may retry.
func (s *Store) Title(ctx context.Context, streamID string) string {
	var cached cachedTitle
	err := s.titles.FindOne(ctx, bson.M{"_id": streamID}).Decode(&cached)
	if err == nil {
		return cached.Title
	}
	if err != mongo.ErrNoDocuments {
		log.Printf("MetadataStore: title cache read failed for %s: %v", streamID, err)
		return streamID
	}

	if s.resolver == nil {
		return streamID
	}

	title, err := s.resolver.ResolveTitle(ctx, streamID)
	if err != nil || strings.TrimSpace(title) == "" {
		log.Printf("MetadataStore: title lookup failed for %s: %v", streamID, err)
		return streamID
	}

	opts := options.Replace().SetUpsert(true)
	record := cachedTitle{StreamID: streamID, Title: title, FetchedAt: time.Now()}
	if _, err := s.titles.ReplaceOne(ctx, bson.M{"_id": streamID}, record, opts); err != nil {
		log.Printf("MetadataStore: caching title for %s failed: %v", streamID, err)
	}
	return title
}
