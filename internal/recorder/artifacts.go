package recorder

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"streamvault/internal/metadata"
)

// Artifact is a finished recording or clip in the download directory.
type Artifact struct {
	Filename  string               `json:"filename"`
	StreamID  string               `json:"stream_id"`
	SizeBytes int64                `json:"size_bytes"`
	SizeMB    float64              `json:"size_mb"`
	ModTime   time.Time            `json:"mod_time"`
	URL       string               `json:"url"`
	Title     string               `json:"title,omitempty"`
	Trim      *metadata.TrimRecord `json:"trim,omitempty"`
}

// StreamIDFromFilename decodes the stream id encoded as the text before the
// first underscore. Filenames without an underscore have no decodable id.
// Stream ids containing '_' would be ambiguous here, which is why start
// rejects them.
func StreamIDFromFilename(filename string) string {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return "unknown"
	}
	return parts[0]
}

// Library is the artifact directory plus its metadata records.
type Library struct {
	dir   string
	store MetadataStore
}

func NewLibrary(dir string, store MetadataStore) *Library {
	return &Library{dir: dir, store: store}
}

// List returns all artifacts, newest first, with titles and trim metadata
// attached. A missing metadata record never blocks the listing.
func (l *Library) List(ctx context.Context) ([]Artifact, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, "*.mp4"))
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}

	titles := make(map[string]string)
	artifacts := make([]Artifact, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		filename := filepath.Base(path)
		streamID := StreamIDFromFilename(filename)

		title, cached := titles[streamID]
		if !cached {
			title = l.store.Title(ctx, streamID)
			titles[streamID] = title
		}

		trim, err := l.store.GetTrim(ctx, filename)
		if err != nil {
			log.Printf("Library: trim metadata unavailable for %s: %v", filename, err)
		}

		artifacts = append(artifacts, Artifact{
			Filename:  filename,
			StreamID:  streamID,
			SizeBytes: info.Size(),
			SizeMB:    float64(info.Size()) / (1024 * 1024),
			ModTime:   info.ModTime(),
			URL:       "/downloads/" + filename,
			Title:     title,
			Trim:      trim,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].ModTime.After(artifacts[j].ModTime)
	})
	return artifacts, nil
}

// Latest returns the path of the most recently written capture for streamID,
// or ErrNoArtifact.
func (l *Library) Latest(streamID string) (string, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, streamID+"_*.mp4"))
	if err != nil {
		return "", fmt.Errorf("scanning artifacts for %s: %w", streamID, err)
	}

	var latest string
	var latestMod time.Time
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = path
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", ErrNoArtifact
	}
	return latest, nil
}

// Resolve maps a bare filename to its path in the download directory,
// rejecting names that would escape it.
func (l *Library) Resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ValidationError{Field: "filename", Message: "invalid filename"}
	}

	path := filepath.Join(l.dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNoArtifact
	}
	return path, nil
}

// Delete removes the artifact file and its metadata record. Unknown
// filenames report ErrNoArtifact without side effects.
func (l *Library) Delete(ctx context.Context, filename string) error {
	path, err := l.Resolve(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting %s: %w", filename, err)
	}
	if err := l.store.DeleteTrim(ctx, filename); err != nil {
		// File is gone; a stale metadata record is harmless and logged.
		log.Printf("Library: could not delete metadata for %s: %v", filename, err)
	}
	log.Printf("Library: deleted %s", filename)
	return nil
}
