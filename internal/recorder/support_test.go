package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"streamvault/internal/config"
	"streamvault/internal/metadata"
)

// fakeStore is an in-memory MetadataStore for tests that don't need mongo.
type fakeStore struct {
	mu     sync.Mutex
	trims  map[string]metadata.TrimRecord
	titles map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trims:  make(map[string]metadata.TrimRecord),
		titles: make(map[string]string),
	}
}

func (f *fakeStore) GetTrim(_ context.Context, filename string) (*metadata.TrimRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.trims[filename]; ok {
		copied := record
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) PutTrim(_ context.Context, record metadata.TrimRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trims[record.Filename] = record
	return nil
}

func (f *fakeStore) DeleteTrim(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.trims, filename)
	return nil
}

func (f *fakeStore) Title(_ context.Context, streamID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if title, ok := f.titles[streamID]; ok {
		return title
	}
	return streamID
}

func (f *fakeStore) trimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trims)
}

// recordingNotifier collects session events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifySession(event, streamID, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+streamID)
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing stub script: %v", err)
	}
	return path
}

// captureScript behaves like the capture tool: it creates its -o target and
// runs until interrupted.
const captureScript = `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
: > "$out"
trap 'exit 0' INT TERM
i=0
while [ $i -lt 100 ]; do sleep 0.1; i=$((i+1)); done
`

// stubbornCaptureScript ignores the graceful interrupt.
const stubbornCaptureScript = `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
: > "$out"
trap '' INT TERM
i=0
while [ $i -lt 100 ]; do sleep 0.1; i=$((i+1)); done
`

func testRecorderConfig(t *testing.T, downloadDir string) config.RecorderConfig {
	t.Helper()
	return config.RecorderConfig{
		DownloadDir:   downloadDir,
		YtDlpPath:     "yt-dlp",
		FFmpegPath:    "ffmpeg",
		Timezone:      "UTC",
		MinClipBytes:  100,
		TitleTimeout:  5 * time.Second,
		StopKillAfter: 0,
	}
}

// waitFor polls until condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return condition()
}
