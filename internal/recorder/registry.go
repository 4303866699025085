package recorder

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Session holds the state of one active capture. The command itself stays
// with the supervisor goroutine that created the session; only the process
// handle is shared here, set once after a successful launch and read under
// the session mutex. The registry keeps a non-owning reference for lookup.
type Session struct {
	StreamID   string
	OutputPath string
	StartedAt  time.Time

	mu      sync.Mutex
	process *os.Process
}

// setProcess publishes the launched process handle. The session is visible in
// the registry before the launch completes, so readers go through the mutex.
func (s *Session) setProcess(p *os.Process) {
	s.mu.Lock()
	s.process = p
	s.mu.Unlock()
}

// Signal delivers a signal to the capture process. Before the launch has
// completed there is no process to signal, reported as ErrNoActiveSession;
// signalling an already-exited process reports the runtime's error, which
// stop treats as ignorable.
func (s *Session) Signal(sig os.Signal) error {
	s.mu.Lock()
	p := s.process
	s.mu.Unlock()
	if p == nil {
		return ErrNoActiveSession
	}
	return p.Signal(sig)
}

// PID returns the capture process id, or 0 if the launch has not completed.
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.process == nil {
		return 0
	}
	return s.process.Pid
}

// SessionInfo is a point-in-time copy of a session for status reporting.
type SessionInfo struct {
	StreamID   string    `json:"stream_id"`
	OutputFile string    `json:"output_file"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
}

// Registry is the concurrent map of stream id to active session. All access
// goes through its methods; at most one session per stream id exists at any
// time.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// TryReserve atomically inserts the session unless one already exists for its
// stream id. Exactly one of two racing starts wins.
func (r *Registry) TryReserve(session *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.StreamID]; exists {
		return false
	}
	r.sessions[session.StreamID] = session
	return true
}

func (r *Registry) Lookup(streamID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[streamID]
	return session, exists
}

// Release removes the entry for streamID. Removing an absent id is a no-op:
// natural exit and late cleanup may race to release the same session.
func (r *Registry) Release(streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, streamID)
}

// Snapshot returns value copies of all active sessions, newest first.
func (r *Registry) Snapshot() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, session := range r.sessions {
		infos = append(infos, SessionInfo{
			StreamID:   session.StreamID,
			OutputFile: filepath.Base(session.OutputPath),
			PID:        session.PID(),
			StartedAt:  session.StartedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.After(infos[j].StartedAt)
	})
	return infos
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
