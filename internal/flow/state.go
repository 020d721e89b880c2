// File path: internal/flow/state.go
package flow

import (
	"sync"
	"time"
)

// UploadedFile records one accepted bank-statement upload. Instances are
// created by the upload store once a file passes the extension and size
// checks and are immutable afterwards.
type UploadedFile struct {
	OriginalName string    `json:"original_name"`
	StoredID     string    `json:"stored_id"`
	Size         int64     `json:"size"`
	MimeCategory string    `json:"mime_category"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UserID       string    `json:"user_id"`
}

// Conversation is the per-user mutable flow record. Cursor indexes into the
// catalog; Answers never contains a key the cursor has not passed.
type Conversation struct {
	Active  bool
	Cursor  int
	Answers map[string]string
	Files   []UploadedFile
}

func newConversation() Conversation {
	return Conversation{Answers: make(map[string]string)}
}

// clone returns a deep copy so the pure transition function can mutate
// freely without committing.
func (c Conversation) clone() Conversation {
	out := c
	out.Answers = make(map[string]string, len(c.Answers))
	for k, v := range c.Answers {
		out.Answers[k] = v
	}
	out.Files = append([]UploadedFile(nil), c.Files...)
	return out
}

type session struct {
	mu      sync.Mutex
	conv    Conversation
	touched time.Time
}

// Sessions is the process-scoped keyed store of conversation state. Turn
// processing locks the per-key session for its full duration, giving the
// single-writer-per-key discipline the engine relies on; different users
// proceed in parallel.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*session
	idleTTL time.Duration

	reaperOnce sync.Once
	done       chan struct{}
}

// NewSessions builds a session store. Sessions idle longer than idleTTL are
// reclaimed by the reaper; zero disables eviction.
func NewSessions(idleTTL time.Duration) *Sessions {
	return &Sessions{
		entries: make(map[string]*session),
		idleTTL: idleTTL,
		done:    make(chan struct{}),
	}
}

// acquire returns the session for a user, creating it lazily.
func (s *Sessions) acquire(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.entries[userID]
	if !ok {
		sess = &session{conv: newConversation(), touched: time.Now()}
		s.entries[userID] = sess
	}
	return sess
}

// Snapshot returns a copy of the user's conversation, if one exists.
func (s *Sessions) Snapshot(userID string) (Conversation, bool) {
	s.mu.Lock()
	sess, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return Conversation{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.conv.clone(), true
}

// Reset replaces the user's conversation with a fresh inactive record.
func (s *Sessions) Reset(userID string) {
	sess := s.acquire(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.conv = newConversation()
	sess.touched = time.Now()
}

// Evict drops the user's session entirely.
func (s *Sessions) Evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartReaper launches the background sweep that evicts idle sessions.
// Abandoned flows otherwise accumulate for the life of the process.
func (s *Sessions) StartReaper(interval time.Duration) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	s.reaperOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-s.done:
					return
				case now := <-ticker.C:
					s.sweep(now)
				}
			}
		}()
	})
}

// Close stops the reaper goroutine.
func (s *Sessions) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Sessions) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.entries {
		// TryLock skips sessions mid-turn; they are not idle.
		if !sess.mu.TryLock() {
			continue
		}
		idle := now.Sub(sess.touched)
		sess.mu.Unlock()
		if idle > s.idleTTL {
			delete(s.entries, id)
		}
	}
}
