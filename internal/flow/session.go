package flow

import (
	"sync"
	"time"
)

// Identity carries the Telegram identity of the session owner; it is the
// only piece of transport data the engine needs.
type Identity struct {
	TgUserID  int64
	Username  string
	FirstName string
	LastName  string
	ChatID    int64
}

// Session is the ephemeral per-user conversation context: the navigation
// stack, the draft order and the redelivery marker. It lives in memory
// only; losing it just restarts the flow.
type Session struct {
	mu sync.Mutex

	Identity Identity

	stack     []Step
	draft     Draft
	lastMsgID int
	touchedAt time.Time
}

// Current returns the active step, the top of the stack.
func (s *Session) Current() Step {
	if len(s.stack) == 0 {
		return ""
	}
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of frames on the stack.
func (s *Session) Depth() int {
	return len(s.stack)
}

// push appends a step unless it equals the current top, so re-entrant
// renders never create duplicate frames.
func (s *Session) push(step Step) {
	if s.Current() == step {
		return
	}
	s.stack = append(s.stack, step)
}

// pop removes the top frame and returns the new top. ok is false when the
// stack ran out, meaning the session left the flow.
func (s *Session) pop() (Step, bool) {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	if len(s.stack) == 0 {
		return "", false
	}
	return s.stack[len(s.stack)-1], true
}

// reset drops the stack and the draft. The redelivery marker survives: a
// redelivered update that already ended the flow stays discarded.
func (s *Session) reset() {
	s.stack = s.stack[:0]
	s.draft = NewDraft()
}

// duplicate reports whether the message was already processed and records
// it otherwise. Telegram message IDs grow per chat, so a repeated button
// press is a new message while a redelivered update carries the old one.
// Zero means a synthetic input with no transport identity; those are never
// deduplicated.
func (s *Session) duplicate(msgID int) bool {
	if msgID == 0 {
		return false
	}
	if msgID == s.lastMsgID {
		return true
	}
	s.lastMsgID = msgID
	return false
}

// InFlow reports whether the session has an active conversation.
func (s *Session) InFlow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack) > 0
}

// Snapshot returns a copy of the accumulated draft, for rendering summaries.
func (s *Session) Snapshot() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Manager owns the in-memory sessions keyed by Telegram user ID. A given
// user's updates are serialized by the session mutex; different users are
// fully independent.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	idleTTL  time.Duration
}

// NewManager constructs a session manager. idleTTL bounds how long an
// untouched session survives before PruneIdle collects it; zero disables
// the timeout.
func NewManager(idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		idleTTL:  idleTTL,
	}
}

// Get returns the session for the identity, creating one if needed and
// refreshing the stored identity fields on every interaction.
func (m *Manager) Get(id Identity) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id.TgUserID]
	if !ok {
		sess = &Session{draft: NewDraft()}
		m.sessions[id.TgUserID] = sess
	}
	sess.mu.Lock()
	sess.Identity = id
	sess.mu.Unlock()
	sess.touchedAt = time.Now()
	return sess
}

// Active reports whether the user currently has a conversation in flight.
func (m *Manager) Active(tgUserID int64) bool {
	m.mu.RLock()
	sess, ok := m.sessions[tgUserID]
	m.mu.RUnlock()
	return ok && sess.InFlow()
}

// Delete removes the session for a user.
func (m *Manager) Delete(tgUserID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tgUserID)
}

// PruneIdle drops sessions untouched for longer than the idle TTL and
// returns how many were collected.
func (m *Manager) PruneIdle(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.touchedAt) > m.idleTTL {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}
