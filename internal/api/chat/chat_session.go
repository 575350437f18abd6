package chat

import (
	"sync"

	"google.golang.org/genai"

	"github.com/havenai/go-estate-assistant/internal/types"
)

// session holds one user's conversation state. history is the model-facing
// transcript (including tool call and response parts); turns is the
// user-facing record exposed over the history endpoint. The per-session
// mutex serializes turns for a single user so concurrent requests cannot
// interleave their history appends.
type session struct {
	mu      sync.Mutex
	history []*genai.Content
	turns   []types.ConversationTurn
}

// SessionStore keeps in-memory conversations keyed by user email.
// State does not survive a restart; durable persistence of transcripts
// is handled by the inquiry log, not here.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

func (s *SessionStore) get(key string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{}
		s.sessions[key] = sess
	}
	return sess
}

// History returns a copy of the user-facing transcript for key.
func (s *SessionStore) History(key string) []types.ConversationTurn {
	sess := s.get(key)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]types.ConversationTurn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Reset drops all state for key.
func (s *SessionStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}
