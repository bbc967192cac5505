package service

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/katakuxiko/luminarag/internal/model"
)

// Session is the per-user state of one conversation: its chat transcript
// and the set of files it has ingested. Sessions never share state; the
// index they write to is shared.
type Session struct {
	ID        string
	CreatedAt time.Time

	// turn serializes questions and uploads within the session
	turn sync.Mutex

	mu      sync.Mutex
	history []model.ChatTurn
	files   map[string]int // file name -> chunk count
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		files:     make(map[string]int),
	}
}

// History returns a copy of the transcript, oldest first.
func (s *Session) History() []model.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatTurn(nil), s.history...)
}

func (s *Session) appendTurn(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, model.ChatTurn{Question: question, Answer: answer, At: time.Now()})
}

// Processed reports whether name was already ingested in this session.
func (s *Session) Processed(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	return ok
}

func (s *Session) markProcessed(name string, chunks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = chunks
}

// Files lists ingested file names in sorted order.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// chunkIDs returns every id this session wrote, derived from name + count.
func (s *Session) chunkIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for name, n := range s.files {
		for i := 0; i < n; i++ {
			ids = append(ids, model.ChunkID(name, i))
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) clearFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]int)
}

// Sessions is a registry of live sessions, safe for concurrent use.
type Sessions struct {
	mu   sync.RWMutex
	byID map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*Session)}
}

func (r *Sessions) Create() *Session {
	s := NewSession()
	r.mu.Lock()
	r.byID[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

// Delete ends a session. Its indexed chunks stay in the index.
func (r *Sessions) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return model.ErrSessionNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
