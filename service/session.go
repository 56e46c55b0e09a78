package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlens/statementchat/config"
	"github.com/ledgerlens/statementchat/model"
)

// Session holds everything a chat session owns: one slot per statement type
// and the conversation transcript. Access goes through the SessionStore.
type Session struct {
	ID            string
	ProfitAndLoss *model.ProfitAndLoss
	BalanceSheet  *model.BalanceSheet
	Messages      []model.Message
	CreatedAt     time.Time
	LastActiveAt  time.Time
}

// HasData reports whether any statement has been uploaded.
func (s *Session) HasData() bool {
	return s.ProfitAndLoss != nil || s.BalanceSheet != nil
}

// SessionStore is an in-memory store for chat sessions
// In production, this should be replaced with a database
type SessionStore struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int           // Maximum sessions to keep, 0 = unlimited
	ttl         time.Duration // Idle time before a session is evicted, 0 = forever
}

var (
	globalStore *SessionStore
	storeOnce   sync.Once
)

// InitSessionStore initializes the global session store with configuration
func InitSessionStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxSessions := cfg.MaxSessions
		if maxSessions < 0 {
			maxSessions = 0
		}
		globalStore = &SessionStore{
			sessions:    make(map[string]*Session),
			maxSessions: maxSessions,
			ttl:         time.Duration(cfg.SessionTTLHours) * time.Hour,
		}
		slog.Info("session store initialized",
			"max_sessions", maxSessions,
			"session_ttl_hours", cfg.SessionTTLHours,
		)
	})
}

// GetSessionStore returns the global session store
func GetSessionStore() *SessionStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &SessionStore{
			sessions:    make(map[string]*Session),
			maxSessions: 100,
			ttl:         12 * time.Hour,
		}
	}
	return globalStore
}

// NewSessionStore creates a standalone store. Tests use this to avoid the
// global singleton.
func NewSessionStore(maxSessions int, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
	}
}

// Create makes a new empty session and returns it.
func (s *SessionStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.sessions[session.ID] = session

	s.cleanupIfNeeded()
	return session
}

// Get returns the session, refreshing its idle clock, or nil if it does not
// exist or has idled out.
func (s *SessionStore) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if s.ttl > 0 && time.Since(session.LastActiveAt) > s.ttl {
		delete(s.sessions, id)
		return nil
	}
	session.LastActiveAt = time.Now()
	return session
}

// PutProfitAndLoss stores the P&L record, replacing any previous one.
func (s *SessionStore) PutProfitAndLoss(id string, pl *model.ProfitAndLoss) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.ProfitAndLoss = pl
	session.LastActiveAt = time.Now()
	return true
}

// PutBalanceSheet stores the Balance Sheet record, replacing any previous one.
func (s *SessionStore) PutBalanceSheet(id string, bs *model.BalanceSheet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.BalanceSheet = bs
	session.LastActiveAt = time.Now()
	return true
}

// DeleteStatement clears one statement slot. Reports whether the session
// exists and the slot was occupied.
func (s *SessionStore) DeleteStatement(id string, typ model.StatementType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.LastActiveAt = time.Now()
	switch typ {
	case model.TypeProfitAndLoss:
		had := session.ProfitAndLoss != nil
		session.ProfitAndLoss = nil
		return had
	case model.TypeBalanceSheet:
		had := session.BalanceSheet != nil
		session.BalanceSheet = nil
		return had
	}
	return false
}

// AppendMessage appends a transcript entry.
func (s *SessionStore) AppendMessage(id string, msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.Messages = append(session.Messages, msg)
	session.LastActiveAt = time.Now()
	return true
}

// Reset clears statements and transcript but keeps the session alive.
func (s *SessionStore) Reset(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.ProfitAndLoss = nil
	session.BalanceSheet = nil
	session.Messages = nil
	session.LastActiveAt = time.Now()
	return true
}

// Delete removes the session entirely.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// cleanupIfNeeded evicts idle sessions past TTL, then the longest-idle ones
// if the store still exceeds maxSessions
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded() {
	if s.ttl > 0 {
		for id, session := range s.sessions {
			if time.Since(session.LastActiveAt) > s.ttl {
				slog.Info("evicting idle session",
					"session_id", id,
					"last_active_at", session.LastActiveAt,
				)
				delete(s.sessions, id)
			}
		}
	}

	if s.maxSessions <= 0 {
		return // Unlimited
	}
	if len(s.sessions) <= s.maxSessions {
		return
	}

	// Sort sessions by last activity
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActiveAt.Before(sessions[j].LastActiveAt)
	})

	// Remove longest-idle sessions
	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old session",
			"session_id", sessions[i].ID,
			"last_active_at", sessions[i].LastActiveAt,
		)
		delete(s.sessions, sessions[i].ID)
	}
}

// Count returns the number of sessions in the store
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
