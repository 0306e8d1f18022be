package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/roiviewer/internal/models"
)

type SessionStore struct {
	sessions map[string]*models.ViewerSession
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.ViewerSession),
	}
}

func (s *SessionStore) Get(sessionID string) (*models.ViewerSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *models.ViewerSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// List returns all sessions, oldest first.
func (s *SessionStore) List() []*models.ViewerSession {
	s.mu.RLock()
	result := make([]*models.ViewerSession, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session and closes its viewer. It reports whether the
// session existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists && session.Viewer != nil {
		session.Viewer.Close()
	}
	return exists
}

// Close removes every session and closes its viewer.
func (s *SessionStore) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*models.ViewerSession)
	s.mu.Unlock()

	for _, session := range sessions {
		if session.Viewer != nil {
			session.Viewer.Close()
		}
	}
}
