package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-mirrored implementation of app.SessionRepository.
// Live sessions stay in a local map so the in-process broadcast and locking
// keep working; every change writes the full session state to
// quiz:session:{id} so a restarted instance can rehydrate it.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	timing app.Timing
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, timing app.Timing) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		timing:   timing,
		now:      time.Now,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(ctx context.Context, session *app.Session) error {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	return s.Save(ctx, session)
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*app.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return session, nil
	}

	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if isMiss(err) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	restored := app.RestoreSession(rec.state(), s.timing, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have rehydrated it meanwhile.
	if existing, ok := s.sessions[sessionID]; ok {
		return existing, nil
	}
	s.sessions[sessionID] = restored
	return restored, nil
}

func (s *SessionStore) Save(ctx context.Context, session *app.Session) error {
	data, err := json.Marshal(newSessionRecord(session.State()))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key(session.ID()), data, s.ttl).Err()
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

// sessionRecord is the stored form of app.SessionState. Participants carry
// their ownership token, which the domain type never serializes.
type sessionRecord struct {
	Session      domain.Session           `json:"session"`
	Quiz         domain.Quiz              `json:"quiz"`
	Participants []participantRecord      `json:"participants"`
	Submissions  []domain.SubmittedAnswer `json:"submissions"`
}

type participantRecord struct {
	domain.Participant
	Token string `json:"token,omitempty"`
}

func newSessionRecord(state app.SessionState) sessionRecord {
	rec := sessionRecord{
		Session:      state.Session,
		Quiz:         state.Quiz,
		Participants: make([]participantRecord, 0, len(state.Participants)),
		Submissions:  state.Submissions,
	}
	for _, p := range state.Participants {
		rec.Participants = append(rec.Participants, participantRecord{Participant: p, Token: p.Token})
	}
	return rec
}

func (r sessionRecord) state() app.SessionState {
	state := app.SessionState{
		Session:      r.Session,
		Quiz:         r.Quiz,
		Participants: make([]domain.Participant, 0, len(r.Participants)),
		Submissions:  r.Submissions,
	}
	for _, p := range r.Participants {
		participant := p.Participant
		participant.Token = p.Token
		state.Participants = append(state.Participants, participant)
	}
	return state
}
