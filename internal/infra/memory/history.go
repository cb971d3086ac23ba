package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// History is an in-memory app.HistoryRecorder. The first submission per
// participant and question wins.
type History struct {
	mu           sync.RWMutex
	sessions     map[string]domain.Session
	participants map[string]domain.Participant
	submissions  map[string]domain.SubmittedAnswer
}

func NewHistory() *History {
	return &History{
		sessions:     make(map[string]domain.Session),
		participants: make(map[string]domain.Participant),
		submissions:  make(map[string]domain.SubmittedAnswer),
	}
}

func (h *History) RecordSession(_ context.Context, session domain.Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[session.ID] = session
	return nil
}

func (h *History) RecordParticipant(_ context.Context, participant domain.Participant) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	participant.Token = ""
	h.participants[participant.ID] = participant
	return nil
}

func (h *History) RecordSubmission(_ context.Context, answer domain.SubmittedAnswer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := submissionKey(answer.ParticipantID, answer.QuestionID)
	if _, ok := h.submissions[key]; ok {
		return nil
	}
	h.submissions[key] = answer
	return nil
}

// Session returns the last recorded header of a session.
func (h *History) Session(id string) (domain.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Participant returns the last recorded state of a participant.
func (h *History) Participant(id string) (domain.Participant, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.participants[id]
	return p, ok
}

// Submissions returns every recorded answer of a session.
func (h *History) Submissions(sessionID string) []domain.SubmittedAnswer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []domain.SubmittedAnswer
	for _, a := range h.submissions {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out
}

func submissionKey(participantID, questionID string) string {
	return participantID + "/" + questionID
}
