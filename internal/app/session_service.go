package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/lib/logger/sl"

	"github.com/google/uuid"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(ctx context.Context, session *Session) error
	// Get returns domain.ErrSessionNotFound for unknown IDs.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Save is called after every change so mirrored stores stay current.
	Save(ctx context.Context, session *Session) error
	List() []*Session
	Delete(ctx context.Context, sessionID string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizWriter persists authored quizzes.
type QuizWriter interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// HistoryRecorder keeps the durable record of sessions and answers.
type HistoryRecorder interface {
	RecordSession(ctx context.Context, session domain.Session) error
	RecordParticipant(ctx context.Context, participant domain.Participant) error
	RecordSubmission(ctx context.Context, answer domain.SubmittedAnswer) error
}

// Notifier forwards session events to the notification service.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

// ErrAuthoringDisabled is returned when no QuizWriter was configured.
var ErrAuthoringDisabled = errors.New("quiz authoring is not configured")

const notifyTimeout = 5 * time.Second

// SessionService contains the quiz session use cases.
type SessionService struct {
	log      *slog.Logger
	sessions SessionRepository
	quizzes  QuizRepository
	writer   QuizWriter
	history  HistoryRecorder
	notifier Notifier
	timing   Timing
	now      func() time.Time
}

// Option customizes a SessionService.
type Option func(*SessionService)

func WithLogger(log *slog.Logger) Option {
	return func(s *SessionService) { s.log = log }
}

func WithQuizWriter(w QuizWriter) Option {
	return func(s *SessionService) { s.writer = w }
}

func WithHistory(h HistoryRecorder) Option {
	return func(s *SessionService) { s.history = h }
}

func WithNotifier(n Notifier) Option {
	return func(s *SessionService) { s.notifier = n }
}

func WithTiming(t Timing) Option {
	return func(s *SessionService) { s.timing = t }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

func NewSessionService(store SessionRepository, quizzes QuizRepository, opts ...Option) *SessionService {
	s := &SessionService{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessions: store,
		quizzes:  quizzes,
		history:  nopHistory{},
		notifier: nopNotifier{},
		timing:   DefaultTiming(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz validates and stores a new quiz owned by user.
func (s *SessionService) CreateQuiz(ctx context.Context, user *domain.User, draft domain.Quiz) (domain.Quiz, error) {
	const op = "app.CreateQuiz"

	if user == nil {
		return domain.Quiz{}, domain.ErrMissingCredentials
	}
	if s.writer == nil {
		return domain.Quiz{}, ErrAuthoringDisabled
	}

	quiz, err := prepareQuiz(draft, user.ID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.writer.SaveQuiz(ctx, quiz); err != nil {
		s.log.Error("failed to save quiz", slog.String("op", op), sl.Err(err))
		return domain.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("quiz created", slog.String("op", op), slog.String("quiz_id", quiz.ID), slog.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

// GetQuiz returns the player-facing view of a quiz.
func (s *SessionService) GetQuiz(ctx context.Context, quizID string) (domain.PublicQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	public := domain.PublicQuiz{
		ID:              quiz.ID,
		Title:           quiz.Title,
		TimePerQuestion: quiz.TimePerQuestion,
		MultipleAnswers: quiz.MultipleAnswers,
		Status:          quiz.Status,
		CreatorID:       quiz.CreatorID,
		Questions:       make([]domain.PublicQuestion, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		limit := ResolveTimeLimit(quiz, q, s.timing)
		public.Questions = append(public.Questions, q.Public(int(limit/time.Second)))
	}
	return public, nil
}

// CreateSession opens a pending session for a quiz.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User, quizID string) (domain.Snapshot, error) {
	const op = "app.CreateSession"

	if user == nil {
		return domain.Snapshot{}, domain.ErrMissingCredentials
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	switch {
	case quiz.Status == domain.QuizArchived:
		return domain.Snapshot{}, domain.ErrQuizArchived
	case quiz.Status != domain.QuizPublished && !CanManageQuiz(user, quiz):
		return domain.Snapshot{}, domain.ErrQuizNotPlayable
	case len(quiz.Questions) == 0:
		return domain.Snapshot{}, domain.NewValidationError("quiz_id", "quiz has no questions")
	}

	session := NewSessionWithClock(uuid.NewString(), quiz, user.ID, s.timing, s.now)
	if err := s.sessions.Put(ctx, session); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("session created",
		slog.String("op", op),
		slog.String("session_id", session.ID()),
		slog.String("quiz_id", quiz.ID),
	)
	s.afterChange(ctx, session, []domain.EventType{domain.EventSessionCreated})
	return session.Snapshot(), nil
}

// Join registers a player in a session.
func (s *SessionService) Join(ctx context.Context, user *domain.User, sessionID, pseudo string) (domain.JoinResult, error) {
	const op = "app.Join"

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.JoinResult{}, err
	}
	result, participant, events, err := session.join(user, pseudo)
	s.afterChange(ctx, session, events)
	if err != nil {
		return domain.JoinResult{}, err
	}

	if err := s.history.RecordParticipant(ctx, participant); err != nil {
		s.log.Error("failed to record participant", slog.String("op", op), slog.String("session_id", sessionID), sl.Err(err))
	}
	s.log.Info("participant joined",
		slog.String("op", op),
		slog.String("session_id", sessionID),
		slog.String("participant_id", participant.ID),
	)
	return result, nil
}

// Start moves a pending session to its first question.
func (s *SessionService) Start(ctx context.Context, user *domain.User, sessionID string) (domain.Snapshot, error) {
	return s.manage(ctx, "app.Start", sessionID, func(session *Session) (domain.Snapshot, []domain.EventType, error) {
		return session.start(user)
	})
}

// NextQuestion advances an active session, completing it after the last question.
func (s *SessionService) NextQuestion(ctx context.Context, user *domain.User, sessionID string) (domain.Snapshot, error) {
	return s.manage(ctx, "app.NextQuestion", sessionID, func(session *Session) (domain.Snapshot, []domain.EventType, error) {
		return session.nextQuestion(user)
	})
}

// Complete ends an active session early.
func (s *SessionService) Complete(ctx context.Context, user *domain.User, sessionID string) (domain.Snapshot, error) {
	return s.manage(ctx, "app.Complete", sessionID, func(session *Session) (domain.Snapshot, []domain.EventType, error) {
		return session.complete(user)
	})
}

func (s *SessionService) manage(ctx context.Context, op, sessionID string, fn func(*Session) (domain.Snapshot, []domain.EventType, error)) (domain.Snapshot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snapshot, events, err := fn(session)
	s.afterChange(ctx, session, events)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.log.Info("session updated",
		slog.String("op", op),
		slog.String("session_id", sessionID),
		slog.String("status", string(snapshot.Status)),
		slog.Int("question_index", snapshot.CurrentQuestionIndex),
	)
	return snapshot, nil
}

// SubmitAnswer scores a participant's answer to the current question.
// token authenticates anonymous participants.
func (s *SessionService) SubmitAnswer(ctx context.Context, user *domain.User, token, sessionID string, submission domain.Submission) (domain.AnswerResult, error) {
	const op = "app.SubmitAnswer"

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	outcome, err := session.submit(user, token, submission)
	s.afterChange(ctx, session, outcome.events)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", sessionID),
		slog.String("participant_id", outcome.participant.ID),
	)
	if err := s.history.RecordSubmission(ctx, outcome.answer); err != nil {
		log.Error("failed to record submission", sl.Err(err))
	}
	if err := s.history.RecordParticipant(ctx, outcome.participant); err != nil {
		log.Error("failed to record participant score", sl.Err(err))
	}
	log.Info("answer scored",
		slog.Bool("correct", outcome.result.IsCorrect),
		slog.Int("points", outcome.result.PointsEarned),
		slog.Int("total", outcome.result.TotalScore),
	)
	return outcome.result, nil
}

// Snapshot returns the pollable state of a session.
func (s *SessionService) Snapshot(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.afterChange(ctx, session, session.Tick())
	return session.Snapshot(), nil
}

// Leaderboard returns the ordered scoreboard of a session.
func (s *SessionService) Leaderboard(ctx context.Context, sessionID string) (domain.Leaderboard, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return session.Leaderboard(), nil
}

// Subscribe returns a channel that receives snapshots whenever the session changes.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Snapshot, func(), error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// SweepExpired advances every live session whose current question ran out
// of time and returns how many changed.
func (s *SessionService) SweepExpired(ctx context.Context) int {
	changed := 0
	for _, session := range s.sessions.List() {
		events := session.Tick()
		if len(events) == 0 {
			continue
		}
		changed++
		s.afterChange(ctx, session, events)
	}
	return changed
}

// EvictCompleted drops sessions that completed more than retain ago from
// the live store. Their history stays in the recorder.
func (s *SessionService) EvictCompleted(ctx context.Context, retain time.Duration) int {
	const op = "app.EvictCompleted"

	cutoff := s.now().Add(-retain)
	evicted := 0
	for _, session := range s.sessions.List() {
		info := session.Info()
		if info.Status != domain.StatusCompleted || info.CompletedAt.After(cutoff) {
			continue
		}
		if err := s.sessions.Delete(ctx, info.ID); err != nil {
			s.log.Error("failed to evict session", slog.String("op", op), slog.String("session_id", info.ID), sl.Err(err))
			continue
		}
		evicted++
	}
	return evicted
}

// afterChange mirrors the session and emits events once something changed.
func (s *SessionService) afterChange(ctx context.Context, session *Session, events []domain.EventType) {
	if len(events) == 0 {
		return
	}
	const op = "app.afterChange"
	log := s.log.With(slog.String("op", op), slog.String("session_id", session.ID()))

	if err := s.sessions.Save(ctx, session); err != nil {
		log.Error("failed to save session", sl.Err(err))
	}
	if err := s.history.RecordSession(ctx, session.Info()); err != nil {
		log.Error("failed to record session", sl.Err(err))
	}

	snapshot := session.Snapshot()
	for _, typ := range events {
		s.notify(domain.Event{
			Type:      typ,
			SessionID: snapshot.SessionID,
			Snapshot:  snapshot,
			At:        s.now(),
		})
	}
}

// notify is fire-and-forget: callers never wait on the notification service.
func (s *SessionService) notify(event domain.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.log.Warn("failed to publish session event",
				slog.String("session_id", event.SessionID),
				slog.String("event", string(event.Type)),
				sl.Err(err),
			)
		}
	}()
}

type nopHistory struct{}

func (nopHistory) RecordSession(context.Context, domain.Session) error { return nil }

func (nopHistory) RecordParticipant(context.Context, domain.Participant) error { return nil }

func (nopHistory) RecordSubmission(context.Context, domain.SubmittedAnswer) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Event) error { return nil }
