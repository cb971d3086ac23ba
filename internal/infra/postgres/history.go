package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type sessionModel struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	ID                   string    `bun:"id,pk"`
	QuizID               string    `bun:"quiz_id"`
	CreatorID            string    `bun:"creator_id"`
	Status               string    `bun:"status"`
	CurrentQuestionIndex int       `bun:"current_question_index"`
	QuestionStartedAt    time.Time `bun:"question_started_at,nullzero"`
	CreatedAt            time.Time `bun:"created_at"`
	StartedAt            time.Time `bun:"started_at,nullzero"`
	CompletedAt          time.Time `bun:"completed_at,nullzero"`
}

type participantModel struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID          string    `bun:"id,pk"`
	SessionID   string    `bun:"session_id"`
	UserID      string    `bun:"user_id,nullzero"`
	Pseudo      string    `bun:"pseudo"`
	Score       int       `bun:"score"`
	JoinedAt    time.Time `bun:"joined_at"`
	LastUpdated time.Time `bun:"last_updated"`
}

type submissionModel struct {
	bun.BaseModel `bun:"table:submitted_answers"`

	ID            string    `bun:"id,pk"`
	SessionID     string    `bun:"session_id"`
	ParticipantID string    `bun:"participant_id"`
	QuestionID    string    `bun:"question_id"`
	AnswerIDs     []string  `bun:"answer_ids,array"`
	TimeTakenMS   int64     `bun:"time_taken_ms"`
	IsCorrect     bool      `bun:"is_correct"`
	PointsEarned  int       `bun:"points_earned"`
	SubmittedAt   time.Time `bun:"submitted_at"`
}

// History records sessions, participants and submitted answers.
type History struct {
	db *bun.DB
}

func NewHistory(db *bun.DB) *History {
	return &History{db: db}
}

func (h *History) RecordSession(ctx context.Context, s domain.Session) error {
	m := sessionModel{
		ID:                   s.ID,
		QuizID:               s.QuizID,
		CreatorID:            s.CreatorID,
		Status:               string(s.Status),
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		QuestionStartedAt:    s.QuestionStartedAt,
		CreatedAt:            s.CreatedAt,
		StartedAt:            s.StartedAt,
		CompletedAt:          s.CompletedAt,
	}
	_, err := h.db.NewInsert().Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("current_question_index = EXCLUDED.current_question_index").
		Set("question_started_at = EXCLUDED.question_started_at").
		Set("started_at = EXCLUDED.started_at").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.RecordSession: %w", err)
	}
	return nil
}

func (h *History) RecordParticipant(ctx context.Context, p domain.Participant) error {
	m := participantModel{
		ID:          p.ID,
		SessionID:   p.SessionID,
		UserID:      p.UserID,
		Pseudo:      p.Pseudo,
		Score:       p.Score,
		JoinedAt:    p.JoinedAt,
		LastUpdated: p.LastUpdated,
	}
	// GREATEST keeps the stored score from ever going down.
	_, err := h.db.NewInsert().Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("pseudo = EXCLUDED.pseudo").
		Set("score = GREATEST(p.score, EXCLUDED.score)").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.RecordParticipant: %w", err)
	}
	return nil
}

func (h *History) RecordSubmission(ctx context.Context, a domain.SubmittedAnswer) error {
	m := submissionModel{
		ID:            a.ID,
		SessionID:     a.SessionID,
		ParticipantID: a.ParticipantID,
		QuestionID:    a.QuestionID,
		AnswerIDs:     a.AnswerIDs,
		TimeTakenMS:   a.TimeTaken.Milliseconds(),
		IsCorrect:     a.IsCorrect,
		PointsEarned:  a.PointsEarned,
		SubmittedAt:   a.SubmittedAt,
	}
	if m.AnswerIDs == nil {
		m.AnswerIDs = []string{}
	}
	_, err := h.db.NewInsert().Model(&m).
		On("CONFLICT (participant_id, question_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.RecordSubmission: %w", err)
	}
	return nil
}

// Submissions lists the answers recorded for a session in submission order.
func (h *History) Submissions(ctx context.Context, sessionID string) ([]domain.SubmittedAnswer, error) {
	var models []submissionModel
	err := h.db.NewSelect().Model(&models).
		Where("session_id = ?", sessionID).
		Order("submitted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Submissions: %w", err)
	}
	out := make([]domain.SubmittedAnswer, 0, len(models))
	for _, m := range models {
		out = append(out, domain.SubmittedAnswer{
			ID:            m.ID,
			SessionID:     m.SessionID,
			ParticipantID: m.ParticipantID,
			QuestionID:    m.QuestionID,
			AnswerIDs:     m.AnswerIDs,
			TimeTaken:     time.Duration(m.TimeTakenMS) * time.Millisecond,
			IsCorrect:     m.IsCorrect,
			PointsEarned:  m.PointsEarned,
			SubmittedAt:   m.SubmittedAt,
		})
	}
	return out, nil
}
