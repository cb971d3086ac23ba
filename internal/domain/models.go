package domain

import "time"

// QuizStatus is the authoring state of a quiz.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizArchived  QuizStatus = "archived"
)

// Answer is a possible answer for a question. IsCorrect must never reach
// players before their submission has been scored.
type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Question belongs to one quiz and is played in OrderIndex order.
type Question struct {
	ID         string   `json:"id"`
	QuizID     string   `json:"quizId"`
	Text       string   `json:"text"`
	OrderIndex int      `json:"orderIndex"`
	Points     int      `json:"points"`
	TimeLimit  int      `json:"timeLimit,omitempty"` // seconds, falls back to the quiz setting
	MediaURL   string   `json:"mediaUrl,omitempty"`
	Answers    []Answer `json:"answers"`
}

// CorrectAnswerIDs lists the IDs of answers flagged correct.
func (q Question) CorrectAnswerIDs() []string {
	ids := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// HasAnswer reports whether answerID belongs to the question.
func (q Question) HasAnswer(answerID string) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	TimePerQuestion int        `json:"timePerQuestion"` // seconds
	MultipleAnswers bool       `json:"multipleAnswers"`
	Status          QuizStatus `json:"status"`
	CreatorID       string     `json:"creatorId"`
	Questions       []Question `json:"questions"`
}

// PublicAnswer is the player-facing view of an answer.
type PublicAnswer struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is the player-facing view of a question.
type PublicQuestion struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	OrderIndex int            `json:"orderIndex"`
	Points     int            `json:"points"`
	TimeLimit  int            `json:"timeLimit"`
	MediaURL   string         `json:"mediaUrl,omitempty"`
	Answers    []PublicAnswer `json:"answers"`
}

// PublicQuiz is a quiz stripped of correctness flags.
type PublicQuiz struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	TimePerQuestion int              `json:"timePerQuestion"`
	MultipleAnswers bool             `json:"multipleAnswers"`
	Status          QuizStatus       `json:"status"`
	CreatorID       string           `json:"creatorId"`
	Questions       []PublicQuestion `json:"questions"`
}

// Public strips correctness flags from a question. timeLimit is the
// resolved limit in seconds.
func (q Question) Public(timeLimit int) PublicQuestion {
	answers := make([]PublicAnswer, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, PublicAnswer{ID: a.ID, Text: a.Text})
	}
	return PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		OrderIndex: q.OrderIndex,
		Points:     q.Points,
		TimeLimit:  timeLimit,
		MediaURL:   q.MediaURL,
		Answers:    answers,
	}
}

// User is the authenticated caller supplied by the auth middleware.
type User struct {
	ID   string
	Role string
}

// RoleAdmin grants management of every quiz and session.
const RoleAdmin = "admin"

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Participant is a player within one session.
type Participant struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId,omitempty"` // empty for anonymous players
	Pseudo      string    `json:"pseudo"`
	Score       int       `json:"score"`
	JoinedAt    time.Time `json:"joinedAt"`
	LastUpdated time.Time `json:"lastUpdated"`
	Token       string    `json:"-"`
}

// SubmittedAnswer records one participant's response to one question.
type SubmittedAnswer struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"sessionId"`
	ParticipantID string        `json:"participantId"`
	QuestionID    string        `json:"questionId"`
	AnswerIDs     []string      `json:"answerIds"`
	TimeTaken     time.Duration `json:"timeTaken"`
	IsCorrect     bool          `json:"isCorrect"`
	PointsEarned  int           `json:"pointsEarned"`
	SubmittedAt   time.Time     `json:"submittedAt"`
}

// Submission is the scoring signal sent by a player.
type Submission struct {
	ParticipantID string
	QuestionID    string
	AnswerIDs     []string
	TimeTaken     time.Duration
}

// AnswerResult summarizes the outcome of a submission for one participant.
type AnswerResult struct {
	QuestionID     string   `json:"questionId"`
	IsCorrect      bool     `json:"isCorrect"`
	PointsEarned   int      `json:"pointsEarned"`
	TotalScore     int      `json:"totalScore"`
	CorrectAnswers []string `json:"correctAnswers"`
	Status         Status   `json:"status"`
}

// JoinResult is returned to a newly joined player. Token is the ownership
// secret for anonymous players and is only revealed here.
type JoinResult struct {
	Participant Participant `json:"participant"`
	Token       string      `json:"token,omitempty"`
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	Pseudo        string `json:"pseudo"`
	Score         int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for a quiz session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Snapshot is the server-authoritative session state clients poll.
type Snapshot struct {
	SessionID            string          `json:"sessionId"`
	QuizID               string          `json:"quizId"`
	Status               Status          `json:"status"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	TotalQuestions       int             `json:"totalQuestions"`
	CurrentQuestion      *PublicQuestion `json:"currentQuestion,omitempty"`
	QuestionDeadline     *time.Time      `json:"questionDeadline,omitempty"`
	ParticipantCount     int             `json:"participantCount"`
	ServerTime           time.Time       `json:"serverTime"`
}

// Session is the persisted header of a quiz session.
type Session struct {
	ID                   string    `json:"id"`
	QuizID               string    `json:"quizId"`
	CreatorID            string    `json:"creatorId"`
	Status               Status    `json:"status"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	QuestionStartedAt    time.Time `json:"questionStartedAt"`
	CreatedAt            time.Time `json:"createdAt"`
	StartedAt            time.Time `json:"startedAt"`
	CompletedAt          time.Time `json:"completedAt"`
}

// EventType names a session change published to the notification service.
type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventParticipantJoin EventType = "participant.joined"
	EventSessionStarted  EventType = "session.started"
	EventQuestionChanged EventType = "question.changed"
	EventAnswerSubmitted EventType = "answer.submitted"
	EventSessionComplete EventType = "session.completed"
)

// Event is a fire-and-forget notification about a session change.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Snapshot  Snapshot  `json:"snapshot"`
	At        time.Time `json:"at"`
}
