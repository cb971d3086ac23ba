package app

import (
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

// Timing holds the server-side defaults applied while a session is played.
type Timing struct {
	// DefaultTimeLimit applies when neither the question nor the quiz sets one.
	DefaultTimeLimit time.Duration
	// Grace is the tolerance past the deadline before a question expires.
	Grace time.Duration
	// DefaultPoints applies to questions without a points value.
	DefaultPoints int
}

// DefaultTiming is 30 second questions worth 1000 points.
func DefaultTiming() Timing {
	return Timing{
		DefaultTimeLimit: 30 * time.Second,
		Grace:            2 * time.Second,
		DefaultPoints:    1000,
	}
}

// SessionState is the full persisted form of a live session.
type SessionState struct {
	Session      domain.Session
	Quiz         domain.Quiz
	Participants []domain.Participant
	Submissions  []domain.SubmittedAnswer
}

// Session is the in-memory state machine of one quiz session. All
// mutations hold mu, so submissions to a session are applied one at a time.
type Session struct {
	now    func() time.Time
	timing Timing

	mu           sync.RWMutex
	info         domain.Session
	quiz         domain.Quiz
	participants map[string]*domain.Participant
	byUser       map[string]string
	answers      map[string]map[string]domain.SubmittedAnswer
	subscribers  map[chan domain.Snapshot]struct{}
	events       []domain.EventType
}

// NewSession creates a pending session for quiz.
func NewSession(id string, quiz domain.Quiz, creatorID string, timing Timing) *Session {
	return NewSessionWithClock(id, quiz, creatorID, timing, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id string, quiz domain.Quiz, creatorID string, timing Timing, now func() time.Time) *Session {
	s := newSession(quiz, timing, now)
	s.info = domain.Session{
		ID:        id,
		QuizID:    quiz.ID,
		CreatorID: creatorID,
		Status:    domain.StatusPending,
		CreatedAt: now(),
	}
	return s
}

// RestoreSession rebuilds a session from its persisted state.
func RestoreSession(state SessionState, timing Timing, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := newSession(state.Quiz, timing, now)
	s.info = state.Session
	for i := range state.Participants {
		p := state.Participants[i]
		s.participants[p.ID] = &p
		if p.UserID != "" {
			s.byUser[p.UserID] = p.ID
		}
	}
	for _, sub := range state.Submissions {
		s.recordLocked(sub)
	}
	return s
}

func newSession(quiz domain.Quiz, timing Timing, now func() time.Time) *Session {
	questions := append([]domain.Question(nil), quiz.Questions...)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	quiz.Questions = questions
	return &Session{
		now:          now,
		timing:       timing,
		quiz:         quiz,
		participants: make(map[string]*domain.Participant),
		byUser:       make(map[string]string),
		answers:      make(map[string]map[string]domain.SubmittedAnswer),
		subscribers:  make(map[chan domain.Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.ID
}

// Info returns the session header.
func (s *Session) Info() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// State returns a deep copy of the session suitable for persistence.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := SessionState{
		Session:      s.info,
		Quiz:         s.quiz,
		Participants: make([]domain.Participant, 0, len(s.participants)),
	}
	for _, p := range s.participants {
		state.Participants = append(state.Participants, *p)
	}
	sort.Slice(state.Participants, func(i, j int) bool {
		return state.Participants[i].JoinedAt.Before(state.Participants[j].JoinedAt)
	})
	for _, byParticipant := range s.answers {
		for _, sub := range byParticipant {
			state.Submissions = append(state.Submissions, sub)
		}
	}
	sort.Slice(state.Submissions, func(i, j int) bool {
		return state.Submissions[i].SubmittedAt.Before(state.Submissions[j].SubmittedAt)
	})
	return state
}

// Snapshot returns the pollable view of the session.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Leaderboard returns participants ordered by score.
func (s *Session) Leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

// Participant looks up a participant by ID.
func (s *Session) Participant(id string) (domain.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// Tick advances the session if the current question has run out of time.
func (s *Session) Tick() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expireLocked(s.now()) {
		s.broadcastLocked()
	}
	return s.takeEventsLocked()
}

func (s *Session) join(user *domain.User, pseudo string) (domain.JoinResult, domain.Participant, []domain.EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.expireLocked(now) {
		s.broadcastLocked()
	}
	if s.info.Status.Terminal() {
		return domain.JoinResult{}, domain.Participant{}, s.takeEventsLocked(), domain.ErrSessionCompleted
	}
	if !CanJoinSession(user, s.info) {
		return domain.JoinResult{}, domain.Participant{}, s.takeEventsLocked(), domain.ErrJoinNotAllowed
	}

	if user != nil && user.ID != "" {
		if id, ok := s.byUser[user.ID]; ok {
			participant := s.participants[id]
			participant.Pseudo = pseudo
			s.events = append(s.events, domain.EventParticipantJoin)
			s.broadcastLocked()
			return domain.JoinResult{Participant: *participant}, *participant, s.takeEventsLocked(), nil
		}
	}

	participant := &domain.Participant{
		ID:          uuid.NewString(),
		SessionID:   s.info.ID,
		Pseudo:      pseudo,
		JoinedAt:    now,
		LastUpdated: now,
	}
	result := domain.JoinResult{}
	if user != nil && user.ID != "" {
		participant.UserID = user.ID
		s.byUser[user.ID] = participant.ID
	} else {
		participant.Token = uuid.NewString()
		result.Token = participant.Token
	}
	s.participants[participant.ID] = participant
	s.events = append(s.events, domain.EventParticipantJoin)
	s.broadcastLocked()

	result.Participant = *participant
	return result, *participant, s.takeEventsLocked(), nil
}

func (s *Session) start(user *domain.User) (domain.Snapshot, []domain.EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanManageSession(user, s.info) {
		return domain.Snapshot{}, nil, domain.ErrNotSessionManager
	}
	if s.info.Status != domain.StatusPending {
		return domain.Snapshot{}, nil, domain.ErrSessionNotPending
	}
	if len(s.quiz.Questions) == 0 {
		return domain.Snapshot{}, nil, domain.NewValidationError("quiz_id", "quiz has no questions")
	}

	now := s.now()
	s.transitionLocked(domain.StatusActive)
	s.info.CurrentQuestionIndex = 0
	s.info.StartedAt = now
	s.info.QuestionStartedAt = now
	s.events = append(s.events, domain.EventSessionStarted)
	s.broadcastLocked()
	return s.snapshotLocked(), s.takeEventsLocked(), nil
}

func (s *Session) nextQuestion(user *domain.User) (domain.Snapshot, []domain.EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanManageSession(user, s.info) {
		return domain.Snapshot{}, nil, domain.ErrNotSessionManager
	}
	now := s.now()
	if s.expireLocked(now) {
		// The question ran out on its own; that already is the advance.
		s.broadcastLocked()
		return s.snapshotLocked(), s.takeEventsLocked(), nil
	}
	if s.info.Status != domain.StatusActive {
		return domain.Snapshot{}, nil, domain.ErrSessionNotActive
	}
	s.advanceLocked(now)
	s.broadcastLocked()
	return s.snapshotLocked(), s.takeEventsLocked(), nil
}

func (s *Session) complete(user *domain.User) (domain.Snapshot, []domain.EventType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanManageSession(user, s.info) {
		return domain.Snapshot{}, nil, domain.ErrNotSessionManager
	}
	if s.info.Status != domain.StatusActive {
		return domain.Snapshot{}, nil, domain.ErrSessionNotActive
	}
	s.completeLocked(s.now())
	s.broadcastLocked()
	return s.snapshotLocked(), s.takeEventsLocked(), nil
}

type submitOutcome struct {
	result      domain.AnswerResult
	answer      domain.SubmittedAnswer
	participant domain.Participant
	events      []domain.EventType
}

func (s *Session) submit(user *domain.User, token string, sub domain.Submission) (submitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	previous, hadCurrent := s.currentQuestionLocked()
	expired := s.expireLocked(now)
	if expired {
		s.broadcastLocked()
	}
	fail := func(err error) (submitOutcome, error) {
		return submitOutcome{events: s.takeEventsLocked()}, err
	}

	participant, ok := s.participants[sub.ParticipantID]
	if !ok {
		return fail(domain.ErrParticipantNotFound)
	}
	if !OwnsParticipant(user, token, *participant) {
		return fail(domain.ErrNotParticipant)
	}
	if expired && hadCurrent && previous.ID == sub.QuestionID {
		return fail(domain.ErrQuestionExpired)
	}
	switch s.info.Status {
	case domain.StatusPending:
		return fail(domain.ErrSessionNotActive)
	case domain.StatusCompleted:
		return fail(domain.ErrSessionCompleted)
	}

	question, ok := s.questionLocked(sub.QuestionID)
	if !ok {
		return fail(domain.ErrQuestionNotFound)
	}
	current, _ := s.currentQuestionLocked()
	if current.ID != question.ID {
		return fail(domain.ErrQuestionNotCurrent)
	}
	if _, done := s.answers[question.ID][participant.ID]; done {
		return fail(domain.ErrAlreadyAnswered)
	}

	selected, err := s.selectionLocked(question, sub.AnswerIDs)
	if err != nil {
		return fail(err)
	}

	// The reported time may undercut the server clock by at most Grace.
	elapsed := sub.TimeTaken
	if observed := now.Sub(s.info.QuestionStartedAt) - s.timing.Grace; elapsed < observed {
		elapsed = observed
	}
	if elapsed < 0 {
		elapsed = 0
	}
	correctIDs := question.CorrectAnswerIDs()
	correct := IsCorrectSelection(selected, correctIDs)
	points := Score(correct, s.pointsFor(question), s.timeLimitLocked(question), elapsed)

	answer := domain.SubmittedAnswer{
		ID:            uuid.NewString(),
		SessionID:     s.info.ID,
		ParticipantID: participant.ID,
		QuestionID:    question.ID,
		AnswerIDs:     selected,
		TimeTaken:     elapsed,
		IsCorrect:     correct,
		PointsEarned:  points,
		SubmittedAt:   now,
	}
	s.recordLocked(answer)
	if points > 0 {
		participant.Score += points
		participant.LastUpdated = now
	}
	s.events = append(s.events, domain.EventAnswerSubmitted)

	if len(s.answers[question.ID]) >= len(s.participants) {
		s.advanceLocked(now)
	}
	s.broadcastLocked()

	return submitOutcome{
		result: domain.AnswerResult{
			QuestionID:     question.ID,
			IsCorrect:      correct,
			PointsEarned:   points,
			TotalScore:     participant.Score,
			CorrectAnswers: correctIDs,
			Status:         s.info.Status,
		},
		answer:      answer,
		participant: *participant,
		events:      s.takeEventsLocked(),
	}, nil
}

// selectionLocked validates and de-duplicates the chosen answer IDs.
func (s *Session) selectionLocked(question domain.Question, answerIDs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(answerIDs))
	selected := make([]string, 0, len(answerIDs))
	for _, id := range answerIDs {
		if !question.HasAnswer(id) {
			return nil, domain.NewValidationError("answer_ids", "answer "+id+" does not belong to the question")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, id)
	}
	if !s.quiz.MultipleAnswers && len(selected) > 1 {
		return nil, domain.NewValidationError("answer_ids", "only one answer may be selected")
	}
	return selected, nil
}

func (s *Session) recordLocked(answer domain.SubmittedAnswer) {
	byParticipant, ok := s.answers[answer.QuestionID]
	if !ok {
		byParticipant = make(map[string]domain.SubmittedAnswer)
		s.answers[answer.QuestionID] = byParticipant
	}
	byParticipant[answer.ParticipantID] = answer
}

func (s *Session) transitionLocked(to domain.Status) bool {
	if !domain.CanTransition(s.info.Status, to) {
		return false
	}
	s.info.Status = to
	return true
}

// advanceLocked moves to the next question, completing the session after
// the last one.
func (s *Session) advanceLocked(now time.Time) {
	if s.info.Status != domain.StatusActive {
		return
	}
	if s.info.CurrentQuestionIndex < len(s.quiz.Questions)-1 {
		s.info.CurrentQuestionIndex++
		s.info.QuestionStartedAt = now
		s.events = append(s.events, domain.EventQuestionChanged)
		return
	}
	s.completeLocked(now)
}

func (s *Session) completeLocked(now time.Time) {
	if s.transitionLocked(domain.StatusCompleted) {
		s.info.CompletedAt = now
		s.events = append(s.events, domain.EventSessionComplete)
	}
}

// expireLocked advances past a question whose deadline plus grace elapsed.
func (s *Session) expireLocked(now time.Time) bool {
	deadline, ok := s.deadlineLocked()
	if !ok || !now.After(deadline.Add(s.timing.Grace)) {
		return false
	}
	s.advanceLocked(now)
	return true
}

func (s *Session) deadlineLocked() (time.Time, bool) {
	question, ok := s.currentQuestionLocked()
	if !ok {
		return time.Time{}, false
	}
	limit := s.timeLimitLocked(question)
	if limit <= 0 {
		return time.Time{}, false
	}
	return s.info.QuestionStartedAt.Add(limit), true
}

func (s *Session) currentQuestionLocked() (domain.Question, bool) {
	if s.info.Status != domain.StatusActive {
		return domain.Question{}, false
	}
	idx := s.info.CurrentQuestionIndex
	if idx < 0 || idx >= len(s.quiz.Questions) {
		return domain.Question{}, false
	}
	return s.quiz.Questions[idx], true
}

func (s *Session) questionLocked(id string) (domain.Question, bool) {
	for _, q := range s.quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (s *Session) timeLimitLocked(q domain.Question) time.Duration {
	return ResolveTimeLimit(s.quiz, q, s.timing)
}

func (s *Session) pointsFor(q domain.Question) int {
	if q.Points > 0 {
		return q.Points
	}
	return s.timing.DefaultPoints
}

// ResolveTimeLimit picks the question limit, then the quiz limit, then the
// configured default.
func ResolveTimeLimit(quiz domain.Quiz, q domain.Question, timing Timing) time.Duration {
	if q.TimeLimit > 0 {
		return time.Duration(q.TimeLimit) * time.Second
	}
	if quiz.TimePerQuestion > 0 {
		return time.Duration(quiz.TimePerQuestion) * time.Second
	}
	return timing.DefaultTimeLimit
}

func (s *Session) takeEventsLocked() []domain.EventType {
	events := s.events
	s.events = nil
	return events
}

func (s *Session) subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snapshot := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber: replace its oldest pending snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snapshot := domain.Snapshot{
		SessionID:            s.info.ID,
		QuizID:               s.info.QuizID,
		Status:               s.info.Status,
		CurrentQuestionIndex: s.info.CurrentQuestionIndex,
		TotalQuestions:       len(s.quiz.Questions),
		ParticipantCount:     len(s.participants),
		ServerTime:           s.now(),
	}
	if question, ok := s.currentQuestionLocked(); ok {
		limit := s.timeLimitLocked(question)
		public := question.Public(int(limit / time.Second))
		snapshot.CurrentQuestion = &public
		if deadline, ok := s.deadlineLocked(); ok {
			snapshot.QuestionDeadline = &deadline
		}
	}
	return snapshot
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, participant := range s.participants {
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: participant.ID,
			Pseudo:        participant.Pseudo,
			Score:         participant.Score,
		})
	}

	// Score desc, then whoever reached the score first, then pseudo.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := s.participants[entries[i].ParticipantID]
		pj := s.participants[entries[j].ParticipantID]
		if !pi.LastUpdated.Equal(pj.LastUpdated) {
			return pi.LastUpdated.Before(pj.LastUpdated)
		}
		return entries[i].Pseudo < entries[j].Pseudo
	})

	return domain.Leaderboard{
		SessionID: s.info.ID,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}
