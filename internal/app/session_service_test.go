package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

var (
	host   = &domain.User{ID: "host"}
	player = &domain.User{ID: "player"}
	admin  = &domain.User{ID: "root", Role: domain.RoleAdmin}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	events chan domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.Event) error {
	n.events <- event
	return nil
}

type fixture struct {
	service *app.SessionService
	clock   *fakeClock
	history *memory.History
	catalog *memory.Catalog
}

func newFixture(t *testing.T, opts ...app.Option) fixture {
	t.Helper()
	catalog := memory.NewCatalog(testQuizzes())
	history := memory.NewHistory()
	clock := newFakeClock()
	opts = append([]app.Option{
		app.WithClock(clock.Now),
		app.WithHistory(history),
		app.WithQuizWriter(catalog),
	}, opts...)
	service := app.NewSessionService(memory.NewSessionStore(), memory.NewQuizRepository(catalog, time.Minute), opts...)
	return fixture{service: service, clock: clock, history: history, catalog: catalog}
}

func question(id string, correct ...string) domain.Question {
	answers := []domain.Answer{
		{ID: id + "-a", QuestionID: id, Text: "A"},
		{ID: id + "-b", QuestionID: id, Text: "B"},
		{ID: id + "-c", QuestionID: id, Text: "C"},
	}
	for i := range answers {
		for _, c := range correct {
			if answers[i].ID == c {
				answers[i].IsCorrect = true
			}
		}
	}
	return domain.Question{ID: id, Text: "Question " + id, Points: 1000, Answers: answers}
}

func testQuizzes() map[string]domain.Quiz {
	q1 := question("q1", "q1-b")
	q2 := question("q2", "q2-a")
	q2.OrderIndex = 1
	return map[string]domain.Quiz{
		"single": {
			ID: "single", CreatorID: "host", Status: domain.QuizPublished, TimePerQuestion: 30,
			Questions: []domain.Question{question("only", "only-b")},
		},
		"double": {
			ID: "double", CreatorID: "host", Status: domain.QuizPublished, TimePerQuestion: 30,
			// Stored out of order; play follows OrderIndex.
			Questions: []domain.Question{q2, q1},
		},
		"multi": {
			ID: "multi", CreatorID: "host", Status: domain.QuizPublished, TimePerQuestion: 30, MultipleAnswers: true,
			Questions: []domain.Question{question("m1", "m1-a", "m1-c")},
		},
		"draft": {
			ID: "draft", CreatorID: "host", Status: domain.QuizDraft,
			Questions: []domain.Question{question("d1", "d1-a")},
		},
		"archived": {
			ID: "archived", CreatorID: "host", Status: domain.QuizArchived,
			Questions: []domain.Question{question("x1", "x1-a")},
		},
	}
}

func (f fixture) session(t *testing.T, quizID string) string {
	t.Helper()
	snapshot, err := f.service.CreateSession(context.Background(), host, quizID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, snapshot.Status)
	return snapshot.SessionID
}

func (f fixture) joinAnonymous(t *testing.T, sessionID string) domain.JoinResult {
	t.Helper()
	result, err := f.service.Join(context.Background(), nil, sessionID, gofakeit.Username())
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	return result
}

func (f fixture) start(t *testing.T, sessionID string) domain.Snapshot {
	t.Helper()
	snapshot, err := f.service.Start(context.Background(), host, sessionID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, snapshot.Status)
	return snapshot
}

func submit(f fixture, sessionID string, joined domain.JoinResult, questionID string, elapsed time.Duration, answers ...string) (domain.AnswerResult, error) {
	return f.service.SubmitAnswer(context.Background(), nil, joined.Token, sessionID, domain.Submission{
		ParticipantID: joined.Participant.ID,
		QuestionID:    questionID,
		AnswerIDs:     answers,
		TimeTaken:     elapsed,
	})
}

func TestSingleQuestionSessionScoresAndCompletes(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "single")
	alice := f.joinAnonymous(t, id)
	f.start(t, id)

	result, err := submit(f, id, alice, "only", 10*time.Second, "only-b")
	require.NoError(t, err)
	require.True(t, result.IsCorrect)
	require.Equal(t, 666, result.PointsEarned)
	require.Equal(t, 666, result.TotalScore)
	require.Equal(t, []string{"only-b"}, result.CorrectAnswers)
	require.Equal(t, domain.StatusCompleted, result.Status)

	_, err = submit(f, id, alice, "only", time.Second, "only-b")
	require.ErrorIs(t, err, domain.ErrInvalidState)

	lb, err := f.service.Leaderboard(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	require.Equal(t, 666, lb.Entries[0].Score)
}

func TestJoinCompletedSessionIsInvalidState(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "single")
	f.joinAnonymous(t, id)
	f.start(t, id)
	_, err := f.service.Complete(context.Background(), host, id)
	require.NoError(t, err)

	_, err = f.service.Join(context.Background(), host, id, "late")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	require.ErrorIs(t, err, domain.ErrSessionCompleted)
}

func TestOnlyManagersControlTheSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "double")

	_, err := f.service.Start(ctx, player, id)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.service.Start(ctx, nil, id)
	require.ErrorIs(t, err, domain.ErrForbidden)

	snapshot, err := f.service.Start(ctx, admin, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, snapshot.Status)

	_, err = f.service.NextQuestion(ctx, player, id)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.service.Complete(ctx, player, id)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestStatusNeverMovesBackward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "double")

	_, err := f.service.NextQuestion(ctx, host, id)
	require.ErrorIs(t, err, domain.ErrSessionNotActive)
	_, err = f.service.Complete(ctx, host, id)
	require.ErrorIs(t, err, domain.ErrSessionNotActive)

	f.start(t, id)
	_, err = f.service.Start(ctx, host, id)
	require.ErrorIs(t, err, domain.ErrSessionNotPending)

	snapshot, err := f.service.NextQuestion(ctx, host, id)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.CurrentQuestionIndex)

	snapshot, err = f.service.NextQuestion(ctx, host, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, snapshot.Status)

	for _, op := range []func(context.Context, *domain.User, string) (domain.Snapshot, error){
		f.service.Start, f.service.NextQuestion, f.service.Complete,
	} {
		_, err := op(ctx, host, id)
		require.ErrorIs(t, err, domain.ErrInvalidState)
	}
	snapshot, err = f.service.Snapshot(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, snapshot.Status)
	require.Nil(t, snapshot.CurrentQuestion)
}

func TestQuestionsPlayInOrderWithoutCorrectness(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	snapshot := f.start(t, id)

	require.NotNil(t, snapshot.CurrentQuestion)
	require.Equal(t, "q1", snapshot.CurrentQuestion.ID)
	require.Equal(t, 30, snapshot.CurrentQuestion.TimeLimit)
	require.Len(t, snapshot.CurrentQuestion.Answers, 3)
	require.NotNil(t, snapshot.QuestionDeadline)
	require.Equal(t, f.clock.Now().Add(30*time.Second), *snapshot.QuestionDeadline)
	require.Equal(t, 2, snapshot.TotalQuestions)
}

func TestDuplicateSubmissionIsRejected(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	f.joinAnonymous(t, id)
	f.start(t, id)

	first, err := submit(f, id, alice, "q1", 3*time.Second, "q1-b")
	require.NoError(t, err)
	require.Equal(t, 900, first.PointsEarned)

	_, err = submit(f, id, alice, "q1", 0, "q1-b")
	require.ErrorIs(t, err, domain.ErrAlreadyAnswered)

	p, ok := f.history.Participant(alice.Participant.ID)
	require.True(t, ok)
	require.Equal(t, 900, p.Score)
}

func TestAllAnsweredAdvancesTheQuestion(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	bob := f.joinAnonymous(t, id)
	f.start(t, id)

	_, err := submit(f, id, alice, "q1", time.Second, "q1-b")
	require.NoError(t, err)
	snapshot, err := f.service.Snapshot(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 0, snapshot.CurrentQuestionIndex)

	_, err = submit(f, id, bob, "q1", time.Second, "q1-a")
	require.NoError(t, err)
	snapshot, err = f.service.Snapshot(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.CurrentQuestionIndex)
	require.Equal(t, "q2", snapshot.CurrentQuestion.ID)

	_, err = submit(f, id, alice, "q1", time.Second, "q1-b")
	require.ErrorIs(t, err, domain.ErrQuestionNotCurrent)
}

func TestScoresNeverDecreaseAndLeaderboardOrders(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	bob := f.joinAnonymous(t, id)
	f.start(t, id)

	_, err := submit(f, id, alice, "q1", 0, "q1-b")
	require.NoError(t, err)
	_, err = submit(f, id, bob, "q1", 15*time.Second, "q1-b")
	require.NoError(t, err)

	wrong, err := submit(f, id, alice, "q2", time.Second, "q2-c")
	require.NoError(t, err)
	require.False(t, wrong.IsCorrect)
	require.Zero(t, wrong.PointsEarned)
	require.Equal(t, 1000, wrong.TotalScore)

	lb, err := f.service.Leaderboard(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 2)
	require.Equal(t, alice.Participant.ID, lb.Entries[0].ParticipantID)
	require.Equal(t, 1000, lb.Entries[0].Score)
	require.Equal(t, 500, lb.Entries[1].Score)
}

func TestMultiSelectRequiresTheExactSet(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "multi")
	alice := f.joinAnonymous(t, id)
	bob := f.joinAnonymous(t, id)
	f.start(t, id)

	partial, err := submit(f, id, alice, "m1", 0, "m1-a")
	require.NoError(t, err)
	require.False(t, partial.IsCorrect)
	require.Zero(t, partial.PointsEarned)
	require.ElementsMatch(t, []string{"m1-a", "m1-c"}, partial.CorrectAnswers)

	exact, err := submit(f, id, bob, "m1", 0, "m1-c", "m1-a", "m1-c")
	require.NoError(t, err)
	require.True(t, exact.IsCorrect)
	require.Equal(t, 1000, exact.PointsEarned)
}

func TestSubmissionValidation(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	f.joinAnonymous(t, id)

	_, err := submit(f, id, alice, "q1", 0, "q1-b")
	require.ErrorIs(t, err, domain.ErrSessionNotActive)

	f.start(t, id)

	_, err = submit(f, id, alice, "q1", 0, "q1-a", "q1-b")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = submit(f, id, alice, "q1", 0, "q2-a")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = submit(f, id, alice, "nope", 0, "q1-a")
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)

	_, err = f.service.SubmitAnswer(context.Background(), nil, "", id, domain.Submission{ParticipantID: "ghost", QuestionID: "q1", AnswerIDs: []string{"q1-b"}})
	require.ErrorIs(t, err, domain.ErrParticipantNotFound)

	_, err = f.service.SubmitAnswer(context.Background(), nil, "wrong-token", id, domain.Submission{ParticipantID: alice.Participant.ID, QuestionID: "q1", AnswerIDs: []string{"q1-b"}})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = submit(f, "missing", alice, "q1", 0, "q1-b")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmptySelectionScoresZero(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	f.joinAnonymous(t, id)
	f.start(t, id)

	result, err := submit(f, id, alice, "q1", 0)
	require.NoError(t, err)
	require.False(t, result.IsCorrect)
	require.Zero(t, result.PointsEarned)
}

func TestQuestionExpiresAfterDeadlineAndGrace(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	bob := f.joinAnonymous(t, id)
	f.start(t, id)

	// Within the grace period the answer still counts, for nothing.
	f.clock.Advance(31 * time.Second)
	late, err := submit(f, id, alice, "q1", 31*time.Second, "q1-b")
	require.NoError(t, err)
	require.True(t, late.IsCorrect)
	require.Zero(t, late.PointsEarned)

	f.clock.Advance(2 * time.Second)
	_, err = submit(f, id, bob, "q1", 33*time.Second, "q1-b")
	require.ErrorIs(t, err, domain.ErrQuestionExpired)

	snapshot, err := f.service.Snapshot(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.CurrentQuestionIndex)
	require.Equal(t, f.clock.Now().Add(30*time.Second), *snapshot.QuestionDeadline)
}

func TestSweepExpiredCompletesAfterLastQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "single")
	f.joinAnonymous(t, id)
	f.start(t, id)

	require.Zero(t, f.service.SweepExpired(ctx))
	f.clock.Advance(40 * time.Second)
	require.Equal(t, 1, f.service.SweepExpired(ctx))
	require.Zero(t, f.service.SweepExpired(ctx))

	snapshot, err := f.service.Snapshot(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, snapshot.Status)

	recorded, ok := f.history.Session(id)
	require.True(t, ok)
	require.Equal(t, domain.StatusCompleted, recorded.Status)
	require.Equal(t, f.clock.Now(), recorded.CompletedAt)
}

func TestEvictCompletedAfterRetention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "single")
	f.start(t, id)
	_, err := f.service.Complete(ctx, host, id)
	require.NoError(t, err)

	require.Zero(t, f.service.EvictCompleted(ctx, time.Hour))
	f.clock.Advance(2 * time.Hour)
	require.Equal(t, 1, f.service.EvictCompleted(ctx, time.Hour))

	_, err = f.service.Snapshot(ctx, id)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, ok := f.history.Session(id)
	require.True(t, ok)
}

func TestJoinWhileActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "double")
	f.start(t, id)

	_, err := f.service.Join(ctx, player, id, "latecomer")
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.service.Join(ctx, nil, id, "latecomer")
	require.ErrorIs(t, err, domain.ErrForbidden)

	result, err := f.service.Join(ctx, host, id, "tester")
	require.NoError(t, err)
	require.Empty(t, result.Token)
	require.Equal(t, "host", result.Participant.UserID)
}

func TestRegisteredUserRejoinKeepsParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "double")

	first, err := f.service.Join(ctx, player, id, "first")
	require.NoError(t, err)
	again, err := f.service.Join(ctx, player, id, "renamed")
	require.NoError(t, err)
	require.Equal(t, first.Participant.ID, again.Participant.ID)
	require.Equal(t, "renamed", again.Participant.Pseudo)

	snapshot, err := f.service.Snapshot(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.ParticipantCount)

	f.start(t, id)
	_, err = f.service.SubmitAnswer(ctx, &domain.User{ID: "someone"}, "", id, domain.Submission{ParticipantID: first.Participant.ID, QuestionID: "q1", AnswerIDs: []string{"q1-b"}})
	require.ErrorIs(t, err, domain.ErrNotParticipant)
	res, err := f.service.SubmitAnswer(ctx, player, "", id, domain.Submission{ParticipantID: first.Participant.ID, QuestionID: "q1", AnswerIDs: []string{"q1-b"}})
	require.NoError(t, err)
	require.True(t, res.IsCorrect)
}

func TestCreateSessionChecksQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateSession(ctx, nil, "single")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = f.service.CreateSession(ctx, host, "unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.service.CreateSession(ctx, host, "archived")
	require.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.service.CreateSession(ctx, player, "draft")
	require.ErrorIs(t, err, domain.ErrForbidden)

	snapshot, err := f.service.CreateSession(ctx, host, "draft")
	require.NoError(t, err)
	require.Equal(t, "draft", snapshot.QuizID)

	snapshot, err = f.service.CreateSession(ctx, player, "single")
	require.NoError(t, err)
	_, err = f.service.Start(ctx, player, snapshot.SessionID)
	require.NoError(t, err)
}

func TestConcurrentSubmissionsAreScoredOnce(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	players := make([]domain.JoinResult, 20)
	for i := range players {
		players[i] = f.joinAnonymous(t, id)
	}
	f.start(t, id)

	var wg sync.WaitGroup
	errs := make(chan error, len(players)*2)
	for _, p := range players {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(p domain.JoinResult) {
				defer wg.Done()
				_, err := submit(f, id, p, "q1", 0, "q1-b")
				errs <- err
			}(p)
		}
	}
	wg.Wait()
	close(errs)

	accepted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrInvalidState):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, len(players), accepted)
	require.Equal(t, len(players), rejected)

	lb, err := f.service.Leaderboard(context.Background(), id)
	require.NoError(t, err)
	for _, e := range lb.Entries {
		require.Equal(t, 1000, e.Score)
	}
	snapshot, err := f.service.Snapshot(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.CurrentQuestionIndex)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.session(t, "double")

	updates, cancel, err := f.service.Subscribe(ctx, id)
	require.NoError(t, err)
	defer cancel()

	initial := <-updates
	require.Equal(t, domain.StatusPending, initial.Status)

	f.joinAnonymous(t, id)
	update := <-updates
	require.Equal(t, 1, update.ParticipantCount)

	f.start(t, id)
	update = <-updates
	require.Equal(t, domain.StatusActive, update.Status)

	_, _, err = f.service.Subscribe(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNotifierReceivesLifecycleEvents(t *testing.T) {
	notifier := &recordingNotifier{events: make(chan domain.Event, 32)}
	f := newFixture(t, app.WithNotifier(notifier))
	id := f.session(t, "single")
	alice := f.joinAnonymous(t, id)
	f.start(t, id)
	_, err := submit(f, id, alice, "only", 0, "only-b")
	require.NoError(t, err)

	want := map[domain.EventType]bool{
		domain.EventSessionCreated:  false,
		domain.EventParticipantJoin: false,
		domain.EventSessionStarted:  false,
		domain.EventAnswerSubmitted: false,
		domain.EventSessionComplete: false,
	}
	timeout := time.After(2 * time.Second)
	for remaining := len(want); remaining > 0; {
		select {
		case event := <-notifier.events:
			require.Equal(t, id, event.SessionID)
			if seen, ok := want[event.Type]; ok && !seen {
				want[event.Type] = true
				remaining--
			}
		case <-timeout:
			t.Fatalf("missing events: %v", want)
		}
	}
}

func TestHistoryKeepsSubmissionsWithoutTokens(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "single")
	alice := f.joinAnonymous(t, id)
	f.start(t, id)
	_, err := submit(f, id, alice, "only", 6*time.Second, "only-b")
	require.NoError(t, err)

	subs := f.history.Submissions(id)
	require.Len(t, subs, 1)
	require.Equal(t, 800, subs[0].PointsEarned)
	require.Equal(t, 6*time.Second, subs[0].TimeTaken)

	p, ok := f.history.Participant(alice.Participant.ID)
	require.True(t, ok)
	require.Equal(t, 800, p.Score)
	require.Empty(t, p.Token)
}

func TestCreateQuiz(t *testing.T) {
	ctx := context.Background()
	draft := domain.Quiz{
		Title:  "Planets",
		Status: domain.QuizPublished,
		Questions: []domain.Question{{
			Text:    "Largest planet?",
			Points:  500,
			Answers: []domain.Answer{{Text: "Jupiter", IsCorrect: true}, {Text: "Mars"}},
		}},
	}

	bare := app.NewSessionService(memory.NewSessionStore(), memory.NewQuizRepository(memory.NewCatalog(nil), time.Minute))
	_, err := bare.CreateQuiz(ctx, host, draft)
	require.ErrorIs(t, err, app.ErrAuthoringDisabled)

	f := newFixture(t)
	_, err = f.service.CreateQuiz(ctx, nil, draft)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	quiz, err := f.service.CreateQuiz(ctx, player, draft)
	require.NoError(t, err)
	require.Equal(t, "player", quiz.CreatorID)

	public, err := f.service.GetQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, public.Questions, 1)
	require.Equal(t, 30, public.Questions[0].TimeLimit)
	require.Len(t, public.Questions[0].Answers, 2)

	snapshot, err := f.service.CreateSession(ctx, player, quiz.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.ID, snapshot.QuizID)
}

func TestReportedTimeCannotUndercutServerClock(t *testing.T) {
	f := newFixture(t)
	id := f.session(t, "double")
	alice := f.joinAnonymous(t, id)
	bob := f.joinAnonymous(t, id)
	f.start(t, id)

	f.clock.Advance(20 * time.Second)

	// 20s observed less 2s grace: a claimed instant answer scores as 18s.
	claimed, err := submit(f, id, alice, "q1", 0, "q1-b")
	require.NoError(t, err)
	require.Equal(t, 400, claimed.PointsEarned)

	honest, err := submit(f, id, bob, "q1", 19*time.Second, "q1-b")
	require.NoError(t, err)
	require.Equal(t, 366, honest.PointsEarned)

	subs := f.history.Submissions(id)
	require.Len(t, subs, 2)
	for _, s := range subs {
		require.GreaterOrEqual(t, s.TimeTaken, 18*time.Second)
	}
}
