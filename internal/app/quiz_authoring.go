package app

import (
	"fmt"
	"sort"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

// MaxQuestionPoints bounds the points a single question may award.
const MaxQuestionPoints = 100000

// prepareQuiz checks the rules the request validator cannot express and
// assigns identifiers and ordering.
func prepareQuiz(draft domain.Quiz, creatorID string) (domain.Quiz, error) {
	quiz := draft
	quiz.ID = uuid.NewString()
	quiz.CreatorID = creatorID
	if quiz.Status == "" {
		quiz.Status = domain.QuizDraft
	}

	fields := make(map[string]string)
	switch quiz.Status {
	case domain.QuizDraft, domain.QuizPublished, domain.QuizArchived:
	default:
		fields["status"] = "must be one of draft, published, archived"
	}
	if len(quiz.Questions) == 0 {
		fields["questions"] = "at least one question is required"
	}

	// Without any explicit ordering the array order is the play order.
	renumber := true
	for _, q := range quiz.Questions {
		if q.OrderIndex != 0 {
			renumber = false
			break
		}
	}

	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.ID = uuid.NewString()
		q.QuizID = quiz.ID
		if renumber {
			q.OrderIndex = i
		}
		if q.Points < 0 || q.Points > MaxQuestionPoints {
			fields[fmt.Sprintf("questions.%d.points", i)] = fmt.Sprintf("must be between 0 and %d", MaxQuestionPoints)
		}
		answers := make([]domain.Answer, len(q.Answers))
		correct := 0
		for j, a := range q.Answers {
			a.ID = uuid.NewString()
			a.QuestionID = q.ID
			if a.IsCorrect {
				correct++
			}
			answers[j] = a
		}
		q.Answers = answers

		key := fmt.Sprintf("questions.%d.answers", i)
		switch {
		case len(answers) < 2:
			fields[key] = "at least two answers are required"
		case correct == 0:
			fields[key] = "at least one answer must be correct"
		case correct > 1 && !quiz.MultipleAnswers:
			fields[key] = "only one answer may be correct unless multiple answers are enabled"
		}
		questions[i] = q
	}
	if len(fields) > 0 {
		return domain.Quiz{}, &domain.ValidationError{Fields: fields}
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	quiz.Questions = questions
	return quiz, nil
}
