package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strings"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/go-playground/validator/v10"
)

type createQuizRequest struct {
	Title           string            `json:"title" validate:"required,max=200"`
	TimePerQuestion int               `json:"time_per_question" validate:"gte=0,lte=3600"`
	MultipleAnswers bool              `json:"multiple_answers"`
	Status          string            `json:"status" validate:"omitempty,oneof=draft published archived"`
	Questions       []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

type questionRequest struct {
	Text       string          `json:"text" validate:"required"`
	OrderIndex int             `json:"order_index" validate:"gte=0"`
	Points     int             `json:"points" validate:"gte=0,lte=100000"`
	TimeLimit  int             `json:"time_limit" validate:"gte=0,lte=3600"`
	MediaURL   string          `json:"media_url" validate:"omitempty,url"`
	Answers    []answerRequest `json:"answers" validate:"required,min=2,dive"`
}

type answerRequest struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

func (r createQuizRequest) quiz() domain.Quiz {
	quiz := domain.Quiz{
		Title:           r.Title,
		TimePerQuestion: r.TimePerQuestion,
		MultipleAnswers: r.MultipleAnswers,
		Status:          domain.QuizStatus(r.Status),
		Questions:       make([]domain.Question, 0, len(r.Questions)),
	}
	for _, q := range r.Questions {
		question := domain.Question{
			Text:       q.Text,
			OrderIndex: q.OrderIndex,
			Points:     q.Points,
			TimeLimit:  q.TimeLimit,
			MediaURL:   q.MediaURL,
		}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, domain.Answer{Text: a.Text, IsCorrect: a.IsCorrect})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

type createSessionRequest struct {
	QuizID string `json:"quiz_id" validate:"required"`
}

type joinRequest struct {
	Pseudo string `json:"pseudo" validate:"required,max=50"`
}

type submitAnswerRequest struct {
	ParticipantID string   `json:"participant_id" validate:"required"`
	QuestionID    string   `json:"question_id" validate:"required"`
	AnswerIDs     []string `json:"answer_ids" validate:"dive,required"`
	TimeTaken     *float64 `json:"time_taken" validate:"required,gte=0"` // seconds
}

func (r submitAnswerRequest) submission() domain.Submission {
	return domain.Submission{
		ParticipantID: r.ParticipantID,
		QuestionID:    r.QuestionID,
		AnswerIDs:     r.AnswerIDs,
		TimeTaken:     secondsToDuration(*r.TimeTaken),
	}
}

// secondsToDuration saturates instead of overflowing, so absurdly late
// answers still score as late.
func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode parses and validates a JSON body, turning failures into a
// *domain.ValidationError with per-field messages.
func decode(r *http.Request, v *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "malformed JSON")
	}
	return validateRequest(v, dst)
}

// validateRequest runs struct validation and converts the failures.
func validateRequest(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

// fieldName drops the request struct name from the namespace.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s items", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
