package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-session-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore loads and saves quizzes in the quizzes, questions and answers tables.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	const op = "postgres.LoadQuiz"

	var quiz domain.Quiz
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, time_per_question, multiple_answers, status, creator_id
		   FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.TimePerQuestion, &quiz.MultipleAnswers, &status, &quiz.CreatorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}
	quiz.Status = domain.QuizStatus(status)

	rows, err := s.pool.Query(ctx,
		`SELECT id, text, order_index, points, time_limit, media_url
		   FROM questions WHERE quiz_id=$1 ORDER BY order_index, id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: questions: %w", op, err)
	}
	index := make(map[string]int)
	ids := make([]string, 0)
	for rows.Next() {
		q := domain.Question{QuizID: quizID}
		if err := rows.Scan(&q.ID, &q.Text, &q.OrderIndex, &q.Points, &q.TimeLimit, &q.MediaURL); err != nil {
			rows.Close()
			return domain.Quiz{}, fmt.Errorf("%s: scan question: %w", op, err)
		}
		index[q.ID] = len(quiz.Questions)
		ids = append(ids, q.ID)
		quiz.Questions = append(quiz.Questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: questions: %w", op, err)
	}
	if len(ids) == 0 {
		return quiz, nil
	}

	rows, err = s.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct
		   FROM answers WHERE question_id = ANY($1) ORDER BY position, id`, ids)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: answers: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return domain.Quiz{}, fmt.Errorf("%s: scan answer: %w", op, err)
		}
		i := index[a.QuestionID]
		quiz.Questions[i].Answers = append(quiz.Questions[i].Answers, a)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("%s: answers: %w", op, err)
	}
	return quiz, nil
}

// SaveQuiz inserts a quiz with its questions and answers in one transaction.
func (s *QuizStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	const op = "postgres.SaveQuiz"

	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quizzes (id, title, time_per_question, multiple_answers, status, creator_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			quiz.ID, quiz.Title, quiz.TimePerQuestion, quiz.MultipleAnswers, string(quiz.Status), quiz.CreatorID,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, q := range quiz.Questions {
			batch.Queue(
				`INSERT INTO questions (id, quiz_id, text, order_index, points, time_limit, media_url)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				q.ID, quiz.ID, q.Text, q.OrderIndex, q.Points, q.TimeLimit, q.MediaURL,
			)
			for pos, a := range q.Answers {
				batch.Queue(
					`INSERT INTO answers (id, question_id, text, is_correct, position)
					 VALUES ($1, $2, $3, $4, $5)`,
					a.ID, q.ID, a.Text, a.IsCorrect, pos,
				)
			}
		}
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return err
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
