package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mohamedredwan17/etalem-api/internal/models"
)

// Sentinel errors surfaced by the attempt write paths; the service layer maps
// them onto the API error kinds.
var (
	ErrAttemptLimit     = errors.New("attempt limit reached")
	ErrAttemptSubmitted = errors.New("attempt already submitted")
)

// QuizRepository handles persistence of quizzes, attempts and answers.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// FindByID returns a quiz with its questions.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	const query = `SELECT id, course_id, title, position, time_limit, passing_score, max_attempts, created_at
FROM quizzes WHERE id = $1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		return nil, err
	}
	const questionQuery = `SELECT id, quiz_id, text, correct_answer, points FROM questions WHERE quiz_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &quiz.Questions, questionQuery, id); err != nil {
		return nil, fmt.Errorf("load quiz questions: %w", err)
	}
	return &quiz, nil
}

// ListByCourse returns the quizzes attached to a course in content order.
func (r *QuizRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error) {
	const query = `SELECT id, course_id, title, position, time_limit, passing_score, max_attempts, created_at
FROM quizzes WHERE course_id = $1 ORDER BY position ASC`
	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query, courseID); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// FindAttemptByID returns an attempt row by its identifier.
func (r *QuizRepository) FindAttemptByID(ctx context.Context, id string) (*models.QuizAttempt, error) {
	const query = `SELECT id, student_id, quiz_id, attempt_number, started_at, completed_at, score, is_passed
FROM quiz_attempts WHERE id = $1`
	var attempt models.QuizAttempt
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListAttempts returns a student's attempts for a quiz, oldest first.
func (r *QuizRepository) ListAttempts(ctx context.Context, studentID, quizID string) ([]models.QuizAttempt, error) {
	const query = `SELECT id, student_id, quiz_id, attempt_number, started_at, completed_at, score, is_passed
FROM quiz_attempts WHERE student_id = $1 AND quiz_id = $2 ORDER BY attempt_number ASC`
	var attempts []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, studentID, quizID); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// HasPassedAttempt reports whether the student has at least one passing
// attempt on the quiz.
func (r *QuizRepository) HasPassedAttempt(ctx context.Context, studentID, quizID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE student_id = $1 AND quiz_id = $2 AND is_passed)`
	var passed bool
	if err := r.db.GetContext(ctx, &passed, query, studentID, quizID); err != nil {
		return false, fmt.Errorf("check passed attempt: %w", err)
	}
	return passed, nil
}

// CreateAttempt inserts a new attempt for the student. The quiz row is locked
// for the duration of the transaction so concurrent starts for the same
// (student, quiz) cannot compute the same attempt number or slip past the
// limit check.
func (r *QuizRepository) CreateAttempt(ctx context.Context, studentID, quizID string) (*models.QuizAttempt, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin attempt tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT max_attempts FROM quizzes WHERE id = $1 FOR UPDATE`
	var maxAttempts int
	if err := tx.GetContext(ctx, &maxAttempts, lockQuery, quizID); err != nil {
		return nil, err
	}

	const countQuery = `SELECT COUNT(*) FROM quiz_attempts WHERE student_id = $1 AND quiz_id = $2`
	var priorCount int
	if err := tx.GetContext(ctx, &priorCount, countQuery, studentID, quizID); err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if priorCount >= maxAttempts {
		return nil, ErrAttemptLimit
	}

	attempt := &models.QuizAttempt{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		QuizID:        quizID,
		AttemptNumber: priorCount + 1,
		StartedAt:     time.Now().UTC(),
	}
	const insertQuery = `INSERT INTO quiz_attempts (id, student_id, quiz_id, attempt_number, started_at, completed_at, score, is_passed)
VALUES (:id, :student_id, :quiz_id, :attempt_number, :started_at, :completed_at, :score, :is_passed)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attempt tx: %w", err)
	}
	return attempt, nil
}

// SubmitAttempt writes the attempt's terminal fields and its answer rows in
// one transaction, so readers never observe a partially scored attempt. The
// conditional update guards against double submission.
func (r *QuizRepository) SubmitAttempt(ctx context.Context, attempt *models.QuizAttempt, answers []models.Answer) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const updateQuery = `UPDATE quiz_attempts SET completed_at = $2, score = $3, is_passed = $4
WHERE id = $1 AND completed_at IS NULL`
	result, err := tx.ExecContext(ctx, updateQuery, attempt.ID, attempt.CompletedAt, attempt.Score, attempt.IsPassed)
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	if affected == 0 {
		return ErrAttemptSubmitted
	}

	const answerQuery = `INSERT INTO answers (id, quiz_attempt_id, question_id, selected_answer, is_correct, points_earned)
VALUES (:id, :quiz_attempt_id, :question_id, :selected_answer, :is_correct, :points_earned)`
	for i := range answers {
		if answers[i].ID == "" {
			answers[i].ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, answerQuery, answers[i]); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submit tx: %w", err)
	}
	return nil
}

// ListAnswers returns the stored answers for an attempt.
func (r *QuizRepository) ListAnswers(ctx context.Context, attemptID string) ([]models.Answer, error) {
	const query = `SELECT id, quiz_attempt_id, question_id, selected_answer, is_correct, points_earned
FROM answers WHERE quiz_attempt_id = $1 ORDER BY id`
	var answers []models.Answer
	if err := r.db.SelectContext(ctx, &answers, query, attemptID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}
