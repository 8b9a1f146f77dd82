package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedredwan17/etalem-api/internal/models"
)

func quizColumns() []string {
	return []string{"id", "course_id", "title", "position", "time_limit", "passing_score", "max_attempts", "created_at"}
}

func TestQuizRepositoryFindByIDLoadsQuestions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM quizzes WHERE id")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows(quizColumns()).
			AddRow("q1", "c1", "Final", 5, 30, 70, 2, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM questions WHERE quiz_id")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "text", "correct_answer", "points"}).
			AddRow("question-1", "q1", "2+2?", "4", 50).
			AddRow("question-2", "q1", "3+3?", "6", 50))

	quiz, err := repo.FindByID(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, 70, quiz.PassingScore)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "4", quiz.Questions[0].CorrectAnswer)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAttemptNumbersFromStoredCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_attempts FROM quizzes")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"max_attempts"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM quiz_attempts")).
		WithArgs("s1", "q1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quiz_attempts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	attempt, err := repo.CreateAttempt(context.Background(), "s1", "q1")
	require.NoError(t, err)
	assert.Equal(t, 2, attempt.AttemptNumber)
	assert.NotEmpty(t, attempt.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAttemptEnforcesLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_attempts FROM quizzes")).
		WithArgs("q1").
		WillReturnRows(sqlmock.NewRows([]string{"max_attempts"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM quiz_attempts")).
		WithArgs("s1", "q1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.CreateAttempt(context.Background(), "s1", "q1")
	require.ErrorIs(t, err, ErrAttemptLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitAttemptWritesAnswersInOneTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	now := time.Now().UTC()
	attempt := &models.QuizAttempt{ID: "a1", StudentID: "s1", QuizID: "q1", CompletedAt: &now, Score: 100, IsPassed: true}
	answers := []models.Answer{
		{QuizAttemptID: "a1", QuestionID: "question-1", SelectedAnswer: "4", IsCorrect: true, PointsEarned: 50},
		{QuizAttemptID: "a1", QuestionID: "question-2", SelectedAnswer: "6", IsCorrect: true, PointsEarned: 50},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quiz_attempts SET completed_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO answers")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO answers")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SubmitAttempt(context.Background(), attempt, answers))
	assert.NotEmpty(t, answers[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitAttemptDetectsDoubleSubmit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	now := time.Now().UTC()
	attempt := &models.QuizAttempt{ID: "a1", CompletedAt: &now}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quiz_attempts SET completed_at")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SubmitAttempt(context.Background(), attempt, nil)
	require.ErrorIs(t, err, ErrAttemptSubmitted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHasPassedAttempt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("s1", "q1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	passed, err := repo.HasPassedAttempt(context.Background(), "s1", "q1")
	require.NoError(t, err)
	assert.True(t, passed)
	require.NoError(t, mock.ExpectationsWereMet())
}
