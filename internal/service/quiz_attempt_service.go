package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	"github.com/mohamedredwan17/etalem-api/internal/repository"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
)

type quizStore interface {
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	FindAttemptByID(ctx context.Context, id string) (*models.QuizAttempt, error)
	ListAttempts(ctx context.Context, studentID, quizID string) ([]models.QuizAttempt, error)
	CreateAttempt(ctx context.Context, studentID, quizID string) (*models.QuizAttempt, error)
	SubmitAttempt(ctx context.Context, attempt *models.QuizAttempt, answers []models.Answer) error
	ListAnswers(ctx context.Context, attemptID string) ([]models.Answer, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
}

// QuizAttemptService runs the two-phase attempt protocol: StartAttempt opens
// a timed attempt, SubmitAttempt scores and finalizes it.
type QuizAttemptService struct {
	quizzes     quizStore
	enrollments enrollmentChecker
	cache       cacheInvalidator
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewQuizAttemptService constructs the service.
func NewQuizAttemptService(quizzes quizStore, enrollments enrollmentChecker, cache cacheInvalidator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *QuizAttemptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizAttemptService{
		quizzes:     quizzes,
		enrollments: enrollments,
		cache:       cache,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// StartAttempt opens a new attempt for the student. Attempt numbering and the
// limit check run against the authoritative stored count, serialized per
// (student, quiz) by the repository.
func (s *QuizAttemptService) StartAttempt(ctx context.Context, quizID, studentID string) (*dto.AttemptResponse, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	enrolled, err := s.enrollments.Exists(ctx, studentID, quiz.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if !enrolled {
		return nil, appErrors.ErrNotEnrolled
	}

	attempt, err := s.quizzes.CreateAttempt(ctx, studentID, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrAttemptLimit) {
			return nil, appErrors.ErrAttemptLimitExceeded
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start attempt")
	}

	s.metrics.RecordAttemptStarted()
	s.logger.Sugar().Infow("attempt started", "quiz_id", quizID, "student_id", studentID, "attempt_number", attempt.AttemptNumber)
	return dto.NewAttemptResponse(attempt), nil
}

// SubmitAttempt scores the submitted answers and finalizes the attempt. An
// attempt can be submitted only once. Answers referencing questions outside
// the attempt's quiz are dropped without error: they are stale client state,
// not a violation.
func (s *QuizAttemptService) SubmitAttempt(ctx context.Context, attemptID, studentID string, req dto.SubmitAttemptRequest) (*dto.AttemptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	attempt, err := s.quizzes.FindAttemptByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	if attempt.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
	}
	if attempt.CompletedAt != nil {
		return nil, appErrors.ErrAlreadySubmitted
	}

	quiz, err := s.quizzes.FindByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	questions := make(map[string]models.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions[q.ID] = q
	}

	score := 0
	answers := make([]models.Answer, 0, len(req.Answers))
	for _, submitted := range req.Answers {
		question, ok := questions[submitted.QuestionID]
		if !ok {
			s.logger.Sugar().Debugw("dropping answer for unknown question", "attempt_id", attemptID, "question_id", submitted.QuestionID)
			continue
		}
		isCorrect := submitted.SelectedAnswer == question.CorrectAnswer
		points := 0
		if isCorrect {
			points = question.Points
		}
		score += points
		answers = append(answers, models.Answer{
			QuizAttemptID:  attemptID,
			QuestionID:     submitted.QuestionID,
			SelectedAnswer: submitted.SelectedAnswer,
			IsCorrect:      isCorrect,
			PointsEarned:   points,
		})
	}

	now := time.Now().UTC()
	attempt.CompletedAt = &now
	attempt.Score = score
	// PassingScore is an absolute point threshold, compared against the raw
	// point total rather than a percentage.
	attempt.IsPassed = score >= quiz.PassingScore

	if err := s.quizzes.SubmitAttempt(ctx, attempt, answers); err != nil {
		if errors.Is(err, repository.ErrAttemptSubmitted) {
			return nil, appErrors.ErrAlreadySubmitted
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit attempt")
	}

	attempt.Answers = answers
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, contentCacheKey(quiz.CourseID, studentID)); err != nil {
			s.logger.Sugar().Warnw("content cache invalidation failed", "course_id", quiz.CourseID, "error", err)
		}
	}
	s.metrics.RecordAttemptSubmitted(attempt.IsPassed)
	s.logger.Sugar().Infow("attempt submitted", "attempt_id", attemptID, "student_id", studentID, "score", score, "passed", attempt.IsPassed)
	return dto.NewAttemptResponse(attempt), nil
}

// ListAttempts returns the student's attempt history for a quiz.
func (s *QuizAttemptService) ListAttempts(ctx context.Context, quizID, studentID string) ([]models.QuizAttempt, error) {
	quiz, err := s.quizzes.FindByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	enrolled, err := s.enrollments.Exists(ctx, studentID, quiz.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if !enrolled {
		return nil, appErrors.ErrNotEnrolled
	}

	attempts, err := s.quizzes.ListAttempts(ctx, studentID, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	for i := range attempts {
		if attempts[i].CompletedAt == nil {
			continue
		}
		answers, err := s.quizzes.ListAnswers(ctx, attempts[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
		}
		attempts[i].Answers = answers
	}
	return attempts, nil
}
