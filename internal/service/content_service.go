package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
)

// contentCacheKey is the cache key for one student's view of one course.
// Lesson completions and attempt submissions invalidate it.
func contentCacheKey(courseID, studentID string) string {
	return fmt.Sprintf("content:%s:%s", courseID, studentID)
}

type courseCatalog interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListLessonsByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
}

type quizCatalog interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error)
	HasPassedAttempt(ctx context.Context, studentID, quizID string) (bool, error)
}

type studentProgress interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	CompletedLessonIDs(ctx context.Context, studentID, courseID string) (map[string]bool, error)
}

type contentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ContentService assembles the per-student course content view: lessons and
// quizzes merged into one list sorted by position, each item flagged with the
// student's completion state.
type ContentService struct {
	courses     courseCatalog
	quizzes     quizCatalog
	enrollments studentProgress
	cache       contentCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewContentService constructs the service. A nil cache disables caching.
func NewContentService(courses courseCatalog, quizzes quizCatalog, enrollments studentProgress, cache contentCache, cacheTTL time.Duration, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{
		courses:     courses,
		quizzes:     quizzes,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// GetCourseContent returns the merged content listing for an enrolled
// student, plus whether it was served from cache. The view is cached per
// (course, student) until a write to either invalidates it.
func (s *ContentService) GetCourseContent(ctx context.Context, courseID, studentID string) (*dto.CourseContentResponse, bool, error) {
	key := contentCacheKey(courseID, studentID)
	if s.cache != nil {
		var cached dto.CourseContentResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("content cache read failed", "key", key, "error", err)
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.ErrNotEnrolled
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	lessons, err := s.courses.ListLessonsByCourse(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	completed, err := s.enrollments.CompletedLessonIDs(ctx, studentID, courseID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed lessons")
	}
	quizzes, err := s.quizzes.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quizzes")
	}

	items := make([]dto.CourseContentItem, 0, len(lessons)+len(quizzes))
	for _, lesson := range lessons {
		items = append(items, dto.CourseContentItem{
			ID:          lesson.ID,
			Title:       lesson.Title,
			Order:       lesson.Order,
			Type:        dto.ContentItemLesson,
			Duration:    lesson.Duration,
			IsCompleted: completed[lesson.ID],
		})
	}
	for _, quiz := range quizzes {
		passed, err := s.quizzes.HasPassedAttempt(ctx, studentID, quiz.ID)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt state")
		}
		items = append(items, dto.CourseContentItem{
			ID:           quiz.ID,
			Title:        quiz.Title,
			Order:        quiz.Order,
			Type:         dto.ContentItemQuiz,
			TimeLimit:    quiz.TimeLimit,
			PassingScore: quiz.PassingScore,
			MaxAttempts:  quiz.MaxAttempts,
			IsPassed:     passed,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })

	resp := &dto.CourseContentResponse{
		CourseID:    course.ID,
		Title:       course.Title,
		Description: course.Description,
		Progress:    enrollment.Progress,
		IsCompleted: enrollment.IsCompleted,
		Items:       items,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("content cache write failed", "key", key, "error", err)
		}
	}
	return resp, false, nil
}
