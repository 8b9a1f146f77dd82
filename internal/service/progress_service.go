package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	"github.com/mohamedredwan17/etalem-api/internal/repository"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
)

type lessonDirectory interface {
	FindLessonByID(ctx context.Context, id string) (*models.Lesson, error)
	LessonCount(ctx context.Context, courseID string) (int, error)
}

type progressStore interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ApplyLessonCompletion(ctx context.Context, enrollmentID, studentID, lessonID, courseID string, totalLessons int) (*repository.LessonProgressResult, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ProgressService is the progress ledger: it records lesson completion facts
// and derives each enrollment's completion percentage from them.
type ProgressService struct {
	lessons     lessonDirectory
	enrollments progressStore
	cache       cacheInvalidator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewProgressService constructs the service.
func NewProgressService(lessons lessonDirectory, enrollments progressStore, cache cacheInvalidator, metrics *MetricsService, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		lessons:     lessons,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// MarkLessonCompleted records that the student finished the lesson and
// returns the recomputed progress. Calling it again for the same lesson is a
// no-op on the fact table but still recomputes and returns progress.
//
// Progress is floor(100 * completed / total). The fact insert, the count, and
// the progress write all happen inside one repository transaction holding the
// enrollment row lock, so concurrent completions for the same enrollment are
// fully serialized and the transition to completed fires exactly once.
func (s *ProgressService) MarkLessonCompleted(ctx context.Context, studentID, lessonID string) (*dto.ProgressResponse, error) {
	lesson, err := s.lessons.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, lesson.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotEnrolled
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	total, err := s.lessons.LessonCount(ctx, lesson.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lessons")
	}
	if total == 0 {
		// A course with no lessons can never reach 100% through this path.
		s.logger.Sugar().Warnw("course has no lessons, progress unchanged", "course_id", lesson.CourseID, "lesson_id", lessonID)
	}

	result, err := s.enrollments.ApplyLessonCompletion(ctx, enrollment.ID, studentID, lessonID, lesson.CourseID, total)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record lesson completion")
	}
	if result.FactWritten {
		s.metrics.RecordLessonCompleted()
	}
	if result.Transitioned {
		s.metrics.RecordCourseCompleted()
		s.logger.Sugar().Infow("enrollment completed", "enrollment_id", result.Enrollment.ID, "student_id", studentID, "course_id", lesson.CourseID)
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, contentCacheKey(lesson.CourseID, studentID)); err != nil {
			s.logger.Sugar().Warnw("content cache invalidation failed", "course_id", lesson.CourseID, "error", err)
		}
	}

	return &dto.ProgressResponse{
		EnrollmentID: result.Enrollment.ID,
		Progress:     result.Enrollment.Progress,
		IsCompleted:  result.Enrollment.IsCompleted,
	}, nil
}
