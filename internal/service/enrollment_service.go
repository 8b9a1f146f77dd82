package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
)

type enrollmentCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentStore interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// EnrollmentService opens enrollments and lists a student's courses.
type EnrollmentService struct {
	courses     enrollmentCourseStore
	enrollments enrollmentStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(courses enrollmentCourseStore, enrollments enrollmentStore, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		courses:     courses,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// Enroll opens a fresh enrollment at zero progress. A student can hold at
// most one enrollment per course.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.enrollments.Exists(ctx, studentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course")
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		CourseID:  req.CourseID,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Sugar().Infow("student enrolled", "enrollment_id", enrollment.ID, "student_id", studentID, "course_id", req.CourseID)
	return enrollment, nil
}

// ListByStudent returns the student's enrollments with course summaries.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}
