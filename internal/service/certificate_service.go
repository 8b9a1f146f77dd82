package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
	"github.com/mohamedredwan17/etalem-api/pkg/jobs"
)

const certificateJobType = "certificate.generate"

type certificateEnrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	CountCompletedLessons(ctx context.Context, studentID, courseID string) (int, error)
}

type certificateLessonStore interface {
	LessonCount(ctx context.Context, courseID string) (int, error)
}

type certificateQuizStore interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error)
	HasPassedAttempt(ctx context.Context, studentID, quizID string) (bool, error)
}

type downloadSigner interface {
	Generate(enrollmentID, artifactURL string) (string, time.Time, error)
	Parse(token string) (enrollmentID, artifactURL string, expiresAt time.Time, err error)
}

// CertificateService owns the generation queue and the in-memory status map.
// Statuses live for the process lifetime only; a restart forgets them, and
// the worker's short-circuit on an existing artifact keeps re-requests cheap.
type CertificateService struct {
	enrollments certificateEnrollmentStore
	lessons     certificateLessonStore
	quizzes     certificateQuizStore
	queue       *jobs.FIFO
	signer      downloadSigner
	logger      *zap.Logger

	mu       sync.RWMutex
	statuses map[string]models.CertificateStatus
}

// NewCertificateService constructs the service around an existing queue.
func NewCertificateService(enrollments certificateEnrollmentStore, lessons certificateLessonStore, quizzes certificateQuizStore, queue *jobs.FIFO, signer downloadSigner, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		enrollments: enrollments,
		lessons:     lessons,
		quizzes:     quizzes,
		queue:       queue,
		signer:      signer,
		logger:      logger,
		statuses:    make(map[string]models.CertificateStatus),
	}
}

// IsCertificateEligible applies the completion gate: progress at 100, the
// enrollment flagged complete, every lesson of the course completed, and
// every quiz of the course passed at least once. A course with no lessons and
// no quizzes is never eligible.
func (s *CertificateService) IsCertificateEligible(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if enrollment.Progress < 100 || !enrollment.IsCompleted {
		return false, nil
	}

	totalLessons, err := s.lessons.LessonCount(ctx, enrollment.CourseID)
	if err != nil {
		return false, err
	}
	quizzes, err := s.quizzes.ListByCourse(ctx, enrollment.CourseID)
	if err != nil {
		return false, err
	}
	if totalLessons == 0 && len(quizzes) == 0 {
		return false, nil
	}

	if totalLessons > 0 {
		completed, err := s.enrollments.CountCompletedLessons(ctx, enrollment.StudentID, enrollment.CourseID)
		if err != nil {
			return false, err
		}
		if completed < totalLessons {
			return false, nil
		}
	}

	for _, quiz := range quizzes {
		passed, err := s.quizzes.HasPassedAttempt(ctx, enrollment.StudentID, quiz.ID)
		if err != nil {
			return false, err
		}
		if !passed {
			return false, nil
		}
	}
	return true, nil
}

// RequestCertificate checks eligibility and enqueues a generation job. The
// call is asynchronous: it acknowledges acceptance and the caller polls
// PollStatus for the outcome. Repeat requests enqueue again; the pending
// status is only seeded when no status exists yet, so a finished outcome is
// not wiped by a re-request, and the worker's artifact short-circuit makes
// the duplicate job a no-op.
func (s *CertificateService) RequestCertificate(ctx context.Context, enrollmentID, studentID string) (*dto.CertificateRequestResponse, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	eligible, err := s.IsCertificateEligible(ctx, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evaluate eligibility")
	}
	if !eligible {
		return nil, appErrors.ErrIneligible
	}

	job := models.CertificateJob{
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		EnqueuedAt:   time.Now().UTC(),
	}
	s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    certificateJobType,
		Payload: job,
	})
	s.markPending(enrollmentID)

	s.logger.Sugar().Infow("certificate generation requested", "enrollment_id", enrollmentID, "student_id", studentID)
	return &dto.CertificateRequestResponse{
		EnrollmentID: enrollmentID,
		State:        models.CertificateStatePending,
	}, nil
}

// PollStatus reports the current generation state for an enrollment. Unknown
// enrollments report pending: the status map is process-local and a poll may
// land after a restart that forgot the enqueue. A completed status carries a
// signed, expiring download token.
func (s *CertificateService) PollStatus(ctx context.Context, enrollmentID, studentID string) (*dto.CertificateStatusResponse, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	s.mu.RLock()
	status, ok := s.statuses[enrollmentID]
	s.mu.RUnlock()
	if !ok {
		status = models.CertificateStatus{
			EnrollmentID: enrollmentID,
			State:        models.CertificateStatePending,
		}
	}

	resp := &dto.CertificateStatusResponse{
		EnrollmentID:      enrollmentID,
		State:             status.State,
		CertificateURL:    status.CertificateURL,
		CertificateNumber: status.CertificateNumber,
	}
	if status.State == models.CertificateStateCompleted && status.CertificateURL != "" && s.signer != nil {
		token, expiresAt, err := s.signer.Generate(enrollmentID, status.CertificateURL)
		if err != nil {
			s.logger.Sugar().Warnw("failed to sign download token", "enrollment_id", enrollmentID, "error", err)
		} else {
			resp.DownloadToken = token
			resp.DownloadExpiresAt = &expiresAt
		}
	}
	return resp, nil
}

// ResolveDownload validates a signed download token and returns the artifact
// URL it grants access to.
func (s *CertificateService) ResolveDownload(token string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "downloads are not enabled")
	}
	_, artifactURL, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	return artifactURL, nil
}

// markPending seeds a pending status only when no status exists yet.
func (s *CertificateService) markPending(enrollmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[enrollmentID]; ok {
		return
	}
	s.statuses[enrollmentID] = models.CertificateStatus{
		EnrollmentID: enrollmentID,
		State:        models.CertificateStatePending,
		UpdatedAt:    time.Now().UTC(),
	}
}

// setStatus records a final outcome, overwriting whatever was there.
func (s *CertificateService) setStatus(status models.CertificateStatus) {
	status.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.statuses[status.EnrollmentID] = status
	s.mu.Unlock()
}

// statusFor is a read hook for the worker and tests.
func (s *CertificateService) statusFor(enrollmentID string) (models.CertificateStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[enrollmentID]
	return status, ok
}
