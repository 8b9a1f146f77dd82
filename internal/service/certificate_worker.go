package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mohamedredwan17/etalem-api/internal/models"
	"github.com/mohamedredwan17/etalem-api/pkg/jobs"
	"github.com/mohamedredwan17/etalem-api/pkg/render"
)

type workerEnrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	SetCertificateURL(ctx context.Context, enrollmentID, url string) error
}

type workerStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type workerCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type certificateRenderer interface {
	Render(data render.CertificateData) ([]byte, error)
}

type artifactStore interface {
	Save(data []byte, filename string) (string, error)
	Exists(url string) bool
}

// CertificateWorker is the single consumer of the generation queue. Jobs run
// strictly one at a time in enqueue order; a failed job records a FAILED
// status and the worker moves on to the next one.
type CertificateWorker struct {
	certificates *CertificateService
	enrollments  workerEnrollmentStore
	students     workerStudentStore
	courses      workerCourseStore
	renderer     certificateRenderer
	store        artifactStore
	queue        *jobs.FIFO
	idleBackoff  time.Duration
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewCertificateWorker constructs the worker.
func NewCertificateWorker(certificates *CertificateService, enrollments workerEnrollmentStore, students workerStudentStore, courses workerCourseStore, renderer certificateRenderer, store artifactStore, queue *jobs.FIFO, idleBackoff time.Duration, metrics *MetricsService, logger *zap.Logger) *CertificateWorker {
	if idleBackoff <= 0 {
		idleBackoff = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateWorker{
		certificates: certificates,
		enrollments:  enrollments,
		students:     students,
		courses:      courses,
		renderer:     renderer,
		store:        store,
		queue:        queue,
		idleBackoff:  idleBackoff,
		metrics:      metrics,
		logger:       logger,
	}
}

// Run drains the queue until the context is cancelled. An empty queue is
// polled with a bounded backoff rather than a busy loop.
func (w *CertificateWorker) Run(ctx context.Context) {
	w.logger.Info("certificate worker started")
	for {
		job, ok := w.queue.TryDequeue()
		if !ok {
			select {
			case <-ctx.Done():
				w.logger.Info("certificate worker stopped")
				return
			case <-time.After(w.idleBackoff):
			}
			continue
		}
		w.metrics.ObserveCertificateQueueWait(time.Since(job.Enqueued))
		w.handle(ctx, job)

		select {
		case <-ctx.Done():
			w.logger.Info("certificate worker stopped")
			return
		default:
		}
	}
}

// handle runs one job to a terminal status. Panics are contained so a bad
// job cannot take the worker down with it.
func (w *CertificateWorker) handle(ctx context.Context, job jobs.Job) {
	payload, ok := job.Payload.(models.CertificateJob)
	if !ok {
		w.logger.Sugar().Errorw("discarding job with unexpected payload", "job_id", job.ID, "type", job.Type)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Sugar().Errorw("certificate job panicked", "enrollment_id", payload.EnrollmentID, "panic", r)
			w.fail(payload.EnrollmentID)
		}
	}()

	if err := w.process(ctx, payload); err != nil {
		w.logger.Sugar().Errorw("certificate generation failed", "enrollment_id", payload.EnrollmentID, "error", err)
		w.fail(payload.EnrollmentID)
	}
}

func (w *CertificateWorker) process(ctx context.Context, job models.CertificateJob) error {
	enrollment, err := w.enrollments.FindByID(ctx, job.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("enrollment %s not found", job.EnrollmentID)
		}
		return fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment.StudentID != job.StudentID {
		return fmt.Errorf("enrollment %s does not belong to student %s", job.EnrollmentID, job.StudentID)
	}

	// A certificate already rendered and still on disk means this job is a
	// duplicate request; reuse the artifact instead of rendering again.
	if enrollment.CertificateURL != nil && *enrollment.CertificateURL != "" && w.store.Exists(*enrollment.CertificateURL) {
		w.complete(job.EnrollmentID, *enrollment.CertificateURL, certificateNumberFromURL(*enrollment.CertificateURL))
		return nil
	}

	// Re-check eligibility at processing time. State may have regressed
	// between enqueue and dequeue, and stale jobs must not mint certificates.
	eligible, err := w.certificates.IsCertificateEligible(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("evaluate eligibility: %w", err)
	}
	if !eligible {
		return fmt.Errorf("enrollment %s no longer eligible", job.EnrollmentID)
	}

	studentName := "Student"
	if student, err := w.students.FindByID(ctx, job.StudentID); err == nil && student.FullName != "" {
		studentName = student.FullName
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load student: %w", err)
	}

	course, err := w.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}

	completionDate := time.Now().UTC()
	if enrollment.CompletedAt != nil {
		completionDate = *enrollment.CompletedAt
	}

	number := strings.ToLower(fmt.Sprintf("%s_%s", job.EnrollmentID, uuid.NewString()))
	pdf, err := w.renderer.Render(render.CertificateData{
		CertificateNumber: number,
		StudentName:       studentName,
		CourseTitle:       course.Title,
		CompletionDate:    completionDate,
	})
	if err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}

	url, err := w.store.Save(pdf, number+".pdf")
	if err != nil {
		return fmt.Errorf("store certificate: %w", err)
	}
	if err := w.enrollments.SetCertificateURL(ctx, job.EnrollmentID, url); err != nil {
		return fmt.Errorf("persist certificate url: %w", err)
	}

	// Verify the artifact is actually readable before reporting success. If
	// it vanished, the status is FAILED but the persisted URL is left as-is
	// for the next request's short-circuit check to re-evaluate.
	if !w.store.Exists(url) {
		return fmt.Errorf("certificate %s missing after save", url)
	}

	w.complete(job.EnrollmentID, url, number)
	w.logger.Sugar().Infow("certificate generated", "enrollment_id", job.EnrollmentID, "certificate_number", number)
	return nil
}

func (w *CertificateWorker) complete(enrollmentID, url, number string) {
	w.certificates.setStatus(models.CertificateStatus{
		EnrollmentID:      enrollmentID,
		State:             models.CertificateStateCompleted,
		CertificateURL:    url,
		CertificateNumber: number,
	})
	w.metrics.RecordCertificateOutcome("completed")
}

func (w *CertificateWorker) fail(enrollmentID string) {
	w.certificates.setStatus(models.CertificateStatus{
		EnrollmentID: enrollmentID,
		State:        models.CertificateStateFailed,
	})
	w.metrics.RecordCertificateOutcome("failed")
}

// certificateNumberFromURL recovers the certificate number from an artifact
// URL, which is always <number>.pdf.
func certificateNumberFromURL(url string) string {
	return strings.TrimSuffix(path.Base(url), ".pdf")
}
