package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mohamedredwan17/etalem-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments and the
// completed-lesson fact table.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at, progress, is_completed, completed_at, certificate_url
FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndCourse returns the enrollment for a (student, course) pair.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at, progress, is_completed, completed_at, certificate_url
FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists checks whether a (student, course) enrollment already exists.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, enrolled_at, progress, is_completed, completed_at, certificate_url)
VALUES (:id, :student_id, :course_id, :enrolled_at, :progress, :is_completed, :completed_at, :certificate_url)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListByStudent returns a student's enrollments enriched with course info.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.enrolled_at, e.progress, e.is_completed, e.completed_at, e.certificate_url,
        c.title AS course_title,
        (SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id) AS lesson_count
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.enrolled_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// CountCompletedLessons returns the number of completion facts a student has
// in the given course.
func (r *EnrollmentRepository) CountCompletedLessons(ctx context.Context, studentID, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM completed_lessons cl
JOIN lessons l ON l.id = cl.lesson_id
WHERE cl.student_id = $1 AND l.course_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, courseID); err != nil {
		return 0, fmt.Errorf("count completed lessons: %w", err)
	}
	return count, nil
}

// CompletedLessonIDs returns the set of lesson IDs a student has completed in
// the given course.
func (r *EnrollmentRepository) CompletedLessonIDs(ctx context.Context, studentID, courseID string) (map[string]bool, error) {
	const query = `SELECT cl.lesson_id FROM completed_lessons cl
JOIN lessons l ON l.id = cl.lesson_id
WHERE cl.student_id = $1 AND l.course_id = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("list completed lessons: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// LessonProgressResult reports the outcome of recording a lesson completion.
type LessonProgressResult struct {
	Enrollment   *models.Enrollment
	FactWritten  bool
	Transitioned bool
}

// ApplyLessonCompletion records the completion fact and recomputes the
// enrollment's progress in one transaction. The enrollment row is locked for
// the duration, so the fact insert, the count, and the progress write form a
// single serialized read-modify-write; two concurrent completions cannot apply
// a stale count after the other's 100% transition, and the transition fires at
// most once. completed_at is never overwritten. With totalLessons == 0 only
// the fact is written; progress stays as it was.
func (r *EnrollmentRepository) ApplyLessonCompletion(ctx context.Context, enrollmentID, studentID, lessonID, courseID string, totalLessons int) (*LessonProgressResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin progress tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT id, student_id, course_id, enrolled_at, progress, is_completed, completed_at, certificate_url
FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := tx.GetContext(ctx, &enrollment, lockQuery, enrollmentID); err != nil {
		return nil, err
	}

	const factQuery = `INSERT INTO completed_lessons (id, student_id, lesson_id, completed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, lesson_id) DO NOTHING`
	factResult, err := tx.ExecContext(ctx, factQuery, uuid.NewString(), studentID, lessonID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("mark lesson completed: %w", err)
	}
	affected, err := factResult.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark lesson completed: %w", err)
	}
	result := &LessonProgressResult{Enrollment: &enrollment, FactWritten: affected > 0}

	if totalLessons > 0 {
		const countQuery = `SELECT COUNT(*) FROM completed_lessons cl
JOIN lessons l ON l.id = cl.lesson_id
WHERE cl.student_id = $1 AND l.course_id = $2`
		var completed int
		if err := tx.GetContext(ctx, &completed, countQuery, studentID, courseID); err != nil {
			return nil, fmt.Errorf("count completed lessons: %w", err)
		}

		enrollment.Progress = completed * 100 / totalLessons
		if enrollment.Progress == 100 && !enrollment.IsCompleted {
			now := time.Now().UTC()
			enrollment.IsCompleted = true
			enrollment.CompletedAt = &now
			result.Transitioned = true
		}

		const updateQuery = `UPDATE enrollments SET progress = $2, is_completed = $3, completed_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateQuery, enrollment.ID, enrollment.Progress, enrollment.IsCompleted, enrollment.CompletedAt); err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit progress tx: %w", err)
	}
	return result, nil
}

// SetCertificateURL persists the generated artifact URL on the enrollment.
func (r *EnrollmentRepository) SetCertificateURL(ctx context.Context, enrollmentID, url string) error {
	const query = `UPDATE enrollments SET certificate_url = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, url); err != nil {
		return fmt.Errorf("set certificate url: %w", err)
	}
	return nil
}
