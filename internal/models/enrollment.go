package models

import "time"

// Enrollment captures a student's registration in a course. It owns the
// progress, completion and certificate state for that (student, course) pair.
//
// Invariant: IsCompleted is true exactly when Progress is 100. CompletedAt is
// set once, on the transition to completed, and never cleared.
type Enrollment struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	CourseID       string     `db:"course_id" json:"course_id"`
	EnrolledAt     time.Time  `db:"enrolled_at" json:"enrolled_at"`
	Progress       int        `db:"progress" json:"progress"`
	IsCompleted    bool       `db:"is_completed" json:"is_completed"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CertificateURL *string    `db:"certificate_url" json:"certificate_url,omitempty"`
}

// EnrollmentDetail enriches Enrollment with course info for listings.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle string `db:"course_title" json:"course_title"`
	LessonCount int    `db:"lesson_count" json:"lesson_count"`
}

// CompletedLesson is an append-only fact recording that a student finished a
// lesson. One row per (student, lesson); re-marking is a no-op.
type CompletedLesson struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}
