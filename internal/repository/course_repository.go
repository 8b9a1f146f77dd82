package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mohamedredwan17/etalem-api/internal/models"
)

// CourseRepository handles course and lesson directory reads.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, description, instructor_id, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindLessonByID returns a lesson by its ID.
func (r *CourseRepository) FindLessonByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, course_id, title, position, duration, created_at FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// LessonCount returns how many lessons a course currently has.
func (r *CourseRepository) LessonCount(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}

// ListLessonsByCourse returns the course's lessons in content order.
func (r *CourseRepository) ListLessonsByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	const query = `SELECT id, course_id, title, position, duration, created_at FROM lessons WHERE course_id = $1 ORDER BY position ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}
