package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
)

type mockCourseCatalog struct {
	courses map[string]models.Course
	lessons map[string][]models.Lesson
}

func (m *mockCourseCatalog) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseCatalog) ListLessonsByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	return m.lessons[courseID], nil
}

type mockQuizCatalog struct {
	quizzes map[string][]models.Quiz
	passed  map[string]bool
}

func (m *mockQuizCatalog) ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error) {
	return m.quizzes[courseID], nil
}

func (m *mockQuizCatalog) HasPassedAttempt(ctx context.Context, studentID, quizID string) (bool, error) {
	return m.passed[studentID+":"+quizID], nil
}

type mockStudentProgress struct {
	enrollments map[string]models.Enrollment
	completed   map[string]map[string]bool
}

func (m *mockStudentProgress) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[studentID+":"+courseID]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentProgress) CompletedLessonIDs(ctx context.Context, studentID, courseID string) (map[string]bool, error) {
	return m.completed[studentID+":"+courseID], nil
}

type mockContentCache struct {
	entries map[string][]byte
	hits    int
	sets    int
}

func (m *mockContentCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	resp := dest.(*dto.CourseContentResponse)
	*resp = dto.CourseContentResponse{CourseID: string(raw)}
	return nil
}

func (m *mockContentCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = []byte("cached")
	m.sets++
	return nil
}

func contentFixture() (*mockCourseCatalog, *mockQuizCatalog, *mockStudentProgress) {
	courses := &mockCourseCatalog{
		courses: map[string]models.Course{
			"c1": {ID: "c1", Title: "Go Fundamentals", Description: "From zero"},
		},
		lessons: map[string][]models.Lesson{
			"c1": {
				{ID: "l2", CourseID: "c1", Title: "Slices", Order: 2, Duration: 15},
				{ID: "l1", CourseID: "c1", Title: "Hello", Order: 1, Duration: 10},
			},
		},
	}
	quizzes := &mockQuizCatalog{
		quizzes: map[string][]models.Quiz{
			"c1": {{ID: "q1", CourseID: "c1", Title: "Checkpoint", Order: 3, PassingScore: 70, MaxAttempts: 2}},
		},
		passed: map[string]bool{"s1:q1": true},
	}
	progress := &mockStudentProgress{
		enrollments: map[string]models.Enrollment{
			"s1:c1": {ID: "e1", StudentID: "s1", CourseID: "c1", Progress: 50},
		},
		completed: map[string]map[string]bool{
			"s1:c1": {"l1": true},
		},
	}
	return courses, quizzes, progress
}

func TestGetCourseContentMergesAndSorts(t *testing.T) {
	courses, quizzes, progress := contentFixture()
	svc := NewContentService(courses, quizzes, progress, nil, 0, nil)

	content, cacheHit, err := svc.GetCourseContent(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 50, content.Progress)
	require.Len(t, content.Items, 3)

	assert.Equal(t, "l1", content.Items[0].ID)
	assert.True(t, content.Items[0].IsCompleted)
	assert.Equal(t, "l2", content.Items[1].ID)
	assert.False(t, content.Items[1].IsCompleted)
	assert.Equal(t, "q1", content.Items[2].ID)
	assert.Equal(t, dto.ContentItemQuiz, content.Items[2].Type)
	assert.True(t, content.Items[2].IsPassed)
}

func TestGetCourseContentNotEnrolled(t *testing.T) {
	courses, quizzes, progress := contentFixture()
	svc := NewContentService(courses, quizzes, progress, nil, 0, nil)

	_, _, err := svc.GetCourseContent(context.Background(), "c1", "outsider")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErr.Code)
}

func TestGetCourseContentUnknownCourse(t *testing.T) {
	courses, quizzes, progress := contentFixture()
	svc := NewContentService(courses, quizzes, progress, nil, 0, nil)

	_, _, err := svc.GetCourseContent(context.Background(), "missing", "s1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGetCourseContentUsesCache(t *testing.T) {
	courses, quizzes, progress := contentFixture()
	cache := &mockContentCache{}
	svc := NewContentService(courses, quizzes, progress, cache, time.Minute, nil)

	_, cacheHit, err := svc.GetCourseContent(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, cache.sets)

	_, cacheHit, err = svc.GetCourseContent(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, cache.hits)
}
