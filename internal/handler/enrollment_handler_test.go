package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mohamedredwan17/etalem-api/internal/middleware"
	"github.com/mohamedredwan17/etalem-api/internal/models"
	"github.com/mohamedredwan17/etalem-api/internal/service"
)

type stubCourses struct {
	courses map[string]models.Course
}

func (s *stubCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type stubEnrollmentStore struct {
	exists bool
}

func (s *stubEnrollmentStore) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	return s.exists, nil
}

func (s *stubEnrollmentStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.ID = "e1"
	return nil
}

func (s *stubEnrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

const testCourseID = "a7f3b2c1-0d4e-4f5a-8b6c-7d8e9f0a1b2c"

func newEnrollmentHandlerFixture(existing bool) *EnrollmentHandler {
	courses := &stubCourses{courses: map[string]models.Course{
		testCourseID: {ID: testCourseID, Title: "Go Fundamentals"},
	}}
	store := &stubEnrollmentStore{exists: existing}
	svc := service.NewEnrollmentService(courses, store, nil, nil)
	return NewEnrollmentHandler(svc, nil)
}

func postEnrollment(t *testing.T, handler *EnrollmentHandler, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if authed {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{StudentID: "s1"})
	}
	handler.Create(c)
	return rec
}

func TestEnrollmentCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerFixture(false)

	rec := postEnrollment(t, handler, `{"course_id":"`+testCourseID+`"}`, true)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestEnrollmentCreateDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerFixture(true)

	rec := postEnrollment(t, handler, `{"course_id":"`+testCourseID+`"}`, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEnrollmentCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerFixture(false)

	rec := postEnrollment(t, handler, `{"course_id":"`+testCourseID+`"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newEnrollmentHandlerFixture(false)

	rec := postEnrollment(t, handler, `{"course_id":"nope"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
