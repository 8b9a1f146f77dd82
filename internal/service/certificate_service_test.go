package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedredwan17/etalem-api/internal/models"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
	"github.com/mohamedredwan17/etalem-api/pkg/jobs"
	"github.com/mohamedredwan17/etalem-api/pkg/storage"
)

type mockCertEnrollments struct {
	enrollments map[string]models.Enrollment
	completed   map[string]int // studentID+":"+courseID -> completed lesson count
	urls        map[string]string
}

func (m *mockCertEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		if url, set := m.urls[id]; set {
			e.CertificateURL = &url
		}
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCertEnrollments) CountCompletedLessons(ctx context.Context, studentID, courseID string) (int, error) {
	return m.completed[studentID+":"+courseID], nil
}

func (m *mockCertEnrollments) SetCertificateURL(ctx context.Context, enrollmentID, url string) error {
	if m.urls == nil {
		m.urls = make(map[string]string)
	}
	m.urls[enrollmentID] = url
	return nil
}

type mockCertLessons struct {
	counts map[string]int
}

func (m *mockCertLessons) LessonCount(ctx context.Context, courseID string) (int, error) {
	return m.counts[courseID], nil
}

type mockCertQuizzes struct {
	quizzes map[string][]models.Quiz
	passed  map[string]bool // studentID+":"+quizID
}

func (m *mockCertQuizzes) ListByCourse(ctx context.Context, courseID string) ([]models.Quiz, error) {
	return m.quizzes[courseID], nil
}

func (m *mockCertQuizzes) HasPassedAttempt(ctx context.Context, studentID, quizID string) (bool, error) {
	return m.passed[studentID+":"+quizID], nil
}

func completedEnrollmentFixture() (*mockCertEnrollments, *mockCertLessons, *mockCertQuizzes) {
	enrollments := &mockCertEnrollments{
		enrollments: map[string]models.Enrollment{
			"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Progress: 100, IsCompleted: true},
		},
		completed: map[string]int{"s1:c1": 3},
	}
	lessons := &mockCertLessons{counts: map[string]int{"c1": 3}}
	quizzes := &mockCertQuizzes{
		quizzes: map[string][]models.Quiz{"c1": {{ID: "q1", CourseID: "c1"}}},
		passed:  map[string]bool{"s1:q1": true},
	}
	return enrollments, lessons, quizzes
}

func newCertServiceForTest(e *mockCertEnrollments, l *mockCertLessons, q *mockCertQuizzes) (*CertificateService, *jobs.FIFO) {
	queue := jobs.NewFIFO("certificates", nil)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewCertificateService(e, l, q, queue, signer, nil), queue
}

func TestIsCertificateEligible(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	enrollment := enrollments.enrollments["e1"]
	eligible, err := svc.IsCertificateEligible(context.Background(), &enrollment)
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestIsCertificateEligibleFailsOnUnpassedQuiz(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	quizzes.passed["s1:q1"] = false
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	enrollment := enrollments.enrollments["e1"]
	eligible, err := svc.IsCertificateEligible(context.Background(), &enrollment)
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestIsCertificateEligibleFailsOnMissingLesson(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	enrollments.completed["s1:c1"] = 2
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	enrollment := enrollments.enrollments["e1"]
	eligible, err := svc.IsCertificateEligible(context.Background(), &enrollment)
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestIsCertificateEligibleEmptyCourse(t *testing.T) {
	enrollments := &mockCertEnrollments{
		enrollments: map[string]models.Enrollment{
			"e1": {ID: "e1", StudentID: "s1", CourseID: "bare", Progress: 100, IsCompleted: true},
		},
	}
	lessons := &mockCertLessons{counts: map[string]int{}}
	quizzes := &mockCertQuizzes{}
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	enrollment := enrollments.enrollments["e1"]
	eligible, err := svc.IsCertificateEligible(context.Background(), &enrollment)
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestRequestCertificateEnqueuesAndMarksPending(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, queue := newCertServiceForTest(enrollments, lessons, quizzes)

	ack, err := svc.RequestCertificate(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatePending, ack.State)
	assert.Equal(t, 1, queue.Len())

	status, ok := svc.statusFor("e1")
	require.True(t, ok)
	assert.Equal(t, models.CertificateStatePending, status.State)
}

func TestRequestCertificateIneligible(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	enrollments.enrollments["e2"] = models.Enrollment{ID: "e2", StudentID: "s1", CourseID: "c1", Progress: 60}
	svc, queue := newCertServiceForTest(enrollments, lessons, quizzes)

	_, err := svc.RequestCertificate(context.Background(), "e2", "s1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrIneligible.Code, appErr.Code)
	assert.Equal(t, 0, queue.Len())
}

func TestRequestCertificateForeignEnrollment(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	_, err := svc.RequestCertificate(context.Background(), "e1", "someone-else")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRepeatRequestDoesNotResetFinalStatus(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, queue := newCertServiceForTest(enrollments, lessons, quizzes)

	_, err := svc.RequestCertificate(context.Background(), "e1", "s1")
	require.NoError(t, err)

	svc.setStatus(models.CertificateStatus{
		EnrollmentID:   "e1",
		State:          models.CertificateStateCompleted,
		CertificateURL: "/certificates/e1_abc.pdf",
	})

	_, err = svc.RequestCertificate(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, queue.Len())

	status, ok := svc.statusFor("e1")
	require.True(t, ok)
	assert.Equal(t, models.CertificateStateCompleted, status.State)
}

func TestPollStatusUnknownEnrollmentReportsPending(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	status, err := svc.PollStatus(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStatePending, status.State)
	assert.Empty(t, status.DownloadToken)
}

func TestPollStatusCompletedCarriesDownloadToken(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	svc.setStatus(models.CertificateStatus{
		EnrollmentID:      "e1",
		State:             models.CertificateStateCompleted,
		CertificateURL:    "/certificates/e1_abc.pdf",
		CertificateNumber: "e1_abc",
	})

	status, err := svc.PollStatus(context.Background(), "e1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.CertificateStateCompleted, status.State)
	require.NotEmpty(t, status.DownloadToken)
	require.NotNil(t, status.DownloadExpiresAt)

	url, err := svc.ResolveDownload(status.DownloadToken)
	require.NoError(t, err)
	assert.Equal(t, "/certificates/e1_abc.pdf", url)
}

func TestResolveDownloadRejectsGarbage(t *testing.T) {
	enrollments, lessons, quizzes := completedEnrollmentFixture()
	svc, _ := newCertServiceForTest(enrollments, lessons, quizzes)

	_, err := svc.ResolveDownload("not-a-token")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
