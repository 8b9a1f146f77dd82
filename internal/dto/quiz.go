package dto

import (
	"time"

	"github.com/mohamedredwan17/etalem-api/internal/models"
)

// SubmittedAnswer is one (question, selected answer) pair in a submission.
type SubmittedAnswer struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedAnswer string `json:"selected_answer"`
}

// SubmitAttemptRequest carries the answers for a pending attempt.
type SubmitAttemptRequest struct {
	Answers []SubmittedAnswer `json:"answers" validate:"required,dive"`
}

// AttemptResponse is the API view of an attempt, including its scored
// answers once submitted.
type AttemptResponse struct {
	ID            string          `json:"id"`
	QuizID        string          `json:"quiz_id"`
	StudentID     string          `json:"student_id"`
	AttemptNumber int             `json:"attempt_number"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Score         int             `json:"score"`
	IsPassed      bool            `json:"is_passed"`
	Answers       []models.Answer `json:"answers,omitempty"`
}

// NewAttemptResponse maps an attempt model to its API view.
func NewAttemptResponse(attempt *models.QuizAttempt) *AttemptResponse {
	return &AttemptResponse{
		ID:            attempt.ID,
		QuizID:        attempt.QuizID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
		CompletedAt:   attempt.CompletedAt,
		Score:         attempt.Score,
		IsPassed:      attempt.IsPassed,
		Answers:       attempt.Answers,
	}
}
