package models

import "time"

// Quiz is a scored assessment attached to a course.
//
// PassingScore is an absolute point threshold: an attempt passes when its
// summed points reach it. It is not a percentage.
type Quiz struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Title        string    `db:"title" json:"title"`
	Order        int       `db:"position" json:"order"`
	TimeLimit    int       `db:"time_limit" json:"time_limit"`
	PassingScore int       `db:"passing_score" json:"passing_score"`
	MaxAttempts  int       `db:"max_attempts" json:"max_attempts"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	Questions []Question `db:"-" json:"questions,omitempty"`
}

// Question belongs to a quiz. CorrectAnswer is compared against submissions
// by exact, case-sensitive string equality.
type Question struct {
	ID            string `db:"id" json:"id"`
	QuizID        string `db:"quiz_id" json:"quiz_id"`
	Text          string `db:"text" json:"text"`
	CorrectAnswer string `db:"correct_answer" json:"-"`
	Points        int    `db:"points" json:"points"`
}

// QuizAttempt is one scored pass through a quiz. AttemptNumber is 1-based and
// strictly increasing per (student, quiz); the count of rows for that pair
// never exceeds the quiz's MaxAttempts. A nil CompletedAt means the attempt
// is still in progress.
type QuizAttempt struct {
	ID            string     `db:"id" json:"id"`
	StudentID     string     `db:"student_id" json:"student_id"`
	QuizID        string     `db:"quiz_id" json:"quiz_id"`
	AttemptNumber int        `db:"attempt_number" json:"attempt_number"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Score         int        `db:"score" json:"score"`
	IsPassed      bool       `db:"is_passed" json:"is_passed"`

	Answers []Answer `db:"-" json:"answers,omitempty"`
}

// Answer records one scored response inside an attempt. Immutable once
// written.
type Answer struct {
	ID             string `db:"id" json:"id"`
	QuizAttemptID  string `db:"quiz_attempt_id" json:"quiz_attempt_id"`
	QuestionID     string `db:"question_id" json:"question_id"`
	SelectedAnswer string `db:"selected_answer" json:"selected_answer"`
	IsCorrect      bool   `db:"is_correct" json:"is_correct"`
	PointsEarned   int    `db:"points_earned" json:"points_earned"`
}
