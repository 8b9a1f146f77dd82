package dto

// ContentItemLesson and ContentItemQuiz tag entries of the merged course
// content listing.
const (
	ContentItemLesson = "lesson"
	ContentItemQuiz   = "quiz"
)

// CourseContentItem is one entry of the merged, order-sorted lesson and quiz
// listing, flagged with the requesting student's state.
type CourseContentItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Order        int    `json:"order"`
	Type         string `json:"type"`
	Duration     int    `json:"duration,omitempty"`
	TimeLimit    int    `json:"time_limit,omitempty"`
	PassingScore int    `json:"passing_score,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	IsCompleted  bool   `json:"is_completed,omitempty"`
	IsPassed     bool   `json:"is_passed,omitempty"`
}

// CourseContentResponse is the flattened per-student view of a course.
type CourseContentResponse struct {
	CourseID    string              `json:"course_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Progress    int                 `json:"progress"`
	IsCompleted bool                `json:"is_completed"`
	Items       []CourseContentItem `json:"items"`
}
