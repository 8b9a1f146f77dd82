package dto

// EnrollRequest opens an enrollment for the authenticated student.
type EnrollRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}
