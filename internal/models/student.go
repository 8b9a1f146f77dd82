package models

// Student is the slice of the identity record this service reads. The auth
// subsystem owns the full record.
type Student struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}
