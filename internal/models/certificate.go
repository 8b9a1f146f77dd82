package models

import "time"

// CertificateJob is a queued request to render one certificate. Each job is
// consumed exactly once by the generation worker.
type CertificateJob struct {
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// CertificateState enumerates the observable lifecycle of a certificate job.
type CertificateState string

const (
	CertificateStatePending   CertificateState = "PENDING"
	CertificateStateCompleted CertificateState = "COMPLETED"
	CertificateStateFailed    CertificateState = "FAILED"
)

// CertificateStatus is the polled outcome of a generation request, keyed by
// enrollment id. It starts PENDING at enqueue time and transitions exactly
// once to COMPLETED or FAILED; it never regresses.
type CertificateStatus struct {
	EnrollmentID      string           `json:"enrollment_id"`
	State             CertificateState `json:"state"`
	CertificateURL    string           `json:"certificate_url,omitempty"`
	CertificateNumber string           `json:"certificate_number,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
