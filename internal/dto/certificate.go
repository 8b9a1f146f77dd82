package dto

import (
	"time"

	"github.com/mohamedredwan17/etalem-api/internal/models"
)

// CertificateRequestResponse acknowledges an accepted generation request.
type CertificateRequestResponse struct {
	EnrollmentID string                  `json:"enrollment_id"`
	State        models.CertificateState `json:"state"`
}

// CertificateStatusResponse is the polled view of a generation request,
// optionally carrying a signed download link once the artifact exists.
type CertificateStatusResponse struct {
	EnrollmentID      string                  `json:"enrollment_id"`
	State             models.CertificateState `json:"state"`
	CertificateURL    string                  `json:"certificate_url,omitempty"`
	CertificateNumber string                  `json:"certificate_number,omitempty"`
	DownloadToken     string                  `json:"download_token,omitempty"`
	DownloadExpiresAt *time.Time              `json:"download_expires_at,omitempty"`
}

// ProgressResponse reports the updated completion percentage after a lesson
// completion call.
type ProgressResponse struct {
	EnrollmentID string `json:"enrollment_id"`
	Progress     int    `json:"progress"`
	IsCompleted  bool   `json:"is_completed"`
}
