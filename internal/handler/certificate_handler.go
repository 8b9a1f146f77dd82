package handler

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/mohamedredwan17/etalem-api/internal/service"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
	"github.com/mohamedredwan17/etalem-api/pkg/response"
	"github.com/mohamedredwan17/etalem-api/pkg/storage"
)

// CertificateHandler exposes the asynchronous certificate endpoints.
type CertificateHandler struct {
	certificates *service.CertificateService
	store        *storage.LocalStorage
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService, store *storage.LocalStorage) *CertificateHandler {
	return &CertificateHandler{certificates: certificates, store: store}
}

// Request godoc
// @Summary Request certificate generation
// @Tags Certificates
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/certificate [post]
func (h *CertificateHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	ack, err := h.certificates.RequestCertificate(c.Request.Context(), c.Param("id"), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, ack)
}

// Status godoc
// @Summary Poll certificate generation status
// @Tags Certificates
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/certificate/status [get]
func (h *CertificateHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.certificates.PollStatus(c.Request.Context(), c.Param("id"), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a certificate with a signed token
// @Tags Certificates
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /certificates/download/{token} [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	artifactURL, err := h.certificates.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.store.Open(artifactURL)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read certificate"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(artifactURL)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
