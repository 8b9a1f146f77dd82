package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mohamedredwan17/etalem-api/internal/middleware"
	"github.com/mohamedredwan17/etalem-api/internal/service"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
	"github.com/mohamedredwan17/etalem-api/pkg/response"
)

// CourseHandler exposes course content endpoints.
type CourseHandler struct {
	content *service.ContentService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(content *service.ContentService) *CourseHandler {
	return &CourseHandler{content: content}
}

// Content godoc
// @Summary Course content for the current student
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/content [get]
func (h *CourseHandler) Content(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	content, cacheHit, err := h.content.GetCourseContent(c.Request.Context(), c.Param("id"), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, content, nil, meta)
}
