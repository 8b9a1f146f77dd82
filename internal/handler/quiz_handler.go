package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohamedredwan17/etalem-api/internal/dto"
	"github.com/mohamedredwan17/etalem-api/internal/service"
	appErrors "github.com/mohamedredwan17/etalem-api/pkg/errors"
	"github.com/mohamedredwan17/etalem-api/pkg/response"
)

// QuizHandler exposes quiz attempt endpoints.
type QuizHandler struct {
	attempts *service.QuizAttemptService
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(attempts *service.QuizAttemptService) *QuizHandler {
	return &QuizHandler{attempts: attempts}
}

// StartAttempt godoc
// @Summary Start a quiz attempt
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id}/attempts [post]
func (h *QuizHandler) StartAttempt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attempt, err := h.attempts.StartAttempt(c.Request.Context(), c.Param("id"), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

// SubmitAttempt godoc
// @Summary Submit answers for an attempt
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body dto.SubmitAttemptRequest true "Answers payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attempts/{id}/submit [post]
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attempt, err := h.attempts.SubmitAttempt(c.Request.Context(), c.Param("id"), claims.StudentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempt, nil)
}

// ListAttempts godoc
// @Summary Attempt history for a quiz
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id}/attempts [get]
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	attempts, err := h.attempts.ListAttempts(c.Request.Context(), c.Param("id"), claims.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}
