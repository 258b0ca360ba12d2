package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/NirdeshGothania/stackit/internal/domain"
	apperrors "github.com/NirdeshGothania/stackit/internal/platform/errors"
)

func (s *Server) registerAnswerRoutes(api *echo.Group, writeLimiter echo.MiddlewareFunc) {
	answers := api.Group("/answers")
	answers.POST("", s.handleCreateAnswer, writeLimiter)
	answers.PUT("/:id", s.handleUpdateAnswer, writeLimiter)
	answers.DELETE("/:id", s.handleDeleteAnswer, writeLimiter)
	answers.POST("/:id/vote", s.handleVoteAnswer, writeLimiter, s.idempotent)
	answers.POST("/:id/accept", s.handleToggleAccept, writeLimiter, s.idempotent)
}

type createAnswerRequest struct {
	QuestionID string `json:"questionId"`
	Content    string `json:"content"`
}

func (s *Server) handleCreateAnswer(c echo.Context) error {
	var req createAnswerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return apperrors.ValidationError("invalid questionId").WithField("questionId", req.QuestionID)
	}

	a, err := s.content.CreateAnswer(c.Request().Context(), questionID, currentUserID(c), req.Content)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, newAnswerResponse(a)); err != nil {
		return fmt.Errorf("failed to write answer response: %w", err)
	}
	return nil
}

type updateAnswerRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateAnswer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateAnswerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	a, err := s.content.UpdateAnswer(c.Request().Context(), id, currentUserID(c), req.Content)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newAnswerResponse(a)); err != nil {
		return fmt.Errorf("failed to write answer response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteAnswer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.content.DeleteAnswer(c.Request().Context(), id, currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleVoteAnswer(c echo.Context) error {
	return s.castVote(c, domain.KindAnswer)
}

// handleToggleAccept addresses acceptance by answer: an accepted answer is unaccepted,
// any other answer is accepted. Unaccepting is keyed by the answer so a stale toggle
// never clears a different answer's acceptance.
func (s *Server) handleToggleAccept(c echo.Context) error {
	answerID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	a, err := s.content.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}

	var resp acceptResponse
	if a.IsAccepted {
		q, err := s.engine.UnacceptAnswerByID(ctx, a.QuestionID, a.ID, currentUserID(c))
		if err != nil {
			return err
		}
		a.IsAccepted, a.AcceptedAt, a.AcceptedBy = false, nil, nil
		resp = acceptResponse{Question: newQuestionResponse(q), Answer: newAnswerResponse(a), Applied: true}
	} else {
		result, err := s.engine.AcceptAnswer(ctx, a.QuestionID, a.ID, currentUserID(c))
		if err != nil {
			return err
		}
		resp = acceptResponse{
			Question: newQuestionResponse(result.Question),
			Answer:   newAnswerResponse(result.Answer),
			Applied:  result.Applied,
		}
	}

	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write accept response: %w", err)
	}
	return nil
}
