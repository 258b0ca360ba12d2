package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/NirdeshGothania/stackit/internal/domain"
	apperrors "github.com/NirdeshGothania/stackit/internal/platform/errors"
)

func (s *Server) registerQuestionRoutes(api *echo.Group, writeLimiter echo.MiddlewareFunc) {
	questions := api.Group("/questions")
	questions.POST("", s.handleCreateQuestion, writeLimiter)
	questions.GET("/:id", s.handleGetQuestion)
	questions.PUT("/:id", s.handleUpdateQuestion, writeLimiter)
	questions.DELETE("/:id", s.handleDeleteQuestion, writeLimiter)
	questions.POST("/:id/view", s.handleRecordView)
	questions.POST("/:id/vote", s.handleVoteQuestion, writeLimiter, s.idempotent)
	questions.POST("/:id/accept", s.handleAcceptAnswer, writeLimiter, s.idempotent)
	questions.DELETE("/:id/accept", s.handleUnacceptAnswer, writeLimiter, s.idempotent)
	questions.GET("/:id/answers", s.handleListAnswers)
}

func parseIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid " + name).WithField(name, c.Param(name))
	}
	return id, nil
}

type createQuestionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleCreateQuestion(c echo.Context) error {
	var req createQuestionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	q, err := s.content.CreateQuestion(c.Request().Context(), currentUserID(c), req.Title, req.Content, req.Tags)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, newQuestionResponse(q)); err != nil {
		return fmt.Errorf("failed to write question response: %w", err)
	}
	return nil
}

func (s *Server) handleGetQuestion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	q, err := s.content.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	vote, err := s.engine.GetUserVote(ctx, domain.QuestionRef(id), currentUserID(c))
	if err != nil {
		return err
	}

	resp := newQuestionResponse(q)
	resp.UserVote = &vote
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write question response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateQuestion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req createQuestionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	q, err := s.content.UpdateQuestion(c.Request().Context(), id, currentUserID(c), req.Title, req.Content, req.Tags)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newQuestionResponse(q)); err != nil {
		return fmt.Errorf("failed to write question response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteQuestion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	result, err := s.content.DeleteQuestion(c.Request().Context(), id, currentUserID(c))
	if err != nil {
		return err
	}

	resp := cascadeResponse{
		QuestionID:           result.QuestionID,
		AnswersDeleted:       result.AnswersDeleted,
		VotesDeleted:         result.VotesDeleted,
		NotificationsDeleted: result.NotificationsDeleted,
		Partial:              result.Partial,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write delete response: %w", err)
	}
	return nil
}

func (s *Server) handleRecordView(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	views, err := s.content.RecordView(c.Request().Context(), id)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]int{"viewCount": views}); err != nil {
		return fmt.Errorf("failed to write view response: %w", err)
	}
	return nil
}

type voteRequest struct {
	Value *int `json:"value"`
}

func (s *Server) handleVoteQuestion(c echo.Context) error {
	return s.castVote(c, domain.KindQuestion)
}

// castVote is shared by question and answer votes; both address the votable by :id.
func (s *Server) castVote(c echo.Context, kind domain.VotableKind) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Value == nil || !domain.VoteValue(*req.Value).Valid() {
		return domain.ErrInvalidVoteValue
	}

	ref := domain.VotableRef{Kind: kind, ID: id}
	outcome, err := s.engine.CastVote(c.Request().Context(), ref, currentUserID(c), domain.VoteValue(*req.Value))
	if err != nil {
		return err
	}

	resp := voteResponse{
		Action:          outcome.Action,
		VoteCount:       outcome.VoteCount,
		ReputationDelta: outcome.ReputationDelta,
		UserVote:        outcome.UserVote,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write vote response: %w", err)
	}
	return nil
}

type acceptRequest struct {
	AnswerID string `json:"answerId"`
}

func (s *Server) handleAcceptAnswer(c echo.Context) error {
	questionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req acceptRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	answerID, err := uuid.Parse(req.AnswerID)
	if err != nil {
		return apperrors.ValidationError("invalid answerId").WithField("answerId", req.AnswerID)
	}

	result, err := s.engine.AcceptAnswer(c.Request().Context(), questionID, answerID, currentUserID(c))
	if err != nil {
		return err
	}

	resp := acceptResponse{
		Question: newQuestionResponse(result.Question),
		Answer:   newAnswerResponse(result.Answer),
		Applied:  result.Applied,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write accept response: %w", err)
	}
	return nil
}

func (s *Server) handleUnacceptAnswer(c echo.Context) error {
	questionID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	q, err := s.engine.UnacceptAnswer(c.Request().Context(), questionID, currentUserID(c))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newQuestionResponse(q)); err != nil {
		return fmt.Errorf("failed to write question response: %w", err)
	}
	return nil
}

func (s *Server) handleListAnswers(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	answers, err := s.content.ListAnswers(c.Request().Context(), id)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newAnswerResponses(answers)); err != nil {
		return fmt.Errorf("failed to write answers response: %w", err)
	}
	return nil
}
