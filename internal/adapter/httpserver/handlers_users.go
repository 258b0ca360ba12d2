package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NirdeshGothania/stackit/internal/app"
	"github.com/NirdeshGothania/stackit/internal/domain"
	apperrors "github.com/NirdeshGothania/stackit/internal/platform/errors"
)

func (s *Server) registerUserRoutes(api *echo.Group) {
	users := api.Group("/users")
	users.GET("/:id", s.handleGetProfile)
	users.GET("/:id/questions", s.handleListUserQuestions)
	users.GET("/:id/answers", s.handleListUserAnswers)
}

type profileStats struct {
	QuestionCount int `json:"questionCount"`
	AnswerCount   int `json:"answerCount"`
	TotalVotes    int `json:"totalVotes"`
}

type recentActivity struct {
	Questions []questionResponse `json:"questions"`
	Answers   []answerResponse   `json:"answers"`
}

type profileResponse struct {
	User           userResponse   `json:"user"`
	Stats          profileStats   `json:"stats"`
	RecentActivity recentActivity `json:"recentActivity"`
}

func newQuestionResponses(questions []*domain.Question) []questionResponse {
	out := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, newQuestionResponse(q))
	}
	return out
}

func (s *Server) handleGetProfile(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	p, err := s.content.GetProfile(c.Request().Context(), id)
	if err != nil {
		return err
	}

	user := newUserResponse(p.User)
	user.Email = "" // profiles are public
	resp := profileResponse{
		User: user,
		Stats: profileStats{
			QuestionCount: p.QuestionCount,
			AnswerCount:   p.AnswerCount,
			TotalVotes:    p.TotalVotes(),
		},
		RecentActivity: recentActivity{
			Questions: newQuestionResponses(p.RecentQuestions),
			Answers:   newAnswerResponses(p.RecentAnswers),
		},
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write profile response: %w", err)
	}
	return nil
}

type userQuestionsPage struct {
	Questions []questionResponse `json:"questions"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

type userAnswersPage struct {
	Answers []answerResponse `json:"answers"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

// pageParams reads page and limit, reporting the sizes the service falls back to.
func pageParams(c echo.Context) (page, limit, shownPage, shownLimit int, err error) {
	if page, err = queryInt(c, "page"); err != nil {
		return 0, 0, 0, 0, err
	}
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, 0, 0, err
	}
	shownLimit = limit
	if shownLimit == 0 {
		shownLimit = app.ProfilePageSize
	}
	return page, limit, max(page, 1), shownLimit, nil
}

func (s *Server) handleListUserQuestions(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	page, limit, shownPage, shownLimit, err := pageParams(c)
	if err != nil {
		return err
	}

	questions, err := s.content.ListUserQuestions(c.Request().Context(), id, page, limit)
	if err != nil {
		return err
	}

	resp := userQuestionsPage{Questions: newQuestionResponses(questions), Page: shownPage, Limit: shownLimit}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write questions response: %w", err)
	}
	return nil
}

func (s *Server) handleListUserAnswers(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	page, limit, shownPage, shownLimit, err := pageParams(c)
	if err != nil {
		return err
	}

	answers, err := s.content.ListUserAnswers(c.Request().Context(), id, page, limit)
	if err != nil {
		return err
	}

	resp := userAnswersPage{Answers: newAnswerResponses(answers), Page: shownPage, Limit: shownLimit}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write answers response: %w", err)
	}
	return nil
}

func (s *Server) handleTouchLastSeen(c echo.Context) error {
	if err := s.content.TouchLastSeen(c.Request().Context(), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type pushTokenRequest struct {
	PushToken string `json:"pushToken"`
}

func (s *Server) handleSetPushToken(c echo.Context) error {
	var req pushTokenRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.content.SetPushToken(c.Request().Context(), currentUserID(c), req.PushToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
