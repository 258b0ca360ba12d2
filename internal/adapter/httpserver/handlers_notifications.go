package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/NirdeshGothania/stackit/internal/app"
	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Server) registerNotificationRoutes(api *echo.Group, writeLimiter echo.MiddlewareFunc) {
	notifications := api.Group("/notifications")
	notifications.GET("", s.handleListNotifications)
	notifications.GET("/unread-count", s.handleUnreadCount)
	notifications.POST("/mark-all-read", s.handleMarkAllRead, writeLimiter)
	notifications.POST("/:id/read", s.handleMarkRead, writeLimiter)
	notifications.DELETE("/:id", s.handleDeleteNotification, writeLimiter)
	notifications.DELETE("", s.handleDeleteAllNotifications, writeLimiter)
}

// queryInt returns 0 for an absent parameter so the inbox applies its defaults.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, domain.ErrInvalidPagination
	}
	return v, nil
}

type notificationPage struct {
	Notifications []notificationResponse `json:"notifications"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
}

func (s *Server) handleListNotifications(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	notes, err := s.inbox.ListNotifications(c.Request().Context(), currentUserID(c), page, limit)
	if err != nil {
		return err
	}

	resp := notificationPage{
		Notifications: newNotificationResponses(notes),
		Page:          max(page, 1),
		Limit:         limit,
	}
	if limit == 0 {
		resp.Limit = app.DefaultPageSize
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write notifications response: %w", err)
	}
	return nil
}

func (s *Server) handleUnreadCount(c echo.Context) error {
	count, err := s.inbox.UnreadCount(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]int{"count": count}); err != nil {
		return fmt.Errorf("failed to write unread count response: %w", err)
	}
	return nil
}

func (s *Server) handleMarkRead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.inbox.MarkRead(c.Request().Context(), currentUserID(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(c echo.Context) error {
	marked, err := s.inbox.MarkAllRead(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]int{"updated": marked}); err != nil {
		return fmt.Errorf("failed to write mark-all-read response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteNotification(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.inbox.DeleteNotification(c.Request().Context(), currentUserID(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteAllNotifications(c echo.Context) error {
	deleted, err := s.inbox.DeleteAllNotifications(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]int{"deleted": deleted}); err != nil {
		return fmt.Errorf("failed to write delete response: %w", err)
	}
	return nil
}
