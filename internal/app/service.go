package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// ContentStore is the part of the ledger the content lifecycle needs.
type ContentStore interface {
	domain.UserRepository
	domain.QuestionRepository
	domain.AnswerRepository
	DeleteNotificationsForQuestion(ctx context.Context, questionID uuid.UUID) (int, error)
}

// Service orchestrates users, questions and answers around the Engine and Notifier.
type Service struct {
	store    ContentStore
	notifier *Notifier
	clock    clockwork.Clock
}

func NewService(store ContentStore, notifier *Notifier, clock clockwork.Clock) *Service {
	return &Service{store: store, notifier: notifier, clock: clock}
}

// EnsureUser creates the user on first sign-in (reputation starts at 1) and refreshes the
// profile on later sign-ins.
func (s *Service) EnsureUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	identity.ExternalID = strings.TrimSpace(identity.ExternalID)
	if identity.ExternalID == "" {
		return nil, domain.ErrInvalidIdentity
	}
	return s.store.UpsertUser(ctx, identity, s.clock.Now())
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) CreateQuestion(ctx context.Context, ownerID uuid.UUID, title, content string, tags []string) (*domain.Question, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, domain.ErrInvalidContent
	}

	now := s.clock.Now()
	q := &domain.Question{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		Tags:      normalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	return s.store.GetQuestion(ctx, id)
}

func (s *Service) RecordView(ctx context.Context, id uuid.UUID) (int, error) {
	return s.store.IncrementViewCount(ctx, id)
}

// CreateAnswer stores the answer, bumps the question's answer count and records the owner's
// notification in one unit. Only the push runs after commit.
func (s *Service) CreateAnswer(ctx context.Context, questionID, ownerID uuid.UUID, content string) (*domain.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrInvalidContent
	}

	ctx, span := tracer.Start(ctx, "Service.CreateAnswer", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
	))
	defer span.End()

	now := s.clock.Now()
	a := &domain.Answer{
		ID:         uuid.New(),
		QuestionID: questionID,
		OwnerID:    ownerID,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, note, err := s.store.CreateAnswer(ctx, a, s.notifier.answerNotice(a.ID, ownerID))
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	if note != nil {
		s.notifier.published(ctx, note)
	}
	return a, nil
}

func (s *Service) GetAnswer(ctx context.Context, id uuid.UUID) (*domain.Answer, error) {
	return s.store.GetAnswer(ctx, id)
}

func (s *Service) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*domain.Answer, error) {
	return s.store.ListAnswers(ctx, questionID)
}

// DeleteAnswer removes an answer owned by actingUserID. If it was the accepted answer the
// question returns to having no accepted answer.
func (s *Service) DeleteAnswer(ctx context.Context, answerID, actingUserID uuid.UUID) error {
	guard := func(_ *domain.Question, a *domain.Answer) error {
		if a.OwnerID != actingUserID {
			return domain.ErrNotOwner
		}
		return nil
	}

	deleted, err := s.store.DeleteAnswer(ctx, answerID, guard)
	if err != nil {
		return fmt.Errorf("failed to delete answer %s: %w", answerID, err)
	}
	slog.InfoContext(ctx, "Answer deleted",
		"answer_id", answerID,
		"question_id", deleted.QuestionID,
		"was_accepted", deleted.IsAccepted,
		"vote_count", deleted.VoteCount)
	return nil
}

// DeleteQuestion removes the question with its answers and votes, then its notifications.
// The second step is best-effort: on failure the result is marked Partial and the leftover
// notifications are found by the reconciler through their question id.
func (s *Service) DeleteQuestion(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.CascadeResult, error) {
	ctx, span := tracer.Start(ctx, "Service.DeleteQuestion", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
	))
	defer span.End()

	guard := func(q *domain.Question) error {
		if q.OwnerID != actingUserID {
			return domain.ErrNotOwner
		}
		return nil
	}

	result, err := s.store.DeleteQuestion(ctx, questionID, guard)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to delete question %s: %w", questionID, err)
	}

	deleted, err := s.store.DeleteNotificationsForQuestion(ctx, questionID)
	if err != nil {
		result.Partial = true
		span.SetAttributes(attribute.Bool("cascade.partial", true))
		slog.ErrorContext(ctx, "Question deleted but its notifications remain",
			"question_id", questionID,
			"error", err)
	}
	result.NotificationsDeleted = deleted

	slog.InfoContext(ctx, "Question deleted",
		"question_id", questionID,
		"answers_deleted", result.AnswersDeleted,
		"votes_deleted", result.VotesDeleted,
		"notifications_deleted", result.NotificationsDeleted,
		"partial", result.Partial)
	return result, nil
}

// UpdateQuestion lets the owner change title, content and tags. Votes, counters and
// acceptance are untouched.
func (s *Service) UpdateQuestion(ctx context.Context, questionID, actingUserID uuid.UUID, title, content string, tags []string) (*domain.Question, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, domain.ErrInvalidContent
	}

	edit := func(q *domain.Question) error {
		if q.OwnerID != actingUserID {
			return domain.ErrNotOwner
		}
		q.Title = title
		q.Content = content
		q.Tags = normalizeTags(tags)
		return nil
	}

	q, err := s.store.UpdateQuestion(ctx, questionID, s.clock.Now(), edit)
	if err != nil {
		return nil, fmt.Errorf("failed to update question %s: %w", questionID, err)
	}
	return q, nil
}

func (s *Service) UpdateAnswer(ctx context.Context, answerID, actingUserID uuid.UUID, content string) (*domain.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrInvalidContent
	}

	edit := func(a *domain.Answer) error {
		if a.OwnerID != actingUserID {
			return domain.ErrNotOwner
		}
		a.Content = content
		return nil
	}

	a, err := s.store.UpdateAnswer(ctx, answerID, s.clock.Now(), edit)
	if err != nil {
		return nil, fmt.Errorf("failed to update answer %s: %w", answerID, err)
	}
	return a, nil
}

// GetProfile returns the user's public profile with their most recent questions and answers.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &domain.Profile{User: u}

	if p.QuestionCount, err = s.store.CountQuestionsByOwner(ctx, userID); err != nil {
		return nil, err
	}
	if p.AnswerCount, err = s.store.CountAnswersByOwner(ctx, userID); err != nil {
		return nil, err
	}
	if p.RecentQuestions, err = s.store.ListQuestionsByOwner(ctx, userID, 0, ProfilePageSize); err != nil {
		return nil, err
	}
	if p.RecentAnswers, err = s.store.ListAnswersByOwner(ctx, userID, 0, ProfilePageSize); err != nil {
		return nil, err
	}
	return p, nil
}

// ListUserQuestions pages through a user's questions, newest first. Zero page or limit fall
// back to the defaults.
func (s *Service) ListUserQuestions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Question, error) {
	offset, limit, err := profilePage(page, limit)
	if err != nil {
		return nil, err
	}
	return s.store.ListQuestionsByOwner(ctx, userID, offset, limit)
}

func (s *Service) ListUserAnswers(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Answer, error) {
	offset, limit, err := profilePage(page, limit)
	if err != nil {
		return nil, err
	}
	return s.store.ListAnswersByOwner(ctx, userID, offset, limit)
}

func profilePage(page, limit int) (offset, size int, err error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = ProfilePageSize
	}
	offset, err = pageOffset(page, limit, MaxPageSize)
	return offset, limit, err
}

func (s *Service) TouchLastSeen(ctx context.Context, userID uuid.UUID) error {
	return s.store.TouchLastSeen(ctx, userID, s.clock.Now())
}

// SetPushToken replaces the token push transports deliver to.
func (s *Service) SetPushToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidPushToken
	}
	return s.store.SetPushToken(ctx, userID, token)
}
