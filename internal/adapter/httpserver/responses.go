package httpserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Reputation  int       `json:"reputation"`
	JoinedAt    time.Time `json:"joinedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		Reputation:  u.Reputation,
		JoinedAt:    u.JoinedAt,
		LastSeenAt:  u.LastSeenAt,
	}
}

type questionResponse struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"ownerId"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Tags             []string   `json:"tags"`
	VoteCount        int        `json:"voteCount"`
	AnswerCount      int        `json:"answerCount"`
	ViewCount        int        `json:"viewCount"`
	AcceptedAnswerID *uuid.UUID `json:"acceptedAnswerId"`
	IsClosed         bool       `json:"isClosed"`
	Bounty           int        `json:"bounty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	// UserVote is the caller's current vote; it is only set on single-question reads.
	UserVote *domain.VoteValue `json:"userVote,omitempty"`
}

func newQuestionResponse(q *domain.Question) questionResponse {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	return questionResponse{
		ID:               q.ID,
		OwnerID:          q.OwnerID,
		Title:            q.Title,
		Content:          q.Content,
		Tags:             tags,
		VoteCount:        q.VoteCount,
		AnswerCount:      q.AnswerCount,
		ViewCount:        q.ViewCount,
		AcceptedAnswerID: q.AcceptedAnswerID,
		IsClosed:         q.IsClosed,
		Bounty:           q.Bounty,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

type answerResponse struct {
	ID         uuid.UUID  `json:"id"`
	QuestionID uuid.UUID  `json:"questionId"`
	OwnerID    uuid.UUID  `json:"ownerId"`
	Content    string     `json:"content"`
	VoteCount  int        `json:"voteCount"`
	IsAccepted bool       `json:"isAccepted"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	AcceptedBy *uuid.UUID `json:"acceptedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func newAnswerResponse(a *domain.Answer) answerResponse {
	return answerResponse{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		OwnerID:    a.OwnerID,
		Content:    a.Content,
		VoteCount:  a.VoteCount,
		IsAccepted: a.IsAccepted,
		AcceptedAt: a.AcceptedAt,
		AcceptedBy: a.AcceptedBy,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func newAnswerResponses(answers []*domain.Answer) []answerResponse {
	out := make([]answerResponse, 0, len(answers))
	for _, a := range answers {
		out = append(out, newAnswerResponse(a))
	}
	return out
}

type notificationResponse struct {
	ID         uuid.UUID               `json:"id"`
	Kind       domain.NotificationKind `json:"type"`
	FromUserID uuid.UUID               `json:"fromUserId"`
	QuestionID uuid.UUID               `json:"questionId"`
	AnswerID   *uuid.UUID              `json:"answerId,omitempty"`
	Content    string                  `json:"content"`
	IsRead     bool                    `json:"isRead"`
	ReadAt     *time.Time              `json:"readAt,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
}

func newNotificationResponses(notes []*domain.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, notificationResponse{
			ID:         n.ID,
			Kind:       n.Kind,
			FromUserID: n.FromUserID,
			QuestionID: n.QuestionID,
			AnswerID:   n.AnswerID,
			Content:    n.Content,
			IsRead:     n.IsRead,
			ReadAt:     n.ReadAt,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}

type voteResponse struct {
	Action          domain.VoteAction `json:"action"`
	VoteCount       int               `json:"voteCount"`
	ReputationDelta int               `json:"reputationDelta"`
	UserVote        domain.VoteValue  `json:"userVote"`
}

type acceptResponse struct {
	Question questionResponse `json:"question"`
	Answer   answerResponse   `json:"answer"`
	Applied  bool             `json:"applied"`
}

type cascadeResponse struct {
	QuestionID           uuid.UUID `json:"questionId"`
	AnswersDeleted       int       `json:"answersDeleted"`
	VotesDeleted         int       `json:"votesDeleted"`
	NotificationsDeleted int       `json:"notificationsDeleted"`
	Partial              bool      `json:"partial"`
}
