package chat

import (
	"context"
	"errors"
)

var ErrMessageNotFound = errors.New("message not found")

type (
	// Repository persists classroom messages for history queries. Live
	// delivery never depends on it.
	Repository interface {
		SaveMessage(ctx context.Context, msg Message) (Message, error)
		// QueryCourseMessages returns a course's messages, oldest first.
		// MessageFilter.Private selects private messages involving
		// MessageFilter.UserID instead of the public ones.
		QueryCourseMessages(ctx context.Context, courseID string, filter MessageFilter) ([]Message, error)
	}

	// Service is the chat history layer over the Repository.
	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Save(ctx context.Context, msg Message) (Message, error) {
	return svc.repo.SaveMessage(ctx, msg)
}

func (svc *Service) History(ctx context.Context, courseID string, filter MessageFilter) ([]Message, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return svc.repo.QueryCourseMessages(ctx, courseID, filter)
}
