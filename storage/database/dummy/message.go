package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/chat"
)

type messageRepository struct {
	db *messageTable
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) chat.Repository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) SaveMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg.ID = uuid.New().String()
	repo.db.table[msg.ID] = &msg
	repo.db.order = append(repo.db.order, msg.ID)
	return msg, nil
}

func (repo *messageRepository) QueryCourseMessages(ctx context.Context, courseID string, filter chat.MessageFilter) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var msgs []chat.Message
	for _, id := range repo.db.order {
		msg := repo.db.table[id]
		if msg.CourseID != courseID {
			continue
		}
		if filter.Private {
			if !msg.IsPrivate || (msg.SenderID != filter.UserID && msg.RecipientID != filter.UserID) {
				continue
			}
		} else if msg.IsPrivate {
			continue
		}
		msgs = append(msgs, *msg)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(msgs) {
			return nil, nil
		}
		msgs = msgs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(msgs) {
		msgs = msgs[:filter.Limit]
	}
	return msgs, nil
}
