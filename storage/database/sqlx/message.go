package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/chat"
)

type dbMessage struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	SenderID    null.String `db:"sender_id"`
	RecipientID null.String `db:"recipient_id"`
	Content     string      `db:"content"`
	IsPrivate   null.Bool   `db:"is_private"`
	CreatedAt   null.Time   `db:"created_at"`
}

func (m dbMessage) unpack() chat.Message {
	return chat.Message{
		ID:          m.ID,
		CourseID:    m.CourseID,
		SenderID:    m.SenderID.String,
		RecipientID: m.RecipientID.String,
		Content:     m.Content,
		IsPrivate:   m.IsPrivate.Bool,
		CreatedAt:   m.CreatedAt.Time,
	}
}

type messageRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sql.DB) *messageRepository {
	return &messageRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo messageRepository) SaveMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	msg.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO message (id, course_id, sender_id, recipient_id, content, is_private, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.CourseID, null.NewString(msg.SenderID, msg.SenderID != ""),
		null.NewString(msg.RecipientID, msg.RecipientID != ""), msg.Content, msg.IsPrivate, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) QueryCourseMessages(ctx context.Context, courseID string, filter chat.MessageFilter) ([]chat.Message, error) {
	q := `SELECT * FROM message WHERE course_id = ?`
	args := []interface{}{courseID}

	if filter.Private {
		q += ` AND is_private AND (sender_id = ? OR recipient_id = ?)`
		args = append(args, filter.UserID, filter.UserID)
	} else {
		q += ` AND NOT is_private`
	}
	q += ` ORDER BY created_at`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		q += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	var rows []dbMessage
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.unpack())
	}
	return msgs, nil
}
