package chat

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) SaveMessage(ctx context.Context, msg Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, from_bot, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.SessionID, msg.FromBot, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *PgRepository) ListSession(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, from_bot, text, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.FromBot, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
