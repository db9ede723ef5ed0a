package store

import (
	"context"
	"fmt"

	"nexus-chat/internal/chat"
	"nexus-chat/internal/db"
)

// ExchangeLog stores settled backend exchanges in PostgreSQL
type ExchangeLog struct {
	db *db.DB
}

// NewExchangeLog creates a new exchange log
func NewExchangeLog(database *db.DB) *ExchangeLog {
	return &ExchangeLog{db: database}
}

// ForSession returns a chat.Recorder that tags exchanges with sessionID
func (l *ExchangeLog) ForSession(sessionID string) chat.Recorder {
	return sessionRecorder{log: l, sessionID: sessionID}
}

// Record inserts one exchange
func (l *ExchangeLog) Record(ctx context.Context, sessionID string, ex chat.Exchange) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	query := `
		INSERT INTO chat_exchanges
			(session_id, query, used_context, result_count, best_score, failed, error_text, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := l.db.ExecContext(ctx, query,
		sessionID,
		ex.Query,
		ex.UsedContext,
		ex.ResultCount,
		ex.BestScore,
		ex.Failed,
		ex.ErrorText,
		ex.StartedAt,
		ex.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}

	return nil
}

type sessionRecorder struct {
	log       *ExchangeLog
	sessionID string
}

func (r sessionRecorder) Record(ctx context.Context, ex chat.Exchange) error {
	return r.log.Record(ctx, r.sessionID, ex)
}
