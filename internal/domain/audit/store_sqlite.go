package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hrreview/internal/platform/sqlite"
	"hrreview/internal/requestctx"
)

type SQLiteService struct {
	DB *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteService {
	return &SQLiteService{DB: db}
}

func (s *SQLiteService) Record(ctx context.Context, entry Entry) error {
	beforeJSON, afterJSON, err := marshalPayloads(entry.Before, entry.After)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
    INSERT INTO audit_events (id, actor_id, action, entity_type, entity_id, before_json, after_json, request_id, ip, created_at)
    VALUES (?,?,?,?,?,?,?,?,?,?)
  `, uuid.NewString(), entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		nullJSON(beforeJSON), nullJSON(afterJSON),
		requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx), sqlite.FormatTime(time.Now()))
	return err
}

func (s *SQLiteService) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter, questionPlaceholder)
	var total int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *SQLiteService) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery("SELECT id, actor_id, action, entity_type, entity_id, request_id, ip, created_at, before_json, after_json", filter, questionPlaceholder)
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		var createdAt string
		var before, after sql.NullString
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &createdAt, &before, &after); err != nil {
			return nil, err
		}
		if evt.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
			return nil, err
		}
		if includeDetails {
			if before.Valid {
				evt.Before = []byte(before.String)
			}
			if after.Valid {
				evt.After = []byte(after.String)
			}
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func nullJSON(payload []byte) sql.NullString {
	if payload == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(payload), Valid: true}
}
