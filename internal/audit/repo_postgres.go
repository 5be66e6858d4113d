package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo appends to provider_audit_events. Expected schema:
//
//	CREATE TABLE provider_audit_events (
//	  id            uuid PRIMARY KEY,
//	  workspace_id  text NOT NULL,
//	  type          text NOT NULL,
//	  actor_user_id text,
//	  actor_role    text,
//	  ip_address    text,
//	  request_id    text,
//	  provider_ref  text,
//	  outcome       text NOT NULL,
//	  metadata      jsonb,
//	  created_at    timestamptz NOT NULL
//	);
//
// Grant INSERT only; the table is append-only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) (*PostgresRepo, error) {
	if db == nil {
		return nil, errors.New("audit: db is nil")
	}
	return &PostgresRepo{db: db}, nil
}

const insertEvent = `
INSERT INTO provider_audit_events
  (id, workspace_id, type, actor_user_id, actor_role, ip_address, request_id, provider_ref, outcome, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, '')::jsonb, $11)
`

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, insertEvent,
		e.ID,
		e.WorkspaceID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.RequestID,
		e.ProviderRef,
		e.Outcome,
		e.Metadata,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}
