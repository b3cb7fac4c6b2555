package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbtriage/backend/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	key         TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	project_key TEXT NOT NULL,
	url         TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS publishes (
	id            BIGSERIAL PRIMARY KEY,
	ticket_key    TEXT NOT NULL,
	project_key   TEXT NOT NULL,
	success       BOOLEAN NOT NULL,
	strategy_used TEXT NOT NULL DEFAULT '',
	article_url   TEXT NOT NULL DEFAULT '',
	page_id       TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS publishes_created_at_idx ON publishes (created_at DESC);
`

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}

// RecordTicket keeps the first record for a key; tickets are created once.
func (s *Store) RecordTicket(ctx context.Context, projectKey string, ref models.TicketRef) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO tickets (key, id, project_key, url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`, ref.Key, ref.ID, projectKey, ref.URL)
	return err
}

func (s *Store) RecordPublish(ctx context.Context, rec models.PublishRecord) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO publishes (ticket_key, project_key, success, strategy_used, article_url, page_id, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, rec.TicketKey, rec.ProjectKey, rec.Success, rec.StrategyUsed, rec.ArticleURL, rec.PageID, rec.Message).Scan(&id)
	return id, err
}

func (s *Store) ListPublishes(ctx context.Context, limit int) ([]models.PublishRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_key, project_key, success, strategy_used, article_url, page_id, message, created_at
		FROM publishes
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PublishRecord{}
	for rows.Next() {
		var r models.PublishRecord
		if err := rows.Scan(&r.ID, &r.TicketKey, &r.ProjectKey, &r.Success, &r.StrategyUsed, &r.ArticleURL, &r.PageID, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
