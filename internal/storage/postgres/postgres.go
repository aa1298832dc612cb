package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/princekumarofficial/course-media-service/internal/config"
	"github.com/princekumarofficial/course-media-service/internal/storage"
)

// uniqueViolation is the SQLSTATE Postgres reports for duplicate keys
const uniqueViolation = "23505"

var _ storage.Storage = (*Postgres)(nil)

type Postgres struct {
	Db *sql.DB
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func ConnString(cfg config.PQSQL) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	return Open(ConnString(cfg.PGSQL))
}

// Open connects with a raw connection string and creates missing tables
func Open(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("Connected to Postgres database")

	return pg, nil
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS media_records (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL DEFAULT '',
			media_type VARCHAR(16) NOT NULL CHECK (media_type IN ('VIDEO', 'AUDIO', 'DOCUMENT')),
			declared_size_bytes BIGINT NOT NULL CHECK (declared_size_bytes > 0),
			actual_size_bytes BIGINT NOT NULL DEFAULT 0,
			original_filename VARCHAR(255) NOT NULL,
			storage_key TEXT NOT NULL UNIQUE,
			status VARCHAR(16) NOT NULL CHECK (status IN ('UPLOADING', 'COMPLETED', 'FAILED')),
			uploader_id VARCHAR(64) NOT NULL,
			upload_time TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_access_time TIMESTAMPTZ
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_media_records_tenant ON media_records (tenant_id);`,
		`CREATE INDEX IF NOT EXISTS idx_media_records_status_time ON media_records (status, upload_time);`,
		`
		CREATE TABLE IF NOT EXISTS storage_quotas (
			tenant_id VARCHAR(64) NOT NULL,
			quota_class VARCHAR(16) NOT NULL CHECK (quota_class IN ('VIDEO', 'DOCUMENT', 'TOTAL')),
			total_bytes BIGINT NOT NULL CHECK (total_bytes >= 0),
			used_bytes BIGINT NOT NULL DEFAULT 0 CHECK (used_bytes >= 0),
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (tenant_id, quota_class)
		);
		`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// WithTx runs fn in a transaction. A nested call joins the outer transaction.
func (p *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := p.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("Failed to roll back transaction", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (p *Postgres) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return p.Db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
