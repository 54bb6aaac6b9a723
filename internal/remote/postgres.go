package remote

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/xjournal/internal/dbx"
	pgmigrations "github.com/dmitrijs2005/xjournal/internal/migrations/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore keeps objects in the remote_objects table.
type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx stdlib driver and applies the
// remote_objects migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := runPostgresMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

func runPostgresMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, pgmigrations.Migrations)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// CreateObject inserts payload under name, replacing an earlier upload of
// the same name, and returns the row id.
func (s *PostgresStore) CreateObject(ctx context.Context, name string, payload []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	query := `
		INSERT INTO remote_objects (name, payload)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, name, payload).Scan(&id); err != nil {
		return "", ioError("insert object", err)
	}
	return strconv.FormatInt(id, 10), nil
}
