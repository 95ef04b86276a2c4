package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations. Migrations are embedded in
// the binary, so a deployed scheduler can bring its own schema up to date on
// start.
func (c *Connection) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(c.Pool())
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}
	return nil
}
