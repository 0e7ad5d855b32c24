package persistent

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/andrsolo/Request-Relay/pkg/postgres"
)

//go:embed migrations/schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent DDL at startup.
func EnsureSchema(ctx context.Context, pg *postgres.Postgres) error {
	_, err := pg.Pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("persistent - EnsureSchema - pg.Pool.Exec: %w", err)
	}

	return nil
}
