package db

import (
	"context"
	"embed"
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver used by goose
	"github.com/pressly/goose/v3"
)

// Migrations holds the embedded goose SQL migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"

// MigrateTo applies migrations up to version, or all of them when version is
// "latest".
func MigrateTo(ctx context.Context, connectionURL string, version string) (err error) {
	conn, err := goose.OpenDBWithDriver("pgx", connectionURL)
	if err != nil {
		return fmt.Errorf("failed to connect with database: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close database connection: %w", closeErr)
		}
	}()

	goose.SetBaseFS(Migrations)
	if err = goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if version == "" || version == "latest" {
		return goose.UpContext(ctx, conn, MigrationsDir)
	}
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse version %q: %w", version, err)
	}
	return goose.UpToContext(ctx, conn, MigrationsDir, target)
}
