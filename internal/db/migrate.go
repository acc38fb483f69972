package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"vendorica-api/migrations"
)

// OpenSQL abre un *sql.DB sobre el driver stdlib de pgx para goose.
func OpenSQL(ctx context.Context, dsn string) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	sqlDB := stdlib.OpenDB(*connCfg)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return sqlDB, nil
}

// NewMigrationProvider crea un provider goose sobre las migraciones embebidas.
func NewMigrationProvider(sqlDB *sql.DB, opts ...goose.ProviderOption) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.EmbedMigrations, opts...)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

// MigrateUp aplica todas las migraciones pendientes.
func MigrateUp(ctx context.Context, dsn string) ([]*goose.MigrationResult, error) {
	sqlDB, err := OpenSQL(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	provider, err := NewMigrationProvider(sqlDB)
	if err != nil {
		return nil, err
	}
	return provider.Up(ctx)
}
