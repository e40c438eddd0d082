// Package storage bootstraps the backing relational store: a bun.DB over
// sqlite that serves as the session factory for units of work and as the
// session for autonomous reads.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	"github.com/homekeep/homekeep/config"
)

// Open connects to the configured store, verifies the connection and
// returns the bun handle. Closing the returned DB releases the pool; the
// composition root registers that as a container cleanup.
func Open(ctx context.Context, cfg config.Database, log *zap.Logger) (*bun.DB, error) {
	if cfg.Driver != "sqlite3" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqldb, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxIdleTime(30 * time.Minute)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to database",
		zap.String("driver", cfg.Driver),
		zap.String("dsn", cfg.DSN),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)
	return db, nil
}

// EnsureSchema creates the tables for the given models when they do not
// exist yet. Models are bun-annotated struct pointers, e.g.
// (*ShoppingItem)(nil).
func EnsureSchema(ctx context.Context, db *bun.DB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	return nil
}
