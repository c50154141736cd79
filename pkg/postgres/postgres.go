package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Config is read with the POSTGRES_ prefix. An empty DSN disables the
// business-data lookups.
type Config struct {
	DSN             string `split_words:"true"`
	MaxOpenConns    int    `split_words:"true" default:"10"`
	MaxIdleConns    int    `split_words:"true" default:"5"`
	ConnMaxLifetime int    `split_words:"true" default:"300"`
	PingTimeout     int    `split_words:"true" default:"5"`
}

func (c *Config) Enabled() bool {
	return c.DSN != ""
}

func (c *Config) New(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetime) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(c.PingTimeout)*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}
