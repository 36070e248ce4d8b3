// Package conn manages the Postgres pool backing the trade journal mirror.
package conn

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yanun0323/errors"
)

// Client wraps a PostgreSQL connection pool.
type Client struct {
	db *gorm.DB
}

// Open connects using a Postgres DSN (key=value form or a postgres:// URL).
// An empty dsn is refused so callers can gate the journal mirror on
// configuration alone.
func Open(dsn string, config *gorm.Config) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("empty postgres dsn")
	}
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return &Client{db: db}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
