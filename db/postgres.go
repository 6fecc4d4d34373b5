// Package db wraps the PostgreSQL connection which feeds change
// notifications and resource queries.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Notification is a change event received on a LISTEN channel
type Notification struct {
	Channel string
	Payload string
}

// Conn is a single PostgreSQL connection.
// It is not safe for concurrent use; the notification loop owns it.
type Conn struct {
	conn *pgx.Conn
}

// Connect opens a connection and applies the session time zone
func Connect(ctx context.Context, url, timeZone string) (*Conn, error) {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if timeZone != "" {
		if _, err := conn.Exec(ctx, "SELECT set_config('TimeZone', $1, false)", timeZone); err != nil {
			conn.Close(ctx)
			return nil, fmt.Errorf("failed to set time zone %q: %w", timeZone, err)
		}
	}

	log.Info().
		Str("host", conn.Config().Host).
		Str("database", conn.Config().Database).
		Str("time_zone", timeZone).
		Msg("Connected to database")

	return &Conn{conn: conn}, nil
}

// ListenStatement returns the LISTEN statement for a channel
func ListenStatement(channel string) string {
	return "LISTEN " + pgx.Identifier{channel}.Sanitize()
}

// Listen subscribes to every channel
func (c *Conn) Listen(ctx context.Context, channels []string) error {
	for _, channel := range channels {
		if _, err := c.conn.Exec(ctx, ListenStatement(channel)); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
	}
	log.Info().Strs("channels", channels).Msg("Listening for notifications")
	return nil
}

// Poll waits up to window for the next notification.
// ok is false when the window elapsed without one.
func (c *Conn) Poll(ctx context.Context, window time.Duration) (n Notification, ok bool, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	pn, err := c.conn.WaitForNotification(waitCtx)
	if err != nil {
		if ctx.Err() == nil && (pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded)) {
			return n, false, nil
		}
		return n, false, fmt.Errorf("failed to wait for notification: %w", err)
	}
	return Notification{Channel: pn.Channel, Payload: pn.Payload}, true, nil
}

// QueryText runs a query returning one text column and collects every row
func (c *Conn) QueryText(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Close closes the connection
func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
