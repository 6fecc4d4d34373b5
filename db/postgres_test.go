package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenStatement(t *testing.T) {
	assert.Equal(t, `LISTEN "camera"`, ListenStatement("camera"))
	assert.Equal(t, `LISTEN "we""ird"`, ListenStatement(`we"ird`))
}

// testConn connects to the database named by HONEYBEE_TEST_DATABASE_URL
func testConn(t *testing.T) *Conn {
	t.Helper()
	url := os.Getenv("HONEYBEE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("HONEYBEE_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := Connect(ctx, url, "UTC")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(context.Background()) })
	return conn
}

func TestConn_PollTimeout(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()
	require.NoError(t, conn.Listen(ctx, []string{"honeybee_test_idle"}))

	_, ok, err := conn.Poll(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	// the connection survives the timeout
	rows, err := conn.QueryText(ctx, "SELECT 'ok'")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, rows)
}

func TestConn_Notification(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()
	require.NoError(t, conn.Listen(ctx, []string{"honeybee_test"}))

	_, err := conn.conn.Exec(ctx, "SELECT pg_notify('honeybee_test', 'V66E37')")
	require.NoError(t, err)

	n, ok, err := conn.Poll(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Notification{Channel: "honeybee_test", Payload: "V66E37"}, n)
}

func TestConn_QueryText(t *testing.T) {
	conn := testConn(t)

	rows, err := conn.QueryText(context.Background(),
		"SELECT row_to_json(r)::text FROM (SELECT 1 AS a UNION ALL SELECT 2) r ORDER BY 1")
	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, rows)

	rows, err = conn.QueryText(context.Background(), "SELECT 'x'::text WHERE false")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
