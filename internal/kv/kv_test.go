package kv

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "nexusSavedReports", []byte(`[{"reportName":"A"}]`)))
	v, ok, err := s.Get(ctx, "nexusSavedReports")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"reportName":"A"}]`, string(v))

	require.NoError(t, s.Set(ctx, "nexusSavedReports", []byte(`[]`)))
	v, _, err = s.Get(ctx, "nexusSavedReports")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v))

	require.NoError(t, s.Delete(ctx, "nexusSavedReports"))
	_, ok, err = s.Get(ctx, "nexusSavedReports")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Delete(ctx, "nexusSavedReports"), "deleting twice is a no-op")

	for _, bad := range []string{"", "  ", "../escape", "a/b", `a\b`, ".."} {
		assert.ErrorIs(t, s.Set(ctx, bad, []byte(`{}`)), ErrInvalidKey, bad)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	in := []byte(`{"a":1}`)
	require.NoError(t, m.Set(context.Background(), "k", in))
	in[0] = 'x'
	out, _, err := m.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(out))
	out[0] = 'y'
	again, _, _ := m.Get(context.Background(), "k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	exerciseStore(t, f)
}

func TestFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, f.Set(context.Background(), "nexusAutosaveReportParams", []byte(`{"reportName":"R"}`)))

	_, err = os.Stat(filepath.Join(f.Root(), "nexusAutosaveReportParams.json"))
	require.NoError(t, err)

	reopened, err := NewFile(dir)
	require.NoError(t, err)
	v, ok, err := reopened.Get(context.Background(), "nexusAutosaveReportParams")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"reportName":"R"}`, string(v))
}

func TestFileHonoursCancelledContext(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Set(ctx, "k", []byte(`{}`)), context.Canceled)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("NEXUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEXUS_TEST_POSTGRES_DSN not set")
	}
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer p.Close()
	exerciseStore(t, p)
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(" ")
	assert.Error(t, err)
}

// schemaConn fails the first CREATE TABLE and accepts every other statement.
type schemaConn struct{ creates, execs *atomic.Int32 }

func (c schemaConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c schemaConn) Close() error                        { return nil }
func (c schemaConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (c schemaConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.execs.Add(1)
	if strings.Contains(query, "CREATE TABLE") && c.creates.Add(1) == 1 {
		return nil, errors.New("connection reset by peer")
	}
	return driver.RowsAffected(1), nil
}

type schemaConnector struct{ creates, execs atomic.Int32 }

func (c *schemaConnector) Connect(context.Context) (driver.Conn, error) {
	return schemaConn{creates: &c.creates, execs: &c.execs}, nil
}
func (c *schemaConnector) Driver() driver.Driver { return nil }

func TestPostgresRetriesSchemaAfterFailure(t *testing.T) {
	ctx := context.Background()
	conn := &schemaConnector{}
	p, err := NewPostgresDB(sql.OpenDB(conn))
	require.NoError(t, err)
	defer p.Close()

	err = p.Set(ctx, "nexusSavedReports", []byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema")

	require.NoError(t, p.Set(ctx, "nexusSavedReports", []byte(`[]`)), "a transient failure does not disable the store")
	require.NoError(t, p.Delete(ctx, "nexusSavedReports"))
	assert.Equal(t, int32(2), conn.creates.Load(), "the schema step stops once it succeeds")
}
