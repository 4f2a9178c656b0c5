package shared

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeConn struct {
	claimed map[string]bool
	calls   []execCall
	err     error
}

func (f *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	if strings.HasPrefix(sql, "INSERT") {
		key := args[0].(string)
		if f.claimed[key] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.claimed[key] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (f *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestIdempotencyCheckAndInsert(t *testing.T) {
	conn := &fakeConn{claimed: map[string]bool{}}
	store := NewIdempotencyStore(conn)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "export-1", "gstr1.export"))
	err := store.CheckAndInsert(ctx, "export-1", "gstr1.export")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)

	err = store.CheckAndInsert(ctx, "", "gstr1.export")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIdempotencyUniqueViolation(t *testing.T) {
	store := NewIdempotencyStore(&fakeConn{err: &pgconn.PgError{Code: "23505"}})
	assert.ErrorIs(t, store.CheckAndInsert(context.Background(), "k", "m"), ErrIdempotencyConflict)
}

func TestIdempotencyCleanup(t *testing.T) {
	conn := &fakeConn{claimed: map[string]bool{}}
	store := NewIdempotencyStore(conn)
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Cleanup(context.Background(), 0))
	assert.Empty(t, conn.calls)

	require.NoError(t, store.Cleanup(context.Background(), 24*time.Hour))
	require.Len(t, conn.calls, 1)
	assert.Equal(t, now.Add(-24*time.Hour), conn.calls[0].args[0])
}
