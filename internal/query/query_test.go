package query

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/rbp/auth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Positional(t *testing.T) {
	q := New("q", ShapeNone, "update t set x = ?, y = ? where k = ?", nil)

	text, args, err := q.Render(StylePositional, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "update t set x = ?, y = ? where k = ?", text)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestRender_Ordinal(t *testing.T) {
	q := New("q", ShapeNone, "update t set x = ?, y = ? where k = ?", nil)

	text, args, err := q.Render(StyleOrdinal, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "update t set x = :1, y = :2 where k = :3", text)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestRender_Dollar(t *testing.T) {
	q := New("q", ShapeNone, "update t set x = ?, y = ? where k = ?", nil)

	text, args, err := q.Render(StyleDollar, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "update t set x = $1, y = $2 where k = $3", text)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestRender_Named(t *testing.T) {
	q := New("q", ShapeNone, "update t set x = ?, y = ? where k = ?", nil)

	text, args, err := q.Render(StyleNamed, 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "update t set x = :a, y = :b where k = :c", text)
	require.Len(t, args, 3)

	want := []sql.NamedArg{
		sql.Named("a", 1),
		sql.Named("b", 2),
		sql.Named("c", 3),
	}
	for i, arg := range args {
		named, ok := arg.(sql.NamedArg)
		require.True(t, ok, "argument %d is not named", i)
		assert.Equal(t, want[i], named)
	}
}

func TestRender_UnsupportedStyle(t *testing.T) {
	q := New("q", ShapeNone, "select 1", nil)

	_, _, err := q.Render(Style("pyformat"))
	assert.True(t, errors.Is(err, common.ErrUnsupportedParamStyle))
}

func TestRender_NoPlaceholders(t *testing.T) {
	q := New("q", ShapeRows, "select email from pending_users", nil)

	for _, style := range []Style{StylePositional, StyleOrdinal, StyleDollar, StyleNamed} {
		text, args, err := q.Render(style)
		require.NoError(t, err)
		assert.Equal(t, "select email from pending_users", text)
		assert.Empty(t, args)
	}
}

func TestReorder(t *testing.T) {
	// natural call order is (key, x, y), SQL wants (x, y, key)
	q := New("q", ShapeNone, "update t set x = ?, y = ? where k = ?", []int{1, 2, 0})

	text, args, err := q.Render(StylePositional, "key", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "update t set x = ?, y = ? where k = ?", text)
	assert.Equal(t, []any{"x", "y", "key"}, args)
}

func TestReorder_NamedFollowsReorderedValues(t *testing.T) {
	q := New("q", ShapeNone, "update t set x = ? where k = ?", []int{1, 0})

	_, args, err := q.Render(StyleNamed, "key", "x")
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, sql.Named("a", "x"), args[0])
	assert.Equal(t, sql.Named("b", "key"), args[1])
}

func TestRegistry(t *testing.T) {
	all := All()
	require.Len(t, all, 14)

	seen := map[string]bool{}
	for _, q := range all {
		assert.False(t, seen[q.Name()], "duplicate query name %s", q.Name())
		seen[q.Name()] = true
	}

	assert.Equal(t, ShapeOneRow, GetUser.Shape())
	assert.Equal(t, ShapeUnique, GetUserRole.Shape())
	assert.Equal(t, ShapeOneColumn, GetPendingUsersRegisteredBefore.Shape())
	assert.Equal(t, ShapeRows, GetPendingUsersUnmailed.Shape())
}

func TestRegistry_SuspendUserOrder(t *testing.T) {
	// call order is (email, attempts, until); SQL order is
	// (attempts, until, email)
	_, args, err := SuspendUser.Render(StylePositional, "a@b.c", 3, int64(1700000300))
	require.NoError(t, err)
	assert.Equal(t, []any{3, int64(1700000300), "a@b.c"}, args)
}
