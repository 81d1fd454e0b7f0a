// Package gateway implements the persistence gateway of the identity core
// over database/sql. It holds one logical connection, dispatches the named
// queries of the query package, recovers exactly once from a transient
// connection failure by reacquiring the connection, and commits or rolls
// back around every call.
package gateway

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/rbp/auth/internal/common"
	"github.com/rbp/auth/internal/identity"
	"github.com/rbp/auth/internal/logging"
	"github.com/rbp/auth/internal/query"
)

// Gateway executes named queries on one pinned database connection. A single
// instance is not safe for concurrent use; run one per worker. Instances
// share the underlying *sql.DB pool.
type Gateway struct {
	db     *sql.DB
	conn   *sql.Conn
	tx     *sql.Tx // non-nil while bound to a WithTx transaction
	style  query.Style
	log    logging.Logger
	ownsDB bool

	isTransient func(error) bool
}

type Option func(*Gateway)

// WithStyle overrides the placeholder style the queries are rendered in.
func WithStyle(s query.Style) Option {
	return func(g *Gateway) { g.style = s }
}

// WithLogger replaces the default logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithTransientCheck replaces the predicate deciding which errors warrant
// the single reconnect-and-retry.
func WithTransientCheck(fn func(error) bool) Option {
	return func(g *Gateway) { g.isTransient = fn }
}

// New pins a connection from db and wraps it. The placeholder style defaults
// to positional; pass WithStyle(StyleForDriver(name)) for a known driver.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		db:          db,
		style:       query.StylePositional,
		log:         logging.NewDefault(),
		isTransient: defaultTransient,
	}
	for _, opt := range opts {
		opt(g)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	g.conn = conn
	return g, nil
}

// Open opens a database by driver name and DSN and wraps it in a Gateway
// using the driver's placeholder style. Close releases both.
func Open(ctx context.Context, driverName, dsn string, opts ...Option) (*Gateway, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	g, err := New(ctx, db, append([]Option{WithStyle(StyleForDriver(driverName))}, opts...)...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	g.ownsDB = true
	return g, nil
}

// StyleForDriver maps a database/sql driver name to the placeholder style it
// expects. Unknown drivers fall back to positional.
func StyleForDriver(driverName string) query.Style {
	switch driverName {
	case "pgx", "postgres":
		return query.StyleDollar
	case "sqlite", "sqlite3":
		return query.StylePositional
	default:
		return query.StylePositional
	}
}

// DB exposes the underlying pool, for callers that need it directly (schema
// migrations, health checks).
func (g *Gateway) DB() *sql.DB {
	return g.db
}

func (g *Gateway) Close() error {
	var err error
	if g.conn != nil {
		err = g.conn.Close()
	}
	if g.ownsDB {
		if cerr := g.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// WithTx runs fn against a gateway bound to one transaction. Everything fn
// issues commits together or not at all. Nested calls join the enclosing
// transaction.
func (g *Gateway) WithTx(ctx context.Context, fn func(identity.Gateway) error) error {
	if g.tx != nil {
		return fn(g)
	}

	tx, err := g.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	bound := &Gateway{
		db:          g.db,
		conn:        g.conn,
		tx:          tx,
		style:       g.style,
		log:         g.log,
		isTransient: g.isTransient,
	}
	if err := fn(bound); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func defaultTransient(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

// row is one result tuple in driver-native types.
type row []any

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// run renders q for the active style and executes it. Outside a WithTx
// block each call gets its own transaction: commit on success, rollback on
// failure, with a single reconnect-and-retry if the first attempt dies to a
// transient connection error. Inside WithTx the statement simply joins the
// enclosing transaction.
func (g *Gateway) run(ctx context.Context, q *query.Query, params ...any) ([]row, error) {
	text, args, err := q.Render(g.style, params...)
	if err != nil {
		return nil, err
	}

	if g.tx != nil {
		rows, err := fetch(ctx, g.tx, q, text, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name(), err)
		}
		return rows, nil
	}

	rows, err := g.attempt(ctx, q, text, args)
	if err != nil && g.isTransient(err) {
		g.log.Warn(ctx, "transient database error, reacquiring connection",
			"query", q.Name(), "error", err)
		if rerr := g.reacquire(ctx); rerr != nil {
			return nil, fmt.Errorf("%s: %w", q.Name(), rerr)
		}
		rows, err = g.attempt(ctx, q, text, args)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name(), err)
	}
	return rows, nil
}

// attempt executes once inside a fresh transaction on the pinned connection.
func (g *Gateway) attempt(ctx context.Context, q *query.Query, text string, args []any) ([]row, error) {
	tx, err := g.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	rows, err := fetch(ctx, tx, q, text, args)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rows, nil
}

// fetch executes the statement and, for result-bearing shapes, drains every
// row into driver-native tuples.
func fetch(ctx context.Context, e execer, q *query.Query, text string, args []any) ([]row, error) {
	if q.Shape() == query.ShapeNone {
		_, err := e.ExecContext(ctx, text, args...)
		return nil, err
	}

	rs, err := e.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}

	var out []row
	for rs.Next() {
		vals := make(row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rs.Err()
}

// mustShape guards against dispatching a query through the wrong shaping
// helper, which is a bug in this package rather than a runtime condition.
func mustShape(q *query.Query, want query.Shape) {
	if q.Shape() != want {
		panic(fmt.Sprintf("query %s: result shape %s dispatched as %s", q.Name(), q.Shape(), want))
	}
}

// execute runs a ShapeNone statement.
func (g *Gateway) execute(ctx context.Context, q *query.Query, params ...any) error {
	mustShape(q, query.ShapeNone)
	_, err := g.run(ctx, q, params...)
	return err
}

// allRows returns every result tuple in order.
func (g *Gateway) allRows(ctx context.Context, q *query.Query, params ...any) ([]row, error) {
	mustShape(q, query.ShapeRows)
	return g.run(ctx, q, params...)
}

// oneRow returns the first result tuple, or common.ErrNotFound.
func (g *Gateway) oneRow(ctx context.Context, q *query.Query, params ...any) (row, error) {
	mustShape(q, query.ShapeOneRow)
	rows, err := g.run(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.ErrNotFound
	}
	return rows[0], nil
}

// oneColumn returns the first field of every result tuple.
func (g *Gateway) oneColumn(ctx context.Context, q *query.Query, params ...any) ([]any, error) {
	mustShape(q, query.ShapeOneColumn)
	rows, err := g.run(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[0])
	}
	return out, nil
}

// unique returns the first field of the first tuple. Both an empty result
// and a NULL value come back as common.ErrNotFound.
func (g *Gateway) unique(ctx context.Context, q *query.Query, params ...any) (any, error) {
	mustShape(q, query.ShapeUnique)
	rows, err := g.run(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] == nil {
		return nil, common.ErrNotFound
	}
	return rows[0][0], nil
}

// reacquire drops the (presumed dead) pinned connection and pins a new one.
func (g *Gateway) reacquire(ctx context.Context) error {
	_ = g.conn.Close()
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reacquiring connection: %w", err)
	}
	g.conn = conn
	return nil
}
