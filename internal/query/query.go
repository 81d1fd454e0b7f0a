// Package query defines the named query descriptors used by the persistence
// gateway. A descriptor owns its SQL text, written against a canonical '?'
// placeholder, and renders itself into whatever placeholder style the active
// driver expects. Descriptors are immutable and safe for concurrent use.
package query

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbp/auth/internal/common"
)

// Style is a parameter placeholder convention.
type Style string

const (
	// StylePositional keeps the canonical '?' placeholders (sqlite).
	StylePositional Style = "positional"
	// StyleOrdinal numbers each placeholder: :1, :2, ...
	StyleOrdinal Style = "ordinal"
	// StyleNamed assigns a letter per placeholder (:a, :b, ...) and passes
	// parameters as sql.Named arguments.
	StyleNamed Style = "named"
	// StyleDollar numbers each placeholder postgres-style: $1, $2, ...
	StyleDollar Style = "dollar"
)

// Shape declares the structure a query's result is coerced into.
type Shape string

const (
	ShapeNone      Shape = "none"       // statement, no result
	ShapeRows      Shape = "rows"       // every row
	ShapeOneRow    Shape = "one_row"    // first row or absent
	ShapeOneColumn Shape = "one_column" // first field of every row
	ShapeUnique    Shape = "unique"     // first field of first row or absent
)

const namedLetters = "abcdefghijklmnopqrstuvwxyz"

// Query is a named, reusable query descriptor.
type Query struct {
	name       string
	shape      Shape
	text       string
	paramOrder []int
}

// New builds a descriptor. paramOrder, when non-nil, maps the natural
// call-argument order onto the order the SQL text expects; result position i
// takes the argument at paramOrder[i].
func New(name string, shape Shape, text string, paramOrder []int) *Query {
	if strings.Count(text, "?") > len(namedLetters) {
		panic(fmt.Sprintf("query %s: too many placeholders", name))
	}
	return &Query{name: name, shape: shape, text: text, paramOrder: paramOrder}
}

func (q *Query) Name() string { return q.name }

func (q *Query) Shape() Shape { return q.shape }

func (q *Query) String() string { return q.name }

// Reorder returns params rearranged per the descriptor's parameter order.
// Without an explicit order the input is returned unchanged.
func (q *Query) Reorder(params []any) []any {
	if q.paramOrder == nil {
		return params
	}
	out := make([]any, len(q.paramOrder))
	for i, idx := range q.paramOrder {
		out[i] = params[idx]
	}
	return out
}

// Render produces the SQL text and argument list for the requested style.
// For StyleNamed the arguments come back as sql.Named values; for every
// other style they are positional. An unknown style is reported as
// common.ErrUnsupportedParamStyle.
func (q *Query) Render(style Style, params ...any) (string, []any, error) {
	args := q.Reorder(params)

	switch style {
	case StylePositional:
		return q.text, args, nil
	case StyleOrdinal:
		return q.number(":"), args, nil
	case StyleDollar:
		return q.number("$"), args, nil
	case StyleNamed:
		return q.letter(args)
	}

	return "", nil, fmt.Errorf("%w: %s", common.ErrUnsupportedParamStyle, style)
}

// number rewrites each '?' as prefix plus its 1-based position.
func (q *Query) number(prefix string) string {
	parts := strings.Split(q.text, "?")
	var b strings.Builder
	for i, part := range parts[:len(parts)-1] {
		b.WriteString(part)
		b.WriteString(prefix)
		b.WriteString(strconv.Itoa(i + 1))
	}
	b.WriteString(parts[len(parts)-1])
	return b.String()
}

// letter rewrites each '?' as a :letter placeholder and wraps the arguments
// in sql.Named values carrying the matching letters.
func (q *Query) letter(args []any) (string, []any, error) {
	parts := strings.Split(q.text, "?")
	named := make([]any, 0, len(parts)-1)

	var b strings.Builder
	for i, part := range parts[:len(parts)-1] {
		name := string(namedLetters[i])
		b.WriteString(part)
		b.WriteString(":")
		b.WriteString(name)
		if i < len(args) {
			named = append(named, sql.Named(name, args[i]))
		}
	}
	b.WriteString(parts[len(parts)-1])
	return b.String(), named, nil
}
