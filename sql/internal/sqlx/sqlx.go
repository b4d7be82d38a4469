// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlx provides generic helpers shared by the dialect
// packages: the DDL statement builder, literal escaping, and small
// schema predicates the renderers need.
package sqlx

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/schemaflow/schemaflow/sql/schema"
)

// A Builder provides a syntactic sugar API for writing SQL statements.
type Builder struct {
	bytes.Buffer
	QuoteOpening byte // quoting identifiers
	QuoteClosing byte // quoting identifiers
	// SchemaQualifier is prefixed to table-level
	// identifiers when set (e.g. "dbo" on SQL Server).
	SchemaQualifier string
}

// P writes a list of phrases to the builder separated and
// suffixed with whitespace.
func (b *Builder) P(phrases ...string) *Builder {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if b.Len() > 0 && b.lastByte() != ' ' && b.lastByte() != '(' {
			b.WriteByte(' ')
		}
		b.WriteString(p)
		if p[len(p)-1] != ' ' {
			b.WriteByte(' ')
		}
	}
	return b
}

// Ident writes the given string quoted as an SQL identifier.
func (b *Builder) Ident(s string) *Builder {
	if s != "" {
		b.WriteByte(b.QuoteOpening)
		b.WriteString(s)
		b.WriteByte(b.QuoteClosing)
		b.WriteByte(' ')
	}
	return b
}

// Table writes the table identifier to the builder, prefixed
// with the schema qualifier if one is set.
func (b *Builder) Table(name string) *Builder {
	if b.SchemaQualifier != "" {
		b.Ident(b.SchemaQualifier)
		b.rewriteLastByte('.')
	}
	return b.Ident(name)
}

// Comma writes a comma in case the buffer is not empty, or
// replaces the last char if it is a whitespace.
func (b *Builder) Comma() *Builder {
	switch {
	case b.Len() == 0:
	case b.lastByte() == ' ':
		b.rewriteLastByte(',')
		b.WriteByte(' ')
	default:
		b.WriteString(", ")
	}
	return b
}

// MapComma maps the slice x using the function f and joins the result
// with a comma separating between the written elements.
func (b *Builder) MapComma(x any, f func(i int, b *Builder)) *Builder {
	s := reflect.ValueOf(x)
	for i := 0; i < s.Len(); i++ {
		if i > 0 {
			b.Comma()
		}
		f(i, b)
	}
	return b
}

// Wrap wraps the written string with parentheses.
func (b *Builder) Wrap(f func(b *Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	if b.lastByte() != ' ' {
		b.WriteByte(')')
	} else {
		b.rewriteLastByte(')')
	}
	return b
}

// Int64 writes the given value to the builder in base 10.
func (b *Builder) Int64(v int64) *Builder {
	return b.P(strconv.FormatInt(v, 10))
}

// String overrides the Buffer.String method and ensure no spaces pad
// the returned statement.
func (b *Builder) String() string {
	return strings.TrimSpace(b.Buffer.String())
}

func (b *Builder) lastByte() byte {
	if b.Len() == 0 {
		return 0
	}
	buf := b.Buffer.Bytes()
	return buf[len(buf)-1]
}

func (b *Builder) rewriteLastByte(c byte) {
	if b.Len() == 0 {
		return
	}
	buf := b.Buffer.Bytes()
	buf[len(buf)-1] = c
}

// EscapeStringLiteral doubles embedded single quotes so the value can
// be rendered inside a single-quoted SQL string literal.
func EscapeStringLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// SingleQuote wraps the given string in single quotes, escaping
// embedded quotes.
func SingleQuote(s string) string {
	return "'" + EscapeStringLiteral(s) + "'"
}

// Nullability returns the nullability clause of the column.
func Nullability(c *schema.Column) string {
	if c.Type.Arity.IsRequired() {
		return "NOT NULL"
	}
	return ""
}

// IndexHasNullableColumns reports if any column of the index is
// nullable on the given table.
func IndexHasNullableColumns(t *schema.Table, idx *schema.Index) bool {
	for _, name := range idx.Columns {
		if c, ok := t.Column(name); ok && c.Type.Arity.IsNullable() {
			return true
		}
	}
	return false
}

// ValuesEqual checks if the 2 string slices are equal
// (including their order).
func ValuesEqual(v1, v2 []string) bool {
	if len(v1) != len(v2) {
		return false
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			return false
		}
	}
	return true
}

// FormatLiteral renders a literal default value: numbers and booleans
// as-is, everything else as a single-quoted string.
func FormatLiteral(v any) string {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return SingleQuote(v)
	default:
		return fmt.Sprint(v)
	}
}

// P returns a pointer to v.
func P[T any](v T) *T {
	return &v
}

// V returns the value p is pointing to.
// If p is nil, the zero value is returned.
func V[T any](p *T) (v T) {
	if p != nil {
		v = *p
	}
	return
}
