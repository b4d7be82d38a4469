// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlite provides the SQLite flavour. The dialect declares
// foreign keys inside CREATE TABLE and cannot alter columns in
// place; such changes rebuild the table by copying rows into a new
// one and swapping it in.
package sqlite

import (
	"fmt"

	"github.com/schemaflow/schemaflow/sql/check"
	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// Flavour implements the SQLite dialect capabilities.
type Flavour struct{}

// New returns the SQLite flavour.
func New() *Flavour { return &Flavour{} }

// Name returns the dialect name.
func (*Flavour) Name() string { return "sqlite" }

// Quote returns the identifier quoted with double quotes.
func (*Flavour) Quote(name string) string { return `"` + name + `"` }

// SchemaName returns the empty string; statements are not
// schema-qualified.
func (*Flavour) SchemaName() string { return "" }

// InlineForeignKeys reports that foreign keys can only be declared
// inside CREATE TABLE.
func (*Flavour) InlineForeignKeys() bool { return true }

// RequiresRedefine reports the table changes SQLite cannot apply
// with an in-place ALTER: everything except a plain column addition.
func (*Flavour) RequiresRedefine(c migrate.TableChange) bool {
	switch c := c.(type) {
	case *migrate.AddColumn:
		return c.Column.AutoIncrement
	default:
		return true
	}
}

// CheckAlterColumn applies the SQLite alter-column classification.
func (*Flavour) CheckAlterColumn(d diff.ColumnDiffer, table string, r *check.Result, stepIndex int) {
	check.SqliteAlterColumn(d, table, r, stepIndex)
}

// ColumnType derives the column type of a scalar field. Enums are
// serialised to TEXT columns; list fields are not supported by the
// dialect.
func (*Flavour) ColumnType(sf *datamodel.ScalarField, dm *datamodel.Datamodel) (schema.ColumnType, error) {
	if sf.Arity == datamodel.List {
		return schema.ColumnType{}, fmt.Errorf("sqlite: list fields are not supported")
	}
	ct := schema.ColumnType{Arity: sqlx.ColumnArity(sf.Arity)}
	switch t := sf.Type.(type) {
	case *datamodel.BaseType:
		var dataType string
		switch t.Scalar {
		case datamodel.Int:
			dataType = "INTEGER"
		case datamodel.Float:
			dataType = "REAL"
		case datamodel.Boolean:
			dataType = "BOOLEAN"
		case datamodel.String:
			dataType = "TEXT"
		case datamodel.DateTime:
			dataType = "DATETIME"
		case datamodel.Json:
			dataType = "TEXT"
		default:
			return ct, fmt.Errorf("sqlite: unknown scalar type %q", t.Scalar)
		}
		if t.NativeType != "" {
			dataType = t.NativeType
			ct.NativeType = t.NativeType
		}
		ct.Family = sqlx.ScalarFamily(t.Scalar)
		ct.DataType = dataType
		ct.FullDataType = dataType
	case *datamodel.EnumType:
		// Enum values are enforced elsewhere; the column is TEXT.
		ct.Family = schema.FamilyString
		ct.DataType = "TEXT"
		ct.FullDataType = "TEXT"
	case *datamodel.UnsupportedType:
		ct.Family = schema.FamilyUnsupported
		ct.DataType = t.T
		ct.FullDataType = t.T
	}
	return ct, nil
}

// CalculateEnums returns nil; the dialect has no enum types.
func (*Flavour) CalculateEnums(*datamodel.Datamodel) []*schema.Enum { return nil }

// RenderDefault renders the DEFAULT literal: strings single-quoted
// with embedded quotes doubled, booleans as 1 and 0, NOW as
// CURRENT_TIMESTAMP, generated expressions verbatim and sequence
// defaults as the empty string.
func (*Flavour) RenderDefault(d schema.Default, family schema.ColumnTypeFamily) string {
	switch d := d.(type) {
	case *schema.Value:
		if b, ok := d.V.(bool); ok {
			if b {
				return "1"
			}
			return "0"
		}
		return sqlx.FormatLiteral(d.V)
	case *schema.Now:
		return "CURRENT_TIMESTAMP"
	case *schema.DBGenerated:
		return d.X
	case *schema.SequenceDefault:
		return ""
	}
	return ""
}

// RenderOnDelete renders the ON DELETE clause body.
func (*Flavour) RenderOnDelete(a schema.ForeignKeyAction) string { return string(a) }

// RenderOnUpdate renders the ON UPDATE clause body.
func (*Flavour) RenderOnUpdate(a schema.ForeignKeyAction) string { return string(a) }

// Build instantiates a new builder and writes the given phrase to it.
func Build(phrase string) *sqlx.Builder {
	b := &sqlx.Builder{QuoteOpening: '"', QuoteClosing: '"'}
	return b.P(phrase)
}
