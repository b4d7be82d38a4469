// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package mssql provides the Microsoft SQL Server flavour: bracket
// quoting, schema-qualified statements, IDENTITY columns, filtered
// unique indexes over nullable columns and SP_RENAME based renames.
package mssql

import (
	"fmt"

	"github.com/schemaflow/schemaflow/sql/check"
	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// Flavour implements the Microsoft SQL Server dialect capabilities.
type Flavour struct{}

// New returns the SQL Server flavour.
func New() *Flavour { return &Flavour{} }

// Name returns the dialect name.
func (*Flavour) Name() string { return "mssql" }

// Quote returns the identifier quoted with brackets.
func (*Flavour) Quote(name string) string { return "[" + name + "]" }

// SchemaName returns the default schema prefix.
func (*Flavour) SchemaName() string { return "dbo" }

// InlineForeignKeys reports that foreign keys are added with
// ALTER TABLE statements.
func (*Flavour) InlineForeignKeys() bool { return false }

// RequiresRedefine reports that every table change can be applied
// with an in-place ALTER.
func (*Flavour) RequiresRedefine(migrate.TableChange) bool { return false }

// CheckAlterColumn applies the generic alter-column classification.
func (*Flavour) CheckAlterColumn(d diff.ColumnDiffer, table string, r *check.Result, stepIndex int) {
	check.AlterColumn(d, table, r, stepIndex)
}

// ColumnType derives the column type of a scalar field. Enums are
// serialised to string columns; list fields are not supported by the
// dialect.
func (*Flavour) ColumnType(sf *datamodel.ScalarField, dm *datamodel.Datamodel) (schema.ColumnType, error) {
	if sf.Arity == datamodel.List {
		return schema.ColumnType{}, fmt.Errorf("mssql: list fields are not supported")
	}
	ct := schema.ColumnType{Arity: sqlx.ColumnArity(sf.Arity)}
	switch t := sf.Type.(type) {
	case *datamodel.BaseType:
		var dataType string
		switch t.Scalar {
		case datamodel.Int:
			dataType = "int"
		case datamodel.Float:
			dataType = "decimal(32,16)"
		case datamodel.Boolean:
			dataType = "bit"
		case datamodel.String:
			dataType = "nvarchar(1000)"
		case datamodel.DateTime:
			dataType = "datetime2"
		case datamodel.Json:
			dataType = "nvarchar(1000)"
		default:
			return ct, fmt.Errorf("mssql: unknown scalar type %q", t.Scalar)
		}
		if t.NativeType != "" {
			dataType = t.NativeType
			ct.NativeType = t.NativeType
		}
		ct.Family = sqlx.ScalarFamily(t.Scalar)
		ct.DataType = dataType
		ct.FullDataType = dataType
	case *datamodel.EnumType:
		// Enum values are enforced elsewhere; the column is a string.
		ct.Family = schema.FamilyString
		ct.DataType = "nvarchar(1000)"
		ct.FullDataType = "nvarchar(1000)"
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
	b := &sqlx.Builder{QuoteOpening: '[', QuoteClosing: ']', SchemaQualifier: "dbo"}
	return b.P(phrase)
}
