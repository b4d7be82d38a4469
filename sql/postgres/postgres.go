// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package postgres provides the PostgreSQL flavour: identifier
// quoting, type mapping, native enum types and serial columns.
// Indexes are rendered without a WHERE predicate; partial indexes are
// not produced.
package postgres

import (
	"fmt"

	"github.com/schemaflow/schemaflow/sql/check"
	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// Flavour implements the PostgreSQL dialect capabilities.
type Flavour struct{}

// New returns the PostgreSQL flavour.
func New() *Flavour { return &Flavour{} }

// Name returns the dialect name.
func (*Flavour) Name() string { return "postgres" }

// Quote returns the identifier quoted with double quotes.
func (*Flavour) Quote(name string) string { return `"` + name + `"` }

// SchemaName returns the empty string; statements are not
// schema-qualified.
func (*Flavour) SchemaName() string { return "" }

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

// ColumnType derives the column type of a scalar field. A declared
// native type is carried verbatim; otherwise the scalar kind maps to
// the dialect default. List fields become array types.
func (*Flavour) ColumnType(f *datamodel.ScalarField, dm *datamodel.Datamodel) (schema.ColumnType, error) {
	ct := schema.ColumnType{Arity: sqlx.ColumnArity(f.Arity)}
	switch t := f.Type.(type) {
	case *datamodel.BaseType:
		var dataType string
		switch t.Scalar {
		case datamodel.Int:
			dataType = "integer"
		case datamodel.Float:
			dataType = "decimal(65,30)"
		case datamodel.Boolean:
			dataType = "boolean"
		case datamodel.String:
			dataType = "text"
		case datamodel.DateTime:
			dataType = "timestamp(3)"
		case datamodel.Json:
			dataType = "jsonb"
		default:
			return ct, fmt.Errorf("postgres: unknown scalar type %q", t.Scalar)
		}
		if t.NativeType != "" {
			dataType = t.NativeType
			ct.NativeType = t.NativeType
		}
		ct.Family = sqlx.ScalarFamily(t.Scalar)
		ct.DataType = dataType
		ct.FullDataType = dataType
		if ct.Arity.IsList() {
			ct.FullDataType = dataType + "[]"
		}
	case *datamodel.EnumType:
		e, ok := dm.Enum(t.Name)
		if !ok {
			return ct, fmt.Errorf("postgres: unknown enum %q", t.Name)
		}
		name := e.FinalDatabaseName()
		ct.Family = schema.FamilyEnum
		ct.EnumName = name
		ct.DataType = name
		ct.FullDataType = name
	case *datamodel.UnsupportedType:
		ct.Family = schema.FamilyUnsupported
		ct.DataType = t.T
		ct.FullDataType = t.T
	}
	return ct, nil
}

// CalculateEnums returns one native enum type per data model enum.
func (*Flavour) CalculateEnums(dm *datamodel.Datamodel) []*schema.Enum {
	var enums []*schema.Enum
	for _, e := range dm.Enums {
		enums = append(enums, &schema.Enum{Name: e.FinalDatabaseName(), Values: e.DatabaseValues()})
	}
	return enums
}

// RenderDefault renders the DEFAULT literal: strings single-quoted
// with embedded quotes doubled, booleans as TRUE and FALSE, NOW as
// CURRENT_TIMESTAMP, generated expressions verbatim and sequence
// defaults as the empty string.
func (*Flavour) RenderDefault(d schema.Default, family schema.ColumnTypeFamily) string {
	switch d := d.(type) {
	case *schema.Value:
		if b, ok := d.V.(bool); ok {
			if b {
				return "TRUE"
			}
			return "FALSE"
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
