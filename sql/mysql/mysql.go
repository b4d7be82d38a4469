// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package mysql provides the MySQL flavour: backtick quoting, inline
// ENUM column types, AUTO_INCREMENT columns and version-gated index
// renames.
package mysql

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/schemaflow/schemaflow/sql/check"
	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// DefaultVersion is the server version assumed when none is given.
const DefaultVersion = "8.0"

// Flavour implements the MySQL dialect capabilities.
type Flavour struct {
	version string
}

// New returns the MySQL flavour for the given server version
// (e.g. "8.0" or "5.6"). An empty version means DefaultVersion.
func New(version string) *Flavour {
	if version == "" {
		version = DefaultVersion
	}
	return &Flavour{version: version}
}

// Name returns the dialect name.
func (*Flavour) Name() string { return "mysql" }

// Quote returns the identifier quoted with backticks.
func (*Flavour) Quote(name string) string { return "`" + name + "`" }

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

// supportsRenameIndex reports if the server can rename an index
// in place (5.7 and above).
func (f *Flavour) supportsRenameIndex() bool {
	return semver.Compare("v"+f.version, "v5.7") >= 0
}

// ColumnType derives the column type of a scalar field. Enums are
// expressed inline as ENUM(...) column types; list fields are not
// supported by the dialect.
func (*Flavour) ColumnType(sf *datamodel.ScalarField, dm *datamodel.Datamodel) (schema.ColumnType, error) {
	if sf.Arity == datamodel.List {
		return schema.ColumnType{}, fmt.Errorf("mysql: list fields are not supported")
	}
	ct := schema.ColumnType{Arity: sqlx.ColumnArity(sf.Arity)}
	switch t := sf.Type.(type) {
	case *datamodel.BaseType:
		var dataType string
		switch t.Scalar {
		case datamodel.Int:
			dataType = "int"
		case datamodel.Float:
			dataType = "decimal(65,30)"
		case datamodel.Boolean:
			dataType = "boolean"
		case datamodel.String:
			dataType = "varchar(191)"
		case datamodel.DateTime:
			dataType = "datetime(3)"
		case datamodel.Json:
			dataType = "json"
		default:
			return ct, fmt.Errorf("mysql: unknown scalar type %q", t.Scalar)
		}
		if t.NativeType != "" {
			dataType = t.NativeType
			ct.NativeType = t.NativeType
		}
		ct.Family = sqlx.ScalarFamily(t.Scalar)
		ct.DataType = dataType
		ct.FullDataType = dataType
	case *datamodel.EnumType:
		e, ok := dm.Enum(t.Name)
		if !ok {
			return ct, fmt.Errorf("mysql: unknown enum %q", t.Name)
		}
		quoted := make([]string, 0, len(e.Values))
		for _, v := range e.DatabaseValues() {
			quoted = append(quoted, sqlx.SingleQuote(v))
		}
		ct.Family = schema.FamilyEnum
		ct.EnumName = e.FinalDatabaseName()
		ct.DataType = "enum"
		ct.FullDataType = fmt.Sprintf("ENUM(%s)", strings.Join(quoted, ", "))
	case *datamodel.UnsupportedType:
		ct.Family = schema.FamilyUnsupported
		ct.DataType = t.T
		ct.FullDataType = t.T
	}
	return ct, nil
}

// CalculateEnums returns nil; enums are expressed inline.
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
	b := &sqlx.Builder{QuoteOpening: '`', QuoteClosing: '`'}
	return b.P(phrase)
}
