// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package migrate provides the migration plan: the ordered list of
// schema-change steps produced by the differ, the flavour capability
// surface the dialects implement, and the driver that turns a plan
// into DDL statements.
package migrate

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/schema"
)

type (
	// A Plan is an ordered, canonical list of schema-change steps
	// for migrating the Prev schema to the Next schema. For a given
	// input pair the plan is reproducible bit-for-bit.
	Plan struct {
		Prev, Next *schema.SqlSchema
		Steps      []Step
	}

	// A Step represents one schema-change operation. The types below
	// implement this interface.
	Step interface {
		step()
	}

	// CreateTable describes a table creation step. The table
	// definition is resolved from the plan's Next schema.
	CreateTable struct {
		Table string
	}

	// DropTable describes a table removal step.
	DropTable struct {
		Table string
	}

	// RenameTable describes a table rename step.
	RenameTable struct {
		From, To string
	}

	// AlterTable groups the column and primary-key changes
	// of one table.
	AlterTable struct {
		Table   string
		Changes []TableChange
	}

	// CreateIndex describes an index creation step.
	CreateIndex struct {
		Table string
		Index schema.Index
		// CausedByCreateTable marks indices that belong to a table
		// created in the same plan. Non-nullable unique indices of
		// such tables are already rendered inline as constraints.
		CausedByCreateTable bool
	}

	// DropIndex describes an index removal step.
	DropIndex struct {
		Table string
		Index string
	}

	// AlterIndex describes an index rename: same columns and type,
	// different name.
	AlterIndex struct {
		Table   string
		Index   string
		NewName string
	}

	// AddForeignKey describes a foreign-key creation step.
	AddForeignKey struct {
		Table      string
		ForeignKey schema.ForeignKey
	}

	// DropForeignKey describes a foreign-key removal step.
	DropForeignKey struct {
		Table          string
		ConstraintName string
	}

	// CreateEnum describes an enum type creation step.
	CreateEnum struct {
		Name   string
		Values []string
	}

	// DropEnum describes an enum type removal step.
	DropEnum struct {
		Name string
	}

	// AlterEnum describes added or removed enum values.
	AlterEnum struct {
		Name          string
		AddedValues   []string
		RemovedValues []string
	}

	// RedefineTables lists tables that must be rebuilt by
	// copy-into-new-table-and-swap because the dialect cannot
	// alter them in place.
	RedefineTables struct {
		Tables []string
	}
)

// steps.
func (*CreateTable) step()    {}
func (*DropTable) step()      {}
func (*RenameTable) step()    {}
func (*AlterTable) step()     {}
func (*CreateIndex) step()    {}
func (*DropIndex) step()      {}
func (*AlterIndex) step()     {}
func (*AddForeignKey) step()  {}
func (*DropForeignKey) step() {}
func (*CreateEnum) step()     {}
func (*DropEnum) step()       {}
func (*AlterEnum) step()      {}
func (*RedefineTables) step() {}

type (
	// A TableChange is one change inside an AlterTable step.
	TableChange interface {
		tableChange()
	}

	// AddColumn describes a column creation change.
	AddColumn struct {
		Column schema.Column
	}

	// DropColumn describes a column removal change.
	DropColumn struct {
		Name string
	}

	// AlterColumn describes a change that modifies a column. The
	// previous and next definitions are resolved from the plan's
	// Prev and Next schemas.
	AlterColumn struct {
		Name    string
		Changes ColumnChanges
	}

	// AddPrimaryKey describes a primary-key creation change.
	AddPrimaryKey struct {
		Columns []string
	}

	// DropPrimaryKey describes a primary-key removal change.
	DropPrimaryKey struct {
		ConstraintName string
	}
)

// table changes.
func (*AddColumn) tableChange()      {}
func (*DropColumn) tableChange()     {}
func (*AlterColumn) tableChange()    {}
func (*AddPrimaryKey) tableChange()  {}
func (*DropPrimaryKey) tableChange() {}

// ColumnChanges describes what changed between two versions of a
// column, combined as a set of flags. The zero value is no change.
type ColumnChanges uint

const (
	// NoChange holds the zero value of the change set.
	NoChange ColumnChanges = 0

	// ChangeType describes a column type family change.
	ChangeType ColumnChanges = 1 << (iota - 1)
	// ChangeArity describes a nullability or cardinality change.
	ChangeArity
	// ChangeDefault describes a column default change.
	ChangeDefault
	// ChangeAutoIncrement describes an autoincrement flag change.
	ChangeAutoIncrement
)

// Is reports whether c matches the given change set.
func (c ColumnChanges) Is(k ColumnChanges) bool {
	return c == k || c&k != 0
}

// TypeChanged reports if the column type family changed.
func (c ColumnChanges) TypeChanged() bool { return c.Is(ChangeType) }

// ArityChanged reports if the column arity changed.
func (c ColumnChanges) ArityChanged() bool { return c.Is(ChangeArity) }

// DefaultChanged reports if the column default changed.
func (c ColumnChanges) DefaultChanged() bool { return c.Is(ChangeDefault) }

// AutoIncrementChanged reports if the autoincrement flag changed.
func (c ColumnChanges) AutoIncrementChanged() bool { return c.Is(ChangeAutoIncrement) }

// A Flavour encapsulates dialect-specific rendering behaviour. One
// implementation exists per supported dialect. Calling an operation
// the dialect cannot express is a contract bug between the differ and
// the flavour, and panics.
type Flavour interface {
	// Name returns the dialect name ("postgres", "mysql",
	// "sqlite" or "mssql").
	Name() string

	// Quote returns the identifier quoted the dialect way.
	Quote(name string) string

	// SchemaName returns the default schema prefix, or the
	// empty string when the dialect does not use one.
	SchemaName() string

	// RenderDefault renders the DEFAULT literal of a column.
	RenderDefault(d schema.Default, family schema.ColumnTypeFamily) string

	// RenderOnDelete renders the ON DELETE clause body.
	RenderOnDelete(a schema.ForeignKeyAction) string

	// RenderOnUpdate renders the ON UPDATE clause body.
	RenderOnUpdate(a schema.ForeignKeyAction) string

	// RenderCreateTable renders the CREATE TABLE statement with
	// columns in declaration order, the primary-key constraint, and
	// inline unique constraints for non-nullable unique indices.
	RenderCreateTable(t *schema.Table) (string, error)

	// RenderDropTable renders the DROP TABLE statement.
	RenderDropTable(table string) string

	// RenderRenameTable renders the table rename statement.
	RenderRenameTable(from, to string) string

	// RenderAlterTable renders the statements for one AlterTable step.
	RenderAlterTable(alter *AlterTable, prev, next *schema.SqlSchema) ([]string, error)

	// RenderCreateIndex renders the CREATE INDEX statement.
	RenderCreateIndex(t *schema.Table, idx *schema.Index) string

	// RenderDropIndex renders the DROP INDEX statement.
	RenderDropIndex(drop *DropIndex) string

	// RenderAlterIndex renders the statements renaming an index.
	RenderAlterIndex(alter *AlterIndex, next *schema.SqlSchema) ([]string, error)

	// RenderAddForeignKey renders the ALTER TABLE ... ADD FOREIGN KEY
	// statement.
	RenderAddForeignKey(add *AddForeignKey) string

	// RenderDropForeignKey renders the constraint removal statement.
	RenderDropForeignKey(drop *DropForeignKey) string

	// RenderCreateEnum renders the statements creating an enum type.
	RenderCreateEnum(create *CreateEnum) []string

	// RenderDropEnum renders the statements dropping an enum type.
	RenderDropEnum(drop *DropEnum) []string

	// RenderAlterEnum renders the statements altering an enum type.
	RenderAlterEnum(alter *AlterEnum, next *schema.SqlSchema) ([]string, error)

	// RenderRedefineTables renders the copy-and-swap statements
	// rebuilding the given tables.
	RenderRedefineTables(tables []string, prev, next *schema.SqlSchema) ([]string, error)

	// InlineForeignKeys reports if the dialect declares foreign keys
	// inside CREATE TABLE instead of separate ALTER TABLE statements.
	InlineForeignKeys() bool
}

// Render emits the DDL statements of the plan in emission order, one
// statement per element, with no terminating semicolon.
func Render(p *Plan, f Flavour) ([]string, error) {
	var stmts []string
	for _, step := range p.Steps {
		switch step := step.(type) {
		case *CreateTable:
			t, ok := p.Next.Table(step.Table)
			if !ok {
				return nil, fmt.Errorf("sql/migrate: create table: %q not found in next schema", step.Table)
			}
			stmt, err := f.RenderCreateTable(t)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		case *DropTable:
			stmts = append(stmts, f.RenderDropTable(step.Table))
		case *RenameTable:
			stmts = append(stmts, f.RenderRenameTable(step.From, step.To))
		case *AlterTable:
			s, err := f.RenderAlterTable(step, p.Prev, p.Next)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s...)
		case *CreateIndex:
			t, ok := p.Next.Table(step.Table)
			if !ok {
				return nil, fmt.Errorf("sql/migrate: create index: table %q not found in next schema", step.Table)
			}
			// Non-nullable unique indices of created tables are
			// already rendered as inline constraints.
			if step.CausedByCreateTable && step.Index.IsUnique() && !sqlx.IndexHasNullableColumns(t, &step.Index) {
				continue
			}
			stmts = append(stmts, f.RenderCreateIndex(t, &step.Index))
		case *DropIndex:
			stmts = append(stmts, f.RenderDropIndex(step))
		case *AlterIndex:
			s, err := f.RenderAlterIndex(step, p.Next)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s...)
		case *AddForeignKey:
			stmts = append(stmts, f.RenderAddForeignKey(step))
		case *DropForeignKey:
			stmts = append(stmts, f.RenderDropForeignKey(step))
		case *CreateEnum:
			stmts = append(stmts, f.RenderCreateEnum(step)...)
		case *DropEnum:
			stmts = append(stmts, f.RenderDropEnum(step)...)
		case *AlterEnum:
			s, err := f.RenderAlterEnum(step, p.Next)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s...)
		case *RedefineTables:
			s, err := f.RenderRedefineTables(step.Tables, p.Prev, p.Next)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s...)
		default:
			return nil, fmt.Errorf("sql/migrate: unsupported step %T", step)
		}
	}
	return stmts, nil
}

// Script joins rendered statements into a single migration script.
func Script(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, ";\n\n") + ";\n"
}
