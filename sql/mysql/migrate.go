// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mysql

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// RenderCreateTable renders the CREATE TABLE statement: columns in
// declaration order, the primary-key constraint, then inline unique
// constraints for unique indices over non-nullable columns.
func (f *Flavour) RenderCreateTable(t *schema.Table) (string, error) {
	b := Build("CREATE TABLE").Ident(t.Name)
	b.Wrap(func(b *sqlx.Builder) {
		b.MapComma(t.Columns, func(i int, b *sqlx.Builder) {
			f.column(b, t.Columns[i])
		})
		if pk := t.PrimaryKey; pk != nil {
			b.Comma().P("CONSTRAINT").Ident(pkConstraintName(t)).P("PRIMARY KEY")
			columnList(b, pk.Columns)
		}
		for _, idx := range t.Indices {
			if idx.IsUnique() && !sqlx.IndexHasNullableColumns(t, idx) {
				b.Comma().P("CONSTRAINT").Ident(idx.Name).P("UNIQUE")
				columnList(b, idx.Columns)
			}
		}
	})
	return b.String(), nil
}

// RenderDropTable renders the DROP TABLE statement.
func (f *Flavour) RenderDropTable(table string) string {
	return Build("DROP TABLE").Ident(table).String()
}

// RenderRenameTable renders the table rename statement.
func (f *Flavour) RenderRenameTable(from, to string) string {
	return Build("ALTER TABLE").Ident(from).P("RENAME TO").Ident(to).String()
}

// RenderAlterTable renders one ALTER TABLE statement with the
// changes as comma-separated actions. Column alterations are
// expressed with MODIFY, re-stating the full definition.
func (f *Flavour) RenderAlterTable(alter *migrate.AlterTable, prev, next *schema.SqlSchema) ([]string, error) {
	t2, ok := next.Table(alter.Table)
	if !ok {
		t2, ok = prev.Table(alter.Table)
	}
	if !ok {
		return nil, fmt.Errorf("mysql: alter table: %q not found", alter.Table)
	}
	b := Build("ALTER TABLE").Ident(alter.Table)
	for i, change := range alter.Changes {
		if i > 0 {
			b.Comma()
		}
		switch change := change.(type) {
		case *migrate.AddColumn:
			b.P("ADD COLUMN")
			f.column(b, &change.Column)
		case *migrate.DropColumn:
			b.P("DROP COLUMN").Ident(change.Name)
		case *migrate.AlterColumn:
			c, ok := t2.Column(change.Name)
			if !ok {
				return nil, fmt.Errorf("mysql: alter column: %q.%q not found", alter.Table, change.Name)
			}
			b.P("MODIFY")
			f.column(b, c)
		case *migrate.AddPrimaryKey:
			b.P("ADD PRIMARY KEY")
			columnList(b, change.Columns)
		case *migrate.DropPrimaryKey:
			b.P("DROP PRIMARY KEY")
		}
	}
	return []string{b.String()}, nil
}

// RenderCreateIndex renders the CREATE INDEX statement.
func (f *Flavour) RenderCreateIndex(t *schema.Table, idx *schema.Index) string {
	b := Build("CREATE")
	if idx.IsUnique() {
		b.P("UNIQUE")
	}
	b.P("INDEX").Ident(idx.Name).P("ON").Ident(t.Name)
	columnList(b, idx.Columns)
	return b.String()
}

// RenderDropIndex renders the DROP INDEX statement.
func (f *Flavour) RenderDropIndex(drop *migrate.DropIndex) string {
	return Build("DROP INDEX").Ident(drop.Index).P("ON").Ident(drop.Table).String()
}

// RenderAlterIndex renames the index in place on servers that
// support it, and drops and recreates it otherwise.
func (f *Flavour) RenderAlterIndex(alter *migrate.AlterIndex, next *schema.SqlSchema) ([]string, error) {
	if f.supportsRenameIndex() {
		return []string{
			Build("ALTER TABLE").Ident(alter.Table).P("RENAME INDEX").Ident(alter.Index).P("TO").Ident(alter.NewName).String(),
		}, nil
	}
	t, ok := next.Table(alter.Table)
	if !ok {
		return nil, fmt.Errorf("mysql: alter index: table %q not found in next schema", alter.Table)
	}
	idx, ok := t.Index(alter.NewName)
	if !ok {
		return nil, fmt.Errorf("mysql: alter index: %q not found on table %q", alter.NewName, alter.Table)
	}
	return []string{
		f.RenderDropIndex(&migrate.DropIndex{Table: alter.Table, Index: alter.Index}),
		f.RenderCreateIndex(t, idx),
	}, nil
}

// RenderAddForeignKey renders the ALTER TABLE ... ADD FOREIGN KEY
// statement.
func (f *Flavour) RenderAddForeignKey(add *migrate.AddForeignKey) string {
	fk := add.ForeignKey
	b := Build("ALTER TABLE").Ident(add.Table).P("ADD")
	if fk.ConstraintName != "" {
		b.P("CONSTRAINT").Ident(fk.ConstraintName)
	}
	b.P("FOREIGN KEY")
	columnList(b, fk.Columns)
	b.P("REFERENCES").Ident(fk.ReferencedTable)
	columnList(b, fk.ReferencedColumns)
	if fk.OnDelete != "" {
		b.P("ON DELETE", f.RenderOnDelete(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.P("ON UPDATE", f.RenderOnUpdate(fk.OnUpdate))
	}
	return b.String()
}

// RenderDropForeignKey renders the constraint removal statement.
func (f *Flavour) RenderDropForeignKey(drop *migrate.DropForeignKey) string {
	return Build("ALTER TABLE").Ident(drop.Table).P("DROP FOREIGN KEY").Ident(drop.ConstraintName).String()
}

// RenderCreateEnum is unreachable on MySQL; enums are inline.
func (f *Flavour) RenderCreateEnum(*migrate.CreateEnum) []string {
	panic("mysql: create enum is unreachable")
}

// RenderDropEnum is unreachable on MySQL; enums are inline.
func (f *Flavour) RenderDropEnum(*migrate.DropEnum) []string {
	panic("mysql: drop enum is unreachable")
}

// RenderAlterEnum is unreachable on MySQL; enums are inline.
func (f *Flavour) RenderAlterEnum(*migrate.AlterEnum, *schema.SqlSchema) ([]string, error) {
	panic("mysql: alter enum is unreachable")
}

// RenderRedefineTables is unreachable on MySQL; tables are altered
// in place.
func (f *Flavour) RenderRedefineTables([]string, *schema.SqlSchema, *schema.SqlSchema) ([]string, error) {
	panic("mysql: redefine tables is unreachable")
}

func (f *Flavour) column(b *sqlx.Builder, c *schema.Column) {
	if c.AutoIncrement {
		b.Ident(c.Name).P("INTEGER AUTO_INCREMENT")
		return
	}
	b.Ident(c.Name).P(f.columnTypeSQL(c)).P(sqlx.Nullability(c))
	if c.Default != nil {
		if d := f.RenderDefault(c.Default, c.Type.Family); d != "" {
			b.P("DEFAULT", d)
		}
	}
}

func (f *Flavour) columnTypeSQL(c *schema.Column) string {
	if c.Type.FullDataType != "" {
		return c.Type.FullDataType
	}
	switch c.Type.Family {
	case schema.FamilyInt:
		return "int"
	case schema.FamilyFloat:
		return "decimal(65,30)"
	case schema.FamilyBoolean:
		return "boolean"
	case schema.FamilyString, schema.FamilyUuid:
		return "varchar(191)"
	case schema.FamilyDateTime:
		return "datetime(3)"
	case schema.FamilyJson:
		return "json"
	default:
		return "varchar(191)"
	}
}

func pkConstraintName(t *schema.Table) string {
	return fmt.Sprintf("PK_%s_%s", t.Name, strings.Join(t.PrimaryKey.Columns, "_"))
}

func columnList(b *sqlx.Builder, columns []string) {
	b.Wrap(func(b *sqlx.Builder) {
		b.MapComma(columns, func(i int, b *sqlx.Builder) {
			b.Ident(columns[i])
		})
	})
}
