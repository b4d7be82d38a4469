// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package mssql

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// RenderCreateTable renders the CREATE TABLE statement: columns in
// declaration order, the primary-key constraint named
// PK_{table}_{columns}, then inline unique constraints for unique
// indices over non-nullable columns. Unique indices with nullable
// columns are deferred to filtered CREATE INDEX statements.
func (f *Flavour) RenderCreateTable(t *schema.Table) (string, error) {
	b := Build("CREATE TABLE").Table(t.Name)
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
				b.Comma().P("CONSTRAINT").Ident(indexName(idx)).P("UNIQUE")
				columnList(b, idx.Columns)
			}
		}
	})
	return b.String(), nil
}

// RenderDropTable renders the DROP TABLE statement.
func (f *Flavour) RenderDropTable(table string) string {
	return Build("DROP TABLE").Table(table).String()
}

// RenderRenameTable renders the rename through SP_RENAME.
func (f *Flavour) RenderRenameTable(from, to string) string {
	return fmt.Sprintf("EXEC SP_RENAME N'%s.%s', N'%s'", f.SchemaName(), from, to)
}

// RenderAlterTable renders one ALTER TABLE statement with the
// changes as comma-separated actions. Column alterations re-state
// the column type and nullability.
func (f *Flavour) RenderAlterTable(alter *migrate.AlterTable, prev, next *schema.SqlSchema) ([]string, error) {
	t2, ok := next.Table(alter.Table)
	if !ok {
		t2, ok = prev.Table(alter.Table)
	}
	if !ok {
		return nil, fmt.Errorf("mssql: alter table: %q not found", alter.Table)
	}
	b := Build("ALTER TABLE").Table(alter.Table)
	for i, change := range alter.Changes {
		if i > 0 {
			b.Comma()
		}
		switch change := change.(type) {
		case *migrate.AddColumn:
			b.P("ADD")
			f.column(b, &change.Column)
		case *migrate.DropColumn:
			b.P("DROP COLUMN").Ident(change.Name)
		case *migrate.AlterColumn:
			c, ok := t2.Column(change.Name)
			if !ok {
				return nil, fmt.Errorf("mssql: alter column: %q.%q not found", alter.Table, change.Name)
			}
			b.P("ALTER COLUMN").Ident(c.Name).P(f.columnTypeSQL(c)).P(sqlx.Nullability(c))
		case *migrate.AddPrimaryKey:
			b.P("ADD PRIMARY KEY")
			columnList(b, change.Columns)
		case *migrate.DropPrimaryKey:
			if change.ConstraintName == "" {
				return nil, fmt.Errorf("mssql: drop primary key on %q requires a constraint name", alter.Table)
			}
			b.P("DROP CONSTRAINT").Ident(change.ConstraintName)
		}
	}
	return []string{b.String()}, nil
}

// RenderCreateIndex renders the CREATE INDEX statement. A unique
// index over nullable columns becomes a filtered index excluding
// NULLs, matching the distinct-NULL semantics of the other dialects.
func (f *Flavour) RenderCreateIndex(t *schema.Table, idx *schema.Index) string {
	b := Build("CREATE")
	if idx.IsUnique() {
		b.P("UNIQUE")
	}
	b.P("INDEX").Ident(indexName(idx)).P("ON").Table(t.Name)
	columnList(b, idx.Columns)
	if idx.IsUnique() && sqlx.IndexHasNullableColumns(t, idx) {
		conds := make([]string, len(idx.Columns))
		for i, c := range idx.Columns {
			conds[i] = f.Quote(c) + " IS NOT NULL"
		}
		b.P("WHERE", strings.Join(conds, " AND "))
	}
	return b.String()
}

// RenderDropIndex renders the DROP INDEX statement.
func (f *Flavour) RenderDropIndex(drop *migrate.DropIndex) string {
	return Build("DROP INDEX").Ident(drop.Index).P("ON").Table(drop.Table).String()
}

// RenderAlterIndex renders the rename through SP_RENAME.
func (f *Flavour) RenderAlterIndex(alter *migrate.AlterIndex, _ *schema.SqlSchema) ([]string, error) {
	return []string{
		fmt.Sprintf("EXEC SP_RENAME N'%s.%s.%s', N'%s', N'INDEX'", f.SchemaName(), alter.Table, alter.Index, alter.NewName),
	}, nil
}

// RenderAddForeignKey renders the ALTER TABLE ... ADD FOREIGN KEY
// statement. Self-referencing foreign keys force NO ACTION on both
// referential actions; SQL Server rejects action cycles otherwise.
func (f *Flavour) RenderAddForeignKey(add *migrate.AddForeignKey) string {
	fk := add.ForeignKey
	b := Build("ALTER TABLE").Table(add.Table).P("ADD")
	if fk.ConstraintName != "" {
		b.P("CONSTRAINT").Ident(fk.ConstraintName)
	}
	b.P("FOREIGN KEY")
	columnList(b, fk.Columns)
	b.P("REFERENCES").Table(fk.ReferencedTable)
	columnList(b, fk.ReferencedColumns)
	onDelete, onUpdate := f.RenderOnDelete(fk.OnDelete), f.RenderOnUpdate(fk.OnUpdate)
	if add.Table == fk.ReferencedTable {
		onDelete, onUpdate = string(schema.NoAction), string(schema.NoAction)
	}
	if onDelete != "" {
		b.P("ON DELETE", onDelete)
	}
	if onUpdate != "" {
		b.P("ON UPDATE", onUpdate)
	}
	return b.String()
}

// RenderDropForeignKey renders the constraint removal statement.
func (f *Flavour) RenderDropForeignKey(drop *migrate.DropForeignKey) string {
	return Build("ALTER TABLE").Table(drop.Table).P("DROP CONSTRAINT").Ident(drop.ConstraintName).String()
}

// RenderCreateEnum is unreachable on SQL Server; the dialect has no
// enum types.
func (f *Flavour) RenderCreateEnum(*migrate.CreateEnum) []string {
	panic("mssql: create enum is unreachable")
}

// RenderDropEnum is unreachable on SQL Server; the dialect has no
// enum types.
func (f *Flavour) RenderDropEnum(*migrate.DropEnum) []string {
	panic("mssql: drop enum is unreachable")
}

// RenderAlterEnum is unreachable on SQL Server; the dialect has no
// enum types.
func (f *Flavour) RenderAlterEnum(*migrate.AlterEnum, *schema.SqlSchema) ([]string, error) {
	panic("mssql: alter enum is unreachable")
}

// RenderRedefineTables is unreachable on SQL Server; tables are
// altered in place.
func (f *Flavour) RenderRedefineTables([]string, *schema.SqlSchema, *schema.SqlSchema) ([]string, error) {
	panic("mssql: redefine tables is unreachable")
}

func (f *Flavour) column(b *sqlx.Builder, c *schema.Column) {
	if c.AutoIncrement {
		b.Ident(c.Name).P("int IDENTITY(1,1)")
		return
	}
	b.Ident(c.Name).P(f.columnTypeSQL(c)).P(sqlx.Nullability(c))
	if c.Default != nil {
		if _, ok := c.Default.(*schema.DBGenerated); ok {
			return
		}
		if d := f.RenderDefault(c.Default, c.Type.Family); d != "" {
			b.P("DEFAULT", d)
		}
	}
}

// columnTypeSQL returns the column's native type when one is set and
// otherwise maps the column family to its SQL Server type; the carried
// DataType and FullDataType strings are not used.
func (f *Flavour) columnTypeSQL(c *schema.Column) string {
	if c.Type.NativeType != "" {
		return c.Type.NativeType
	}
	switch c.Type.Family {
	case schema.FamilyBoolean:
		return "bit"
	case schema.FamilyDateTime:
		return "datetime2"
	case schema.FamilyFloat:
		return "decimal(32,16)"
	case schema.FamilyInt:
		return "int"
	case schema.FamilyString, schema.FamilyJson, schema.FamilyUuid, schema.FamilyEnum:
		return "nvarchar(1000)"
	default:
		panic(fmt.Sprintf("mssql: column family %s is not handled", c.Type.Family))
	}
}

// indexName replaces dots; SQL Server rejects them in index names.
func indexName(idx *schema.Index) string {
	return strings.ReplaceAll(idx.Name, ".", "_")
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
