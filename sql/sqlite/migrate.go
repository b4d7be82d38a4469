// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"fmt"
	"strings"

	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// RenderCreateTable renders the CREATE TABLE statement: columns in
// declaration order, the primary-key constraint, inline unique
// constraints for unique indices over non-nullable columns, and the
// foreign keys. A single-column autoincrement primary key is inlined
// on the column definition.
func (f *Flavour) RenderCreateTable(t *schema.Table) (string, error) {
	b := Build("CREATE TABLE").Ident(t.Name)
	b.Wrap(func(b *sqlx.Builder) {
		b.MapComma(t.Columns, func(i int, b *sqlx.Builder) {
			f.column(b, t, t.Columns[i])
		})
		if pk := t.PrimaryKey; pk != nil && !autoincPK(t) {
			b.Comma().P("CONSTRAINT").Ident(pkConstraintName(t)).P("PRIMARY KEY")
			columnList(b, pk.Columns)
		}
		for _, idx := range t.Indices {
			if idx.IsUnique() && !sqlx.IndexHasNullableColumns(t, idx) {
				b.Comma().P("CONSTRAINT").Ident(idx.Name).P("UNIQUE")
				columnList(b, idx.Columns)
			}
		}
		for _, fk := range t.ForeignKeys {
			b.Comma()
			f.foreignKey(b, fk)
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

// RenderAlterTable renders plain column additions; everything else
// goes through table redefinition.
func (f *Flavour) RenderAlterTable(alter *migrate.AlterTable, prev, next *schema.SqlSchema) ([]string, error) {
	var stmts []string
	for _, change := range alter.Changes {
		add, ok := change.(*migrate.AddColumn)
		if !ok {
			return nil, fmt.Errorf("sqlite: unexpected alter table change %T on %q", change, alter.Table)
		}
		t, ok := next.Table(alter.Table)
		if !ok {
			return nil, fmt.Errorf("sqlite: alter table: %q not found in next schema", alter.Table)
		}
		b := Build("ALTER TABLE").Ident(alter.Table).P("ADD COLUMN")
		f.column(b, t, &add.Column)
		stmts = append(stmts, b.String())
	}
	return stmts, nil
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
	return Build("DROP INDEX").Ident(drop.Index).String()
}

// RenderAlterIndex drops and recreates the index; SQLite cannot
// rename an index in place.
func (f *Flavour) RenderAlterIndex(alter *migrate.AlterIndex, next *schema.SqlSchema) ([]string, error) {
	t, ok := next.Table(alter.Table)
	if !ok {
		return nil, fmt.Errorf("sqlite: alter index: table %q not found in next schema", alter.Table)
	}
	idx, ok := t.Index(alter.NewName)
	if !ok {
		return nil, fmt.Errorf("sqlite: alter index: %q not found on table %q", alter.NewName, alter.Table)
	}
	return []string{
		f.RenderDropIndex(&migrate.DropIndex{Table: alter.Table, Index: alter.Index}),
		f.RenderCreateIndex(t, idx),
	}, nil
}

// RenderAddForeignKey is unreachable on SQLite; foreign keys are
// declared inside CREATE TABLE.
func (f *Flavour) RenderAddForeignKey(*migrate.AddForeignKey) string {
	panic("sqlite: add foreign key is unreachable")
}

// RenderDropForeignKey is unreachable on SQLite; foreign keys are
// declared inside CREATE TABLE.
func (f *Flavour) RenderDropForeignKey(*migrate.DropForeignKey) string {
	panic("sqlite: drop foreign key is unreachable")
}

// RenderCreateEnum is unreachable on SQLite; the dialect has no
// enum types.
func (f *Flavour) RenderCreateEnum(*migrate.CreateEnum) []string {
	panic("sqlite: create enum is unreachable")
}

// RenderDropEnum is unreachable on SQLite; the dialect has no
// enum types.
func (f *Flavour) RenderDropEnum(*migrate.DropEnum) []string {
	panic("sqlite: drop enum is unreachable")
}

// RenderAlterEnum is unreachable on SQLite; the dialect has no
// enum types.
func (f *Flavour) RenderAlterEnum(*migrate.AlterEnum, *schema.SqlSchema) ([]string, error) {
	panic("sqlite: alter enum is unreachable")
}

// RenderRedefineTables rebuilds each table: a new table is created
// under a temporary name, the surviving rows are copied over, the old
// table is dropped, the new one is renamed into place and the indices
// are recreated. Foreign-key enforcement is suspended for the batch.
func (f *Flavour) RenderRedefineTables(tables []string, prev, next *schema.SqlSchema) ([]string, error) {
	stmts := []string{"PRAGMA foreign_keys = off"}
	for _, name := range tables {
		t1, ok := prev.Table(name)
		if !ok {
			return nil, fmt.Errorf("sqlite: redefine: table %q not found in previous schema", name)
		}
		t2, ok := next.Table(name)
		if !ok {
			return nil, fmt.Errorf("sqlite: redefine: table %q not found in next schema", name)
		}
		tmp := *t2
		tmp.Name = "new_" + t2.Name
		tmp.Indices = nil
		create, err := f.RenderCreateTable(&tmp)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, create)
		if cols := keptColumns(t1, t2); len(cols) > 0 {
			list := make([]string, len(cols))
			for i, c := range cols {
				list[i] = f.Quote(c)
			}
			stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
				f.Quote(tmp.Name), strings.Join(list, ", "), strings.Join(list, ", "), f.Quote(t1.Name)))
		}
		stmts = append(stmts, f.RenderDropTable(t1.Name))
		stmts = append(stmts, f.RenderRenameTable(tmp.Name, t2.Name))
		for _, idx := range t2.Indices {
			stmts = append(stmts, f.RenderCreateIndex(t2, idx))
		}
	}
	return append(stmts, "PRAGMA foreign_keys = on"), nil
}

// keptColumns returns the names of the columns present in both table
// versions, in the next version's order.
func keptColumns(t1, t2 *schema.Table) []string {
	var cols []string
	for _, c := range t2.Columns {
		if _, ok := t1.Column(c.Name); ok {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func (f *Flavour) column(b *sqlx.Builder, t *schema.Table, c *schema.Column) {
	if c.AutoIncrement && t.IsPartOfPrimaryKey(c.Name) && len(t.PrimaryKeyColumns()) == 1 {
		b.Ident(c.Name).P("INTEGER PRIMARY KEY AUTOINCREMENT")
		return
	}
	b.Ident(c.Name).P(f.columnTypeSQL(c)).P(sqlx.Nullability(c))
	if c.Default != nil {
		if d := f.RenderDefault(c.Default, c.Type.Family); d != "" {
			b.P("DEFAULT", d)
		}
	}
}

func (f *Flavour) foreignKey(b *sqlx.Builder, fk *schema.ForeignKey) {
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
}

func (f *Flavour) columnTypeSQL(c *schema.Column) string {
	if c.Type.FullDataType != "" {
		return c.Type.FullDataType
	}
	switch c.Type.Family {
	case schema.FamilyInt:
		return "INTEGER"
	case schema.FamilyFloat:
		return "REAL"
	case schema.FamilyBoolean:
		return "BOOLEAN"
	case schema.FamilyDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func autoincPK(t *schema.Table) bool {
	pk := t.PrimaryKey
	if pk == nil || len(pk.Columns) != 1 {
		return false
	}
	c, ok := t.Column(pk.Columns[0])
	return ok && c.AutoIncrement
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
