// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package postgres

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
// changes as comma-separated actions.
func (f *Flavour) RenderAlterTable(alter *migrate.AlterTable, prev, next *schema.SqlSchema) ([]string, error) {
	t2, ok := next.Table(alter.Table)
	if !ok {
		t2, ok = prev.Table(alter.Table)
	}
	if !ok {
		return nil, fmt.Errorf("postgres: alter table: %q not found", alter.Table)
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
				return nil, fmt.Errorf("postgres: alter column: %q.%q not found", alter.Table, change.Name)
			}
			f.alterColumn(b, alter.Table, c, change.Changes)
		case *migrate.AddPrimaryKey:
			b.P("ADD PRIMARY KEY")
			columnList(b, change.Columns)
		case *migrate.DropPrimaryKey:
			name := change.ConstraintName
			if name == "" {
				name = alter.Table + "_pkey"
			}
			b.P("DROP CONSTRAINT").Ident(name)
		}
	}
	return []string{b.String()}, nil
}

func (f *Flavour) alterColumn(b *sqlx.Builder, table string, c *schema.Column, changes migrate.ColumnChanges) {
	var actions []string
	if changes.TypeChanged() {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET DATA TYPE %s", f.Quote(c.Name), f.columnTypeSQL(c)))
	}
	if changes.ArityChanged() {
		if c.Type.Arity.IsRequired() {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", f.Quote(c.Name)))
		} else {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", f.Quote(c.Name)))
		}
	}
	if changes.DefaultChanged() {
		if c.Default == nil {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", f.Quote(c.Name)))
		} else {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", f.Quote(c.Name), f.RenderDefault(c.Default, c.Type.Family)))
		}
	}
	if changes.AutoIncrementChanged() {
		if c.AutoIncrement {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s ADD GENERATED BY DEFAULT AS IDENTITY", f.Quote(c.Name)))
		} else {
			actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP IDENTITY IF EXISTS", f.Quote(c.Name)))
		}
	}
	b.P(strings.Join(actions, ", "))
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

// RenderAlterIndex renders the index rename statement.
func (f *Flavour) RenderAlterIndex(alter *migrate.AlterIndex, _ *schema.SqlSchema) ([]string, error) {
	return []string{
		Build("ALTER INDEX").Ident(alter.Index).P("RENAME TO").Ident(alter.NewName).String(),
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
	return Build("ALTER TABLE").Ident(drop.Table).P("DROP CONSTRAINT").Ident(drop.ConstraintName).String()
}

// RenderCreateEnum renders the CREATE TYPE ... AS ENUM statement.
func (f *Flavour) RenderCreateEnum(create *migrate.CreateEnum) []string {
	b := Build("CREATE TYPE").Ident(create.Name).P("AS ENUM")
	b.Wrap(func(b *sqlx.Builder) {
		b.MapComma(create.Values, func(i int, b *sqlx.Builder) {
			b.P(sqlx.SingleQuote(create.Values[i]))
		})
	})
	return []string{b.String()}
}

// RenderDropEnum renders the DROP TYPE statement.
func (f *Flavour) RenderDropEnum(drop *migrate.DropEnum) []string {
	return []string{Build("DROP TYPE").Ident(drop.Name).String()}
}

// RenderAlterEnum renders added values with ALTER TYPE ... ADD VALUE.
// Removing values rewrites the type: the old type is renamed, a new
// one is created with the remaining values, every column using it is
// converted, and the old type is dropped.
func (f *Flavour) RenderAlterEnum(alter *migrate.AlterEnum, next *schema.SqlSchema) ([]string, error) {
	if len(alter.RemovedValues) == 0 {
		stmts := make([]string, 0, len(alter.AddedValues))
		for _, v := range alter.AddedValues {
			stmts = append(stmts, Build("ALTER TYPE").Ident(alter.Name).P("ADD VALUE", sqlx.SingleQuote(v)).String())
		}
		return stmts, nil
	}
	e, ok := next.Enum(alter.Name)
	if !ok {
		return nil, fmt.Errorf("postgres: alter enum: %q not found in next schema", alter.Name)
	}
	old := alter.Name + "_old"
	stmts := []string{
		Build("ALTER TYPE").Ident(alter.Name).P("RENAME TO").Ident(old).String(),
	}
	stmts = append(stmts, f.RenderCreateEnum(&migrate.CreateEnum{Name: alter.Name, Values: e.Values})...)
	for _, t := range next.Tables {
		for _, c := range t.Columns {
			if c.Type.Family == schema.FamilyEnum && c.Type.EnumName == alter.Name {
				stmts = append(stmts, Build("ALTER TABLE").Ident(t.Name).
					P("ALTER COLUMN").Ident(c.Name).
					P(fmt.Sprintf("TYPE %s USING (%s::text::%s)", f.Quote(alter.Name), f.Quote(c.Name), f.Quote(alter.Name))).String())
			}
		}
	}
	stmts = append(stmts, Build("DROP TYPE").Ident(old).String())
	return stmts, nil
}

// RenderRedefineTables is unreachable on PostgreSQL; tables are
// altered in place.
func (f *Flavour) RenderRedefineTables([]string, *schema.SqlSchema, *schema.SqlSchema) ([]string, error) {
	panic("postgres: redefine tables is unreachable")
}

func (f *Flavour) column(b *sqlx.Builder, c *schema.Column) {
	b.Ident(c.Name).P(f.columnTypeSQL(c))
	if c.AutoIncrement {
		return
	}
	b.P(sqlx.Nullability(c))
	if c.Default != nil {
		if d := f.RenderDefault(c.Default, c.Type.Family); d != "" {
			b.P("DEFAULT", d)
		}
	}
}

func (f *Flavour) columnTypeSQL(c *schema.Column) string {
	if c.AutoIncrement {
		if strings.EqualFold(c.Type.DataType, "bigint") {
			return "BIGSERIAL"
		}
		return "SERIAL"
	}
	if c.Type.FullDataType != "" {
		return c.Type.FullDataType
	}
	switch c.Type.Family {
	case schema.FamilyInt:
		return "integer"
	case schema.FamilyFloat:
		return "decimal(65,30)"
	case schema.FamilyBoolean:
		return "boolean"
	case schema.FamilyString, schema.FamilyUuid:
		return "text"
	case schema.FamilyDateTime:
		return "timestamp(3)"
	case schema.FamilyJson:
		return "jsonb"
	case schema.FamilyEnum:
		return f.Quote(c.Type.EnumName)
	default:
		return "text"
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
