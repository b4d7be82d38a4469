// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

func postsTable() *schema.Table {
	return &schema.Table{
		Name: "posts",
		Columns: []*schema.Column{
			{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
			{Name: "author", Type: schema.ColumnType{Family: schema.FamilyInt, FullDataType: "INTEGER", Arity: schema.Required}},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		ForeignKeys: []*schema.ForeignKey{{
			Columns:           []string{"author"},
			ReferencedTable:   "users",
			ReferencedColumns: []string{"id"},
			OnDelete:          schema.Cascade,
			OnUpdate:          schema.NoAction,
		}},
	}
}

func TestRenderCreateTableInlinesPrimaryKeyAndForeignKeys(t *testing.T) {
	stmt, err := New().RenderCreateTable(postsTable())
	require.NoError(t, err)
	require.Equal(t,
		`CREATE TABLE "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "author" INTEGER NOT NULL, `+
			`FOREIGN KEY ("author") REFERENCES "users" ("id") ON DELETE CASCADE ON UPDATE NO ACTION)`,
		stmt)
}

func TestRenderAlterTableOnlyAddsColumns(t *testing.T) {
	next := &schema.SqlSchema{Tables: []*schema.Table{{
		Name: "users",
		Columns: []*schema.Column{
			{Name: "age", Type: schema.ColumnType{Family: schema.FamilyInt, FullDataType: "INTEGER", Arity: schema.Nullable}},
		},
	}}}
	f := New()
	stmts, err := f.RenderAlterTable(&migrate.AlterTable{
		Table:   "users",
		Changes: []migrate.TableChange{&migrate.AddColumn{Column: *next.Tables[0].Columns[0]}},
	}, &schema.SqlSchema{}, next)
	require.NoError(t, err)
	require.Equal(t, []string{`ALTER TABLE "users" ADD COLUMN "age" INTEGER`}, stmts)

	_, err = f.RenderAlterTable(&migrate.AlterTable{
		Table:   "users",
		Changes: []migrate.TableChange{&migrate.DropColumn{Name: "age"}},
	}, &schema.SqlSchema{}, next)
	require.Error(t, err)
}

func TestRenderRedefineTables(t *testing.T) {
	prev := &schema.SqlSchema{Tables: []*schema.Table{{
		Name: "users",
		Columns: []*schema.Column{
			{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt, FullDataType: "INTEGER", Arity: schema.Required}},
			{Name: "age", Type: schema.ColumnType{Family: schema.FamilyInt, FullDataType: "INTEGER", Arity: schema.Nullable}},
			{Name: "legacy", Type: schema.ColumnType{Family: schema.FamilyString, FullDataType: "TEXT", Arity: schema.Nullable}},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
	}}}
	next := &schema.SqlSchema{Tables: []*schema.Table{{
		Name: "users",
		Columns: []*schema.Column{
			{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt, FullDataType: "INTEGER", Arity: schema.Required}},
			{Name: "age", Type: schema.ColumnType{Family: schema.FamilyString, FullDataType: "TEXT", Arity: schema.Nullable}},
		},
		PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		Indices: []*schema.Index{
			{Name: "users_age", Columns: []string{"age"}, Type: schema.IndexNormal},
		},
	}}}
	stmts, err := New().RenderRedefineTables([]string{"users"}, prev, next)
	require.NoError(t, err)
	require.Equal(t, []string{
		"PRAGMA foreign_keys = off",
		`CREATE TABLE "new_users" ("id" INTEGER NOT NULL, "age" TEXT, CONSTRAINT "PK_new_users_id" PRIMARY KEY ("id"))`,
		`INSERT INTO "new_users" ("id", "age") SELECT "id", "age" FROM "users"`,
		`DROP TABLE "users"`,
		`ALTER TABLE "new_users" RENAME TO "users"`,
		`CREATE INDEX "users_age" ON "users" ("age")`,
		"PRAGMA foreign_keys = on",
	}, stmts)
}

func TestForeignKeyStatementsAreUnreachable(t *testing.T) {
	f := New()
	require.Panics(t, func() { f.RenderAddForeignKey(&migrate.AddForeignKey{Table: "t"}) })
	require.Panics(t, func() { f.RenderDropForeignKey(&migrate.DropForeignKey{Table: "t"}) })
	require.Panics(t, func() { f.RenderCreateEnum(&migrate.CreateEnum{Name: "Role"}) })
}
