// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/mssql"
	"github.com/schemaflow/schemaflow/sql/postgres"
	"github.com/schemaflow/schemaflow/sql/schema"
	"github.com/schemaflow/schemaflow/sql/sqlite"
)

func users(columns ...*schema.Column) *schema.SqlSchema {
	return &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name:       "users",
			Columns:    columns,
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		}},
	}
}

func idColumn() *schema.Column {
	return &schema.Column{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true}
}

func TestDiffIdempotence(t *testing.T) {
	s := users(idColumn(), &schema.Column{Name: "name", Type: schema.NewColumnType(schema.FamilyString, schema.Required)})
	for _, f := range []diff.Flavour{postgres.New(), sqlite.New(), mssql.New()} {
		plan, err := diff.Diff(s, s, f)
		require.NoError(t, err)
		require.Empty(t, plan.Steps, f.Name())
	}
}

func TestDiffCreateAndDropTable(t *testing.T) {
	prev := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name:       "legacy",
			Columns:    []*schema.Column{idColumn()},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		}},
	}
	next := users(idColumn())
	plan, err := diff.Diff(prev, next, postgres.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.DropTable{Table: "legacy"},
		&migrate.CreateTable{Table: "users"},
	}, plan.Steps)
}

func TestDiffColumns(t *testing.T) {
	prev := users(
		idColumn(),
		&schema.Column{Name: "name", Type: schema.NewColumnType(schema.FamilyString, schema.Nullable)},
		&schema.Column{Name: "legacy", Type: schema.NewColumnType(schema.FamilyString, schema.Nullable)},
	)
	next := users(
		idColumn(),
		&schema.Column{Name: "name", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
		&schema.Column{Name: "added", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)},
	)
	plan, err := diff.Diff(prev, next, postgres.New())
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)

	alter, ok := plan.Steps[0].(*migrate.AlterTable)
	require.True(t, ok)
	require.Equal(t, "users", alter.Table)
	require.Len(t, alter.Changes, 3)

	ac, ok := alter.Changes[0].(*migrate.AlterColumn)
	require.True(t, ok)
	require.Equal(t, "name", ac.Name)
	require.True(t, ac.Changes.ArityChanged())
	require.False(t, ac.Changes.TypeChanged())

	dc, ok := alter.Changes[1].(*migrate.DropColumn)
	require.True(t, ok)
	require.Equal(t, "legacy", dc.Name)

	add, ok := alter.Changes[2].(*migrate.AddColumn)
	require.True(t, ok)
	require.Equal(t, "added", add.Column.Name)
}

func TestColumnDifferChanges(t *testing.T) {
	d := diff.ColumnDiffer{
		Previous: &schema.Column{Name: "x", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)},
		Next:     &schema.Column{Name: "x", Type: schema.NewColumnType(schema.FamilyString, schema.Required), Default: &schema.Value{V: "v"}, AutoIncrement: true},
	}
	c := d.Changes()
	require.True(t, c.TypeChanged())
	require.True(t, c.ArityChanged())
	require.True(t, c.DefaultChanged())
	require.True(t, c.AutoIncrementChanged())

	same := diff.ColumnDiffer{
		Previous: &schema.Column{Name: "x", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), Default: &schema.Value{V: int64(1)}},
		Next:     &schema.Column{Name: "x", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), Default: &schema.Value{V: int64(1)}},
	}
	require.Equal(t, migrate.NoChange, same.Changes())
}

func TestDiffPrimaryKeyChange(t *testing.T) {
	prev := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "t",
			Columns: []*schema.Column{
				{Name: "a", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				{Name: "b", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"a"}, ConstraintName: "t_pkey"},
		}},
	}
	next := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "t",
			Columns: []*schema.Column{
				{Name: "a", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				{Name: "b", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"a", "b"}},
		}},
	}
	plan, err := diff.Diff(prev, next, postgres.New())
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	alter := plan.Steps[0].(*migrate.AlterTable)
	require.Equal(t, []migrate.TableChange{
		&migrate.DropPrimaryKey{ConstraintName: "t_pkey"},
		&migrate.AddPrimaryKey{Columns: []string{"a", "b"}},
	}, alter.Changes)
}

func TestDiffForeignKeys(t *testing.T) {
	base := func(fks ...*schema.ForeignKey) *schema.SqlSchema {
		return &schema.SqlSchema{
			Tables: []*schema.Table{
				{
					Name:       "users",
					Columns:    []*schema.Column{idColumn()},
					PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				},
				{
					Name: "posts",
					Columns: []*schema.Column{
						idColumn(),
						{Name: "author", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
					},
					PrimaryKey:  &schema.PrimaryKey{Columns: []string{"id"}},
					ForeignKeys: fks,
				},
			},
		}
	}
	fk := &schema.ForeignKey{
		ConstraintName:    "posts_author_fkey",
		Columns:           []string{"author"},
		ReferencedTable:   "users",
		ReferencedColumns: []string{"id"},
		OnDelete:          schema.Cascade,
		OnUpdate:          schema.NoAction,
	}
	// Added.
	plan, err := diff.Diff(base(), base(fk), postgres.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{&migrate.AddForeignKey{Table: "posts", ForeignKey: *fk}}, plan.Steps)
	// Dropped.
	plan, err = diff.Diff(base(fk), base(), postgres.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{&migrate.DropForeignKey{Table: "posts", ConstraintName: "posts_author_fkey"}}, plan.Steps)
	// Matched by shape, not by name.
	renamed := *fk
	renamed.ConstraintName = "fk_posts_author"
	plan, err = diff.Diff(base(fk), base(&renamed), postgres.New())
	require.NoError(t, err)
	require.Empty(t, plan.Steps)
}

func TestDiffIndexRename(t *testing.T) {
	base := func(idx *schema.Index) *schema.SqlSchema {
		return &schema.SqlSchema{
			Tables: []*schema.Table{{
				Name: "users",
				Columns: []*schema.Column{
					idColumn(),
					{Name: "email", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
				},
				Indices:    []*schema.Index{idx},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			}},
		}
	}
	plan, err := diff.Diff(
		base(&schema.Index{Name: "old", Columns: []string{"email"}, Type: schema.IndexUnique}),
		base(&schema.Index{Name: "new", Columns: []string{"email"}, Type: schema.IndexUnique}),
		postgres.New(),
	)
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.AlterIndex{Table: "users", Index: "old", NewName: "new"},
	}, plan.Steps)

	// A changed column set is a drop and a create.
	plan, err = diff.Diff(
		base(&schema.Index{Name: "idx", Columns: []string{"email"}, Type: schema.IndexUnique}),
		base(&schema.Index{Name: "idx", Columns: []string{"email", "id"}, Type: schema.IndexUnique}),
		postgres.New(),
	)
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.DropIndex{Table: "users", Index: "idx"},
		&migrate.CreateIndex{Table: "users", Index: schema.Index{Name: "idx", Columns: []string{"email", "id"}, Type: schema.IndexUnique}},
	}, plan.Steps)
}

func TestDiffEnums(t *testing.T) {
	prev := &schema.SqlSchema{Enums: []*schema.Enum{
		{Name: "Role", Values: []string{"USER", "ADMIN"}},
		{Name: "Legacy", Values: []string{"A"}},
	}}
	next := &schema.SqlSchema{Enums: []*schema.Enum{
		{Name: "Role", Values: []string{"USER", "OWNER"}},
		{Name: "Color", Values: []string{"RED"}},
	}}
	plan, err := diff.Diff(prev, next, postgres.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.CreateEnum{Name: "Color", Values: []string{"RED"}},
		&migrate.AlterEnum{Name: "Role", AddedValues: []string{"OWNER"}, RemovedValues: []string{"ADMIN"}},
		&migrate.DropEnum{Name: "Legacy"},
	}, plan.Steps)
}

func TestDiffEmissionOrder(t *testing.T) {
	prev := &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name:       "keep",
				Columns:    []*schema.Column{idColumn(), {Name: "x", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)}},
				Indices:    []*schema.Index{{Name: "keep_x", Columns: []string{"x"}, Type: schema.IndexNormal}},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []*schema.ForeignKey{{
					ConstraintName:    "keep_x_fkey",
					Columns:           []string{"x"},
					ReferencedTable:   "keep",
					ReferencedColumns: []string{"id"},
				}},
			},
			{
				Name:       "gone",
				Columns:    []*schema.Column{idColumn()},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
		},
	}
	next := &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name:       "keep",
				Columns:    []*schema.Column{idColumn(), {Name: "y", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)}},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
			{
				Name:       "fresh",
				Columns:    []*schema.Column{idColumn()},
				Indices:    []*schema.Index{{Name: "fresh_id", Columns: []string{"id"}, Type: schema.IndexNormal}},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
		},
		Enums: []*schema.Enum{{Name: "Role", Values: []string{"USER"}}},
	}
	plan, err := diff.Diff(prev, next, postgres.New())
	require.NoError(t, err)

	var kinds []string
	for _, step := range plan.Steps {
		switch step.(type) {
		case *migrate.DropForeignKey:
			kinds = append(kinds, "dropFK")
		case *migrate.DropIndex:
			kinds = append(kinds, "dropIndex")
		case *migrate.DropTable:
			kinds = append(kinds, "dropTable")
		case *migrate.AlterTable:
			kinds = append(kinds, "alterTable")
		case *migrate.CreateEnum:
			kinds = append(kinds, "createEnum")
		case *migrate.CreateTable:
			kinds = append(kinds, "createTable")
		case *migrate.CreateIndex:
			kinds = append(kinds, "createIndex")
		}
	}
	require.Equal(t, []string{"dropFK", "dropIndex", "dropTable", "alterTable", "createEnum", "createTable", "createIndex"}, kinds)
}

func TestDiffSqliteRedefinesOnColumnChange(t *testing.T) {
	prev := users(idColumn(), &schema.Column{Name: "age", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)})
	next := users(idColumn(), &schema.Column{Name: "age", Type: schema.NewColumnType(schema.FamilyString, schema.Nullable)})
	plan, err := diff.Diff(prev, next, sqlite.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.RedefineTables{Tables: []string{"users"}},
	}, plan.Steps)
}

func TestDiffSqliteAddsColumnInPlace(t *testing.T) {
	prev := users(idColumn())
	next := users(idColumn(), &schema.Column{Name: "age", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)})
	plan, err := diff.Diff(prev, next, sqlite.New())
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	alter, ok := plan.Steps[0].(*migrate.AlterTable)
	require.True(t, ok)
	require.Len(t, alter.Changes, 1)
	_, ok = alter.Changes[0].(*migrate.AddColumn)
	require.True(t, ok)
}

func TestDiffSqliteForeignKeyChangeRedefines(t *testing.T) {
	base := func(fks ...*schema.ForeignKey) *schema.SqlSchema {
		return &schema.SqlSchema{
			Tables: []*schema.Table{{
				Name: "users",
				Columns: []*schema.Column{
					idColumn(),
					{Name: "invitedBy", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)},
				},
				PrimaryKey:  &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: fks,
			}},
		}
	}
	plan, err := diff.Diff(base(), base(&schema.ForeignKey{
		Columns:           []string{"invitedBy"},
		ReferencedTable:   "users",
		ReferencedColumns: []string{"id"},
	}), sqlite.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.RedefineTables{Tables: []string{"users"}},
	}, plan.Steps)
}

func TestDiffSqliteRedefineSwallowsIndexSteps(t *testing.T) {
	base := func(arity schema.ColumnArity, idx string) *schema.SqlSchema {
		return &schema.SqlSchema{
			Tables: []*schema.Table{{
				Name: "users",
				Columns: []*schema.Column{
					idColumn(),
					{Name: "email", Type: schema.NewColumnType(schema.FamilyString, arity)},
				},
				Indices:    []*schema.Index{{Name: idx, Columns: []string{"email"}, Type: schema.IndexUnique}},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			}},
		}
	}
	// The rebuild recreates the renamed index; no separate index
	// steps survive.
	plan, err := diff.Diff(base(schema.Nullable, "old"), base(schema.Required, "new"), sqlite.New())
	require.NoError(t, err)
	require.Equal(t, []migrate.Step{
		&migrate.RedefineTables{Tables: []string{"users"}},
	}, plan.Steps)
}
