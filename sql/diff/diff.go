// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package diff compares two SQL schemas and produces an ordered
// migration plan. The plan is canonical: for a fixed input pair the
// emitted steps and their order are reproducible bit-for-bit, and the
// differ only produces steps the chosen flavour can render.
package diff

import (
	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// A Flavour provides the dialect capabilities the differ needs to
// shape the plan so that every emitted step is renderable.
type Flavour interface {
	// Name returns the dialect name.
	Name() string

	// InlineForeignKeys reports if foreign keys can only be declared
	// inside CREATE TABLE. For such dialects the differ emits no
	// AddForeignKey steps; foreign-key changes on existing tables
	// force a table redefinition instead.
	InlineForeignKeys() bool

	// RequiresRedefine reports if the given table change cannot be
	// applied with an in-place ALTER and forces a table rebuild.
	RequiresRedefine(c migrate.TableChange) bool
}

// Diff compares prev and next and returns the migration plan. Steps
// are emitted in a fixed top-order: drop foreign keys, drop and
// rename indices, drop tables, alter tables (or redefine, for
// dialects that rebuild), create enums, create tables, create
// indices, add foreign keys, then alter and drop enums. Within each
// group the input order is preserved.
func Diff(prev, next *schema.SqlSchema, f Flavour) (*migrate.Plan, error) {
	if err := schema.Validate(prev); err != nil {
		return nil, err
	}
	if err := schema.Validate(next); err != nil {
		return nil, err
	}
	d := &differ{prev: prev, next: next, flavour: f}
	d.diffTables()
	d.diffEnums()
	return d.assemble(), nil
}

// A ColumnDiffer compares two versions of one column.
type ColumnDiffer struct {
	Previous, Next *schema.Column
}

// Changes returns the set of changes between the two columns.
func (d ColumnDiffer) Changes() migrate.ColumnChanges {
	var c migrate.ColumnChanges
	if d.Previous.Type.Family != d.Next.Type.Family || d.Previous.Type.EnumName != d.Next.Type.EnumName {
		c |= migrate.ChangeType
	}
	if d.Previous.Type.Arity != d.Next.Type.Arity {
		c |= migrate.ChangeArity
	}
	if !schema.DefaultsEqual(d.Previous.Default, d.Next.Default) {
		c |= migrate.ChangeDefault
	}
	if d.Previous.AutoIncrement != d.Next.AutoIncrement {
		c |= migrate.ChangeAutoIncrement
	}
	return c
}

type differ struct {
	prev, next *schema.SqlSchema
	flavour    Flavour

	dropFKs     []migrate.Step
	dropIndexes []migrate.Step
	renames     []migrate.Step
	dropTables  []migrate.Step
	alters      []*migrate.AlterTable
	createEnums []migrate.Step
	creates     []migrate.Step
	addIndexes  []migrate.Step
	addFKs      []migrate.Step
	enumTail    []migrate.Step

	// fkChanged marks kept tables whose foreign keys changed; on
	// inline-FK dialects this forces a redefinition.
	fkChanged map[string]bool
}

func (d *differ) diffTables() {
	d.fkChanged = make(map[string]bool)
	for _, t1 := range d.prev.Tables {
		t2, ok := d.next.Table(t1.Name)
		if !ok {
			d.dropTables = append(d.dropTables, &migrate.DropTable{Table: t1.Name})
			continue
		}
		d.diffTable(t1, t2)
	}
	for _, t2 := range d.next.Tables {
		if _, ok := d.prev.Table(t2.Name); ok {
			continue
		}
		d.creates = append(d.creates, &migrate.CreateTable{Table: t2.Name})
		for _, idx := range t2.Indices {
			d.addIndexes = append(d.addIndexes, &migrate.CreateIndex{
				Table:               t2.Name,
				Index:               *idx,
				CausedByCreateTable: true,
			})
		}
		if !d.flavour.InlineForeignKeys() {
			for _, fk := range t2.ForeignKeys {
				d.addFKs = append(d.addFKs, &migrate.AddForeignKey{Table: t2.Name, ForeignKey: *fk})
			}
		}
	}
}

func (d *differ) diffTable(t1, t2 *schema.Table) {
	var changes []migrate.TableChange
	// Drop or modify columns.
	for _, c1 := range t1.Columns {
		c2, ok := t2.Column(c1.Name)
		if !ok {
			changes = append(changes, &migrate.DropColumn{Name: c1.Name})
			continue
		}
		if c := (ColumnDiffer{Previous: c1, Next: c2}).Changes(); c != migrate.NoChange {
			changes = append(changes, &migrate.AlterColumn{Name: c1.Name, Changes: c})
		}
	}
	// Add columns.
	for _, c2 := range t2.Columns {
		if _, ok := t1.Column(c2.Name); !ok {
			changes = append(changes, &migrate.AddColumn{Column: *c2})
		}
	}
	// Primary keys: a changed column set is a drop followed by an add.
	pk1, pk2 := t1.PrimaryKeyColumns(), t2.PrimaryKeyColumns()
	if !sqlx.ValuesEqual(pk1, pk2) {
		if len(pk1) > 0 {
			var name string
			if t1.PrimaryKey != nil {
				name = t1.PrimaryKey.ConstraintName
			}
			changes = append(changes, &migrate.DropPrimaryKey{ConstraintName: name})
		}
		if len(pk2) > 0 {
			changes = append(changes, &migrate.AddPrimaryKey{Columns: pk2})
		}
	}
	if len(changes) > 0 {
		d.alters = append(d.alters, &migrate.AlterTable{Table: t1.Name, Changes: changes})
	}
	d.diffForeignKeys(t1, t2)
	d.diffIndexes(t1, t2)
}

func (d *differ) diffForeignKeys(t1, t2 *schema.Table) {
	matched := make([]bool, len(t2.ForeignKeys))
	for _, fk1 := range t1.ForeignKeys {
		if i := matchFK(t2.ForeignKeys, fk1, matched); i >= 0 {
			matched[i] = true
			continue
		}
		d.fkChanged[t1.Name] = true
		if !d.flavour.InlineForeignKeys() {
			d.dropFKs = append(d.dropFKs, &migrate.DropForeignKey{Table: t1.Name, ConstraintName: fk1.ConstraintName})
		}
	}
	for i, fk2 := range t2.ForeignKeys {
		if matched[i] {
			continue
		}
		d.fkChanged[t1.Name] = true
		if !d.flavour.InlineForeignKeys() {
			d.addFKs = append(d.addFKs, &migrate.AddForeignKey{Table: t2.Name, ForeignKey: *fk2})
		}
	}
}

func matchFK(fks []*schema.ForeignKey, fk *schema.ForeignKey, matched []bool) int {
	for i, other := range fks {
		if matched[i] {
			continue
		}
		if sqlx.ValuesEqual(other.Columns, fk.Columns) &&
			other.ReferencedTable == fk.ReferencedTable &&
			sqlx.ValuesEqual(other.ReferencedColumns, fk.ReferencedColumns) {
			return i
		}
	}
	return -1
}

func (d *differ) diffIndexes(t1, t2 *schema.Table) {
	var (
		left    []*schema.Index
		matched = make([]bool, len(t2.Indices))
	)
	// Exact matches by name, columns and type.
	for _, idx1 := range t1.Indices {
		found := -1
		for i, idx2 := range t2.Indices {
			if matched[i] {
				continue
			}
			if idx1.Name == idx2.Name && idx1.Type == idx2.Type && sqlx.ValuesEqual(idx1.Columns, idx2.Columns) {
				found = i
				break
			}
		}
		if found >= 0 {
			matched[found] = true
			continue
		}
		left = append(left, idx1)
	}
	// Pure renames: same shape, different name.
	for _, idx1 := range left {
		renamed := -1
		for i, idx2 := range t2.Indices {
			if matched[i] {
				continue
			}
			if idx1.Type == idx2.Type && sqlx.ValuesEqual(idx1.Columns, idx2.Columns) {
				renamed = i
				break
			}
		}
		if renamed >= 0 {
			matched[renamed] = true
			d.renames = append(d.renames, &migrate.AlterIndex{
				Table:   t1.Name,
				Index:   idx1.Name,
				NewName: t2.Indices[renamed].Name,
			})
			continue
		}
		d.dropIndexes = append(d.dropIndexes, &migrate.DropIndex{Table: t1.Name, Index: idx1.Name})
	}
	for i, idx2 := range t2.Indices {
		if !matched[i] {
			d.addIndexes = append(d.addIndexes, &migrate.CreateIndex{Table: t2.Name, Index: *idx2})
		}
	}
}

func (d *differ) diffEnums() {
	for _, e1 := range d.prev.Enums {
		e2, ok := d.next.Enum(e1.Name)
		if !ok {
			d.enumTail = append(d.enumTail, &migrate.DropEnum{Name: e1.Name})
			continue
		}
		if sqlx.ValuesEqual(e1.Values, e2.Values) {
			continue
		}
		alter := &migrate.AlterEnum{Name: e1.Name}
		for _, v := range e2.Values {
			if !contains(e1.Values, v) {
				alter.AddedValues = append(alter.AddedValues, v)
			}
		}
		for _, v := range e1.Values {
			if !contains(e2.Values, v) {
				alter.RemovedValues = append(alter.RemovedValues, v)
			}
		}
		d.enumTail = append(d.enumTail, alter)
	}
	for _, e2 := range d.next.Enums {
		if _, ok := d.prev.Enum(e2.Name); !ok {
			d.createEnums = append(d.createEnums, &migrate.CreateEnum{Name: e2.Name, Values: e2.Values})
		}
	}
}

// assemble emits the plan groups in the fixed top-order and, for
// dialects that rebuild instead of altering in place, folds the
// affected tables into a single RedefineTables step. Index steps on
// rebuilt tables are dropped; the rebuild recreates the indices.
func (d *differ) assemble() *migrate.Plan {
	alters, redefined, rebuilt := d.splitRedefines()
	steps := make([]migrate.Step, 0, len(d.dropFKs)+len(d.dropIndexes)+len(d.dropTables)+len(alters)+len(d.creates)+len(d.addIndexes)+len(d.addFKs)+len(d.enumTail)+2)
	steps = append(steps, d.dropFKs...)
	steps = append(steps, skipTables(d.dropIndexes, rebuilt)...)
	steps = append(steps, skipTables(d.renames, rebuilt)...)
	steps = append(steps, d.dropTables...)
	for _, a := range alters {
		steps = append(steps, a)
	}
	if len(redefined) > 0 {
		steps = append(steps, &migrate.RedefineTables{Tables: redefined})
	}
	steps = append(steps, d.createEnums...)
	steps = append(steps, d.creates...)
	steps = append(steps, skipTables(d.addIndexes, rebuilt)...)
	steps = append(steps, d.addFKs...)
	steps = append(steps, d.enumTail...)
	return &migrate.Plan{Prev: d.prev, Next: d.next, Steps: steps}
}

// skipTables filters out index steps that touch a rebuilt table.
func skipTables(steps []migrate.Step, rebuilt map[string]bool) []migrate.Step {
	if len(rebuilt) == 0 {
		return steps
	}
	out := steps[:0:0]
	for _, step := range steps {
		var table string
		switch step := step.(type) {
		case *migrate.DropIndex:
			table = step.Table
		case *migrate.CreateIndex:
			table = step.Table
		case *migrate.AlterIndex:
			table = step.Table
		}
		if rebuilt[table] {
			continue
		}
		out = append(out, step)
	}
	return out
}

// splitRedefines returns the in-place AlterTable steps and the names
// of tables that must be rebuilt. A table is rebuilt when one of its
// column alterations cannot be applied in place, when its primary key
// changes on a rebuild-only dialect, or when its foreign keys changed
// and the dialect declares them inline.
func (d *differ) splitRedefines() ([]*migrate.AlterTable, []string, map[string]bool) {
	redefine := make(map[string]bool)
	if d.flavour.InlineForeignKeys() {
		for name, changed := range d.fkChanged {
			if changed {
				redefine[name] = true
			}
		}
	}
	for _, alter := range d.alters {
		for _, change := range alter.Changes {
			if d.flavour.RequiresRedefine(change) {
				redefine[alter.Table] = true
			}
		}
	}
	if len(redefine) == 0 {
		return d.alters, nil, nil
	}
	var (
		alters []*migrate.AlterTable
		names  []string
	)
	for _, alter := range d.alters {
		if redefine[alter.Table] {
			continue
		}
		alters = append(alters, alter)
	}
	// Preserve the next schema's table order for determinism.
	for _, t := range d.next.Tables {
		if redefine[t.Name] {
			names = append(names, t.Name)
		}
	}
	return alters, names, redefine
}

func contains(vs []string, v string) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}
