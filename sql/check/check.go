// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package check classifies migration plan steps as safe, warned or
// unexecutable. The checker never rewrites the plan; it annotates it,
// and the host decides whether to proceed.
package check

import (
	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// A WarningKind identifies a class of warned steps.
type WarningKind string

// List of warning kinds.
const (
	// WarnAgainstExistingData marks steps that destroy rows or
	// values that may exist: dropped tables and columns.
	WarnAgainstExistingData WarningKind = "AgainstExistingData"
	// WarnTypeChanged marks column alterations whose type family
	// changed and may not cast cleanly.
	WarnTypeChanged WarningKind = "TypeChanged"
	// WarnAlterColumn marks column alterations a rebuild-only
	// dialect applies by copying the table.
	WarnAlterColumn WarningKind = "AlterColumn"
)

// An UnexecutableKind identifies a class of steps that cannot run
// against a non-empty database.
type UnexecutableKind string

// List of unexecutable kinds.
const (
	// UnexecutableMadeOptionalFieldRequired marks a column that
	// became required with no default to fill existing rows.
	UnexecutableMadeOptionalFieldRequired UnexecutableKind = "MadeOptionalFieldRequired"
)

type (
	// A Warning annotates one plan step as potentially destructive.
	Warning struct {
		Kind      WarningKind
		Table     string
		Column    string
		StepIndex int
	}

	// An Unexecutable annotates one plan step that would fail
	// against a non-empty database instance.
	Unexecutable struct {
		Kind      UnexecutableKind
		Table     string
		Column    string
		StepIndex int
	}

	// A Result groups the annotations of one plan.
	Result struct {
		Warnings      []Warning
		Unexecutables []Unexecutable
	}

	// A Flavour provides the dialect-specific alter-column rules.
	Flavour interface {
		// CheckAlterColumn classifies the column alteration and
		// appends its annotations to the result.
		CheckAlterColumn(d diff.ColumnDiffer, table string, r *Result, stepIndex int)
	}
)

func (r *Result) pushWarning(w Warning)           { r.Warnings = append(r.Warnings, w) }
func (r *Result) pushUnexecutable(u Unexecutable) { r.Unexecutables = append(r.Unexecutables, u) }

// HasBlockers reports if any step was classified unexecutable.
func (r *Result) HasBlockers() bool { return len(r.Unexecutables) > 0 }

// Check classifies every step of the plan.
func Check(p *migrate.Plan, f Flavour) *Result {
	r := &Result{}
	for i, step := range p.Steps {
		switch step := step.(type) {
		case *migrate.DropTable:
			r.pushWarning(Warning{Kind: WarnAgainstExistingData, Table: step.Table, StepIndex: i})
		case *migrate.AlterTable:
			checkAlterTable(p, step, f, r, i)
		case *migrate.RedefineTables:
			// Rebuilt tables carry their column changes implicitly;
			// classify them as if they were altered in place.
			for _, name := range step.Tables {
				checkRedefined(p, name, f, r, i)
			}
		}
	}
	return r
}

func checkRedefined(p *migrate.Plan, table string, f Flavour, r *Result, stepIndex int) {
	t1, ok1 := p.Prev.Table(table)
	t2, ok2 := p.Next.Table(table)
	if !ok1 || !ok2 {
		return
	}
	for _, c1 := range t1.Columns {
		c2, ok := t2.Column(c1.Name)
		if !ok {
			r.pushWarning(Warning{Kind: WarnAgainstExistingData, Table: table, Column: c1.Name, StepIndex: stepIndex})
			continue
		}
		if d := (diff.ColumnDiffer{Previous: c1, Next: c2}); d.Changes() != migrate.NoChange {
			f.CheckAlterColumn(d, table, r, stepIndex)
		}
	}
}

func checkAlterTable(p *migrate.Plan, alter *migrate.AlterTable, f Flavour, r *Result, stepIndex int) {
	for _, change := range alter.Changes {
		switch change := change.(type) {
		case *migrate.DropColumn:
			r.pushWarning(Warning{Kind: WarnAgainstExistingData, Table: alter.Table, Column: change.Name, StepIndex: stepIndex})
		case *migrate.AlterColumn:
			prev, next := resolveColumns(p, alter.Table, change.Name)
			if prev == nil || next == nil {
				continue
			}
			f.CheckAlterColumn(diff.ColumnDiffer{Previous: prev, Next: next}, alter.Table, r, stepIndex)
		}
	}
}

func resolveColumns(p *migrate.Plan, table, column string) (prev, next *schema.Column) {
	if t, ok := p.Prev.Table(table); ok {
		prev, _ = t.Column(column)
	}
	if t, ok := p.Next.Table(table); ok {
		next, _ = t.Column(column)
	}
	return prev, next
}

// AlterColumn implements the generic alter-column classification: a
// column that became required with no default is unexecutable, and a
// changed type family warns. Dialects with stricter rules provide
// their own implementation.
func AlterColumn(d diff.ColumnDiffer, table string, r *Result, stepIndex int) {
	changes := d.Changes()
	if changes.ArityChanged() && d.Next.Type.Arity.IsRequired() && d.Next.Default == nil {
		r.pushUnexecutable(Unexecutable{
			Kind:      UnexecutableMadeOptionalFieldRequired,
			Table:     table,
			Column:    d.Previous.Name,
			StepIndex: stepIndex,
		})
	}
	if changes.TypeChanged() {
		r.pushWarning(Warning{Kind: WarnTypeChanged, Table: table, Column: d.Next.Name, StepIndex: stepIndex})
	}
}

// SqliteAlterColumn implements the SQLite alter-column rules: the
// table is rebuilt on any type change or on a column becoming
// required, so those alterations warn, and a column that became
// required with no default stays unexecutable. List arity never
// reaches SQLite.
func SqliteAlterColumn(d diff.ColumnDiffer, table string, r *Result, stepIndex int) {
	if d.Previous.Type.Arity.IsList() || d.Next.Type.Arity.IsList() {
		panic("check: list columns are unsupported on sqlite")
	}
	changes := d.Changes()
	arityChangeSafe := !(d.Previous.Type.Arity.IsNullable() && d.Next.Type.Arity.IsRequired())
	if !changes.TypeChanged() && arityChangeSafe {
		return
	}
	if changes.ArityChanged() && d.Next.Type.Arity.IsRequired() && d.Next.Default == nil {
		r.pushUnexecutable(Unexecutable{
			Kind:      UnexecutableMadeOptionalFieldRequired,
			Table:     table,
			Column:    d.Previous.Name,
			StepIndex: stepIndex,
		})
	}
	r.pushWarning(Warning{Kind: WarnAlterColumn, Table: table, Column: d.Next.Name, StepIndex: stepIndex})
}
