// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package calculate turns a data model into the SQL schema the engine
// would create for it, parameterised by a dialect flavour. Tables
// follow model declaration order, columns follow field declaration
// order, and foreign keys and indices follow their source order.
package calculate

import (
	"fmt"

	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// A Flavour provides the dialect capabilities the calculator needs:
// deriving column types and deciding how enums are expressed.
type Flavour interface {
	// Name returns the dialect name.
	Name() string

	// ColumnType derives the SQL column type of a scalar field, from
	// its declared native type when present or from the dialect's
	// default mapping of the scalar kind.
	ColumnType(f *datamodel.ScalarField, dm *datamodel.Datamodel) (schema.ColumnType, error)

	// CalculateEnums returns the schema-level enum types of the data
	// model. Dialects that express enums inline return nil.
	CalculateEnums(dm *datamodel.Datamodel) []*schema.Enum
}

// Calculate computes the SQL schema for the data model.
func Calculate(dm *datamodel.Datamodel, f Flavour) (*schema.SqlSchema, error) {
	if err := datamodel.Validate(dm); err != nil {
		return nil, err
	}
	s := &schema.SqlSchema{Enums: f.CalculateEnums(dm)}
	for _, m := range dm.Models {
		if m.IsCommentedOut {
			continue
		}
		t, err := calculateTable(m, dm, f)
		if err != nil {
			return nil, err
		}
		s.Tables = append(s.Tables, t)
	}
	joins, err := calculateJoinTables(dm, f)
	if err != nil {
		return nil, err
	}
	s.Tables = append(s.Tables, joins...)
	return s, nil
}

func calculateTable(m *datamodel.Model, dm *datamodel.Datamodel, f Flavour) (*schema.Table, error) {
	t := &schema.Table{Name: m.FinalDatabaseName()}
	var pkColumns []string
	for _, sf := range m.ScalarFields() {
		if sf.IsCommentedOut {
			continue
		}
		ct, err := f.ColumnType(sf, dm)
		if err != nil {
			return nil, fmt.Errorf("calculate: model %q field %q: %w", m.Name, sf.Name, err)
		}
		c := &schema.Column{Name: sf.FinalDatabaseName(), Type: ct}
		switch d := sf.Default.(type) {
		case nil:
		case *datamodel.Single:
			c.Default = &schema.Value{V: d.V}
		case *datamodel.Expression:
			switch d.Generator {
			case datamodel.GeneratorAutoincrement:
				c.AutoIncrement = true
			case datamodel.GeneratorNow:
				c.Default = &schema.Now{}
			case datamodel.GeneratorDBGenerated:
				c.Default = &schema.DBGenerated{X: d.X}
			default:
				return nil, fmt.Errorf("calculate: model %q field %q: unknown generator %q", m.Name, sf.Name, d.Generator)
			}
		}
		t.Columns = append(t.Columns, c)
		if sf.IsID {
			pkColumns = append(pkColumns, c.Name)
		}
		if sf.IsUnique {
			t.Indices = append(t.Indices, &schema.Index{
				Name:    fmt.Sprintf("%s_%s_unique", t.Name, c.Name),
				Columns: []string{c.Name},
				Type:    schema.IndexUnique,
			})
		}
	}
	for _, name := range m.IDFields {
		sf, ok := m.ScalarField(name)
		if !ok {
			return nil, fmt.Errorf("calculate: model %q compound id references unknown field %q", m.Name, name)
		}
		pkColumns = append(pkColumns, sf.FinalDatabaseName())
	}
	if len(pkColumns) > 0 {
		t.PrimaryKey = &schema.PrimaryKey{Columns: pkColumns}
	}
	for _, def := range m.Indexes {
		idx := &schema.Index{Name: def.Name, Type: schema.IndexType(def.Type)}
		for _, field := range def.Fields {
			sf, ok := m.ScalarField(field)
			if !ok {
				return nil, fmt.Errorf("calculate: index on model %q references unknown field %q", m.Name, field)
			}
			idx.Columns = append(idx.Columns, sf.FinalDatabaseName())
		}
		if idx.Name == "" {
			idx.Name = indexName(t.Name, idx)
		}
		t.Indices = append(t.Indices, idx)
	}
	for _, rf := range m.RelationFields() {
		if !rf.OwnsRelation() {
			continue
		}
		fk, err := calculateForeignKey(m, rf, dm)
		if err != nil {
			return nil, err
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	return t, nil
}

func calculateForeignKey(m *datamodel.Model, rf *datamodel.RelationField, dm *datamodel.Datamodel) (*schema.ForeignKey, error) {
	ref, ok := dm.Model(rf.Info.To)
	if !ok {
		return nil, fmt.Errorf("calculate: relation %q.%q references unknown model %q", m.Name, rf.Name, rf.Info.To)
	}
	fk := &schema.ForeignKey{
		ReferencedTable: ref.FinalDatabaseName(),
		OnDelete:        onDeleteAction(rf.Info.OnDelete),
		OnUpdate:        schema.NoAction,
	}
	for _, name := range rf.Info.Fields {
		sf, ok := m.ScalarField(name)
		if !ok {
			return nil, fmt.Errorf("calculate: relation %q.%q holds unknown field %q", m.Name, rf.Name, name)
		}
		fk.Columns = append(fk.Columns, sf.FinalDatabaseName())
	}
	for _, name := range rf.Info.ToFields {
		sf, ok := ref.ScalarField(name)
		if !ok {
			return nil, fmt.Errorf("calculate: relation %q.%q references unknown field %q.%q", m.Name, rf.Name, ref.Name, name)
		}
		fk.ReferencedColumns = append(fk.ReferencedColumns, sf.FinalDatabaseName())
	}
	return fk, nil
}

// calculateJoinTables emits the implicit join table of every
// many-to-many relation: two columns A and B referencing the primary
// keys of the endpoints in alphabetical model order, a unique index
// over (A, B), and a non-unique index over B.
func calculateJoinTables(dm *datamodel.Datamodel, f Flavour) ([]*schema.Table, error) {
	type endpoint struct {
		a, b *datamodel.Model
	}
	seen := make(map[string]endpoint)
	var order []string
	for _, m := range dm.Models {
		if m.IsCommentedOut {
			continue
		}
		for _, rf := range m.RelationFields() {
			if rf.Arity != datamodel.List || rf.OwnsRelation() {
				continue
			}
			other, ok := dm.Model(rf.Info.To)
			if !ok {
				continue
			}
			partner, ok := listPartner(other, m.Name, rf.Info.Name, rf)
			if !ok || partner.OwnsRelation() {
				continue
			}
			if _, ok := seen[rf.Info.Name]; ok {
				continue
			}
			a, b := m, other
			if b.Name < a.Name {
				a, b = b, a
			}
			seen[rf.Info.Name] = endpoint{a: a, b: b}
			order = append(order, rf.Info.Name)
		}
	}
	var tables []*schema.Table
	for _, name := range order {
		ep := seen[name]
		ta, err := joinColumn(ep.a, dm, f)
		if err != nil {
			return nil, fmt.Errorf("calculate: relation %q: %w", name, err)
		}
		tb, err := joinColumn(ep.b, dm, f)
		if err != nil {
			return nil, fmt.Errorf("calculate: relation %q: %w", name, err)
		}
		tableName := "_" + name
		t := &schema.Table{
			Name: tableName,
			Columns: []*schema.Column{
				{Name: "A", Type: ta.Type},
				{Name: "B", Type: tb.Type},
			},
			Indices: []*schema.Index{
				{Name: tableName + "_AB_unique", Columns: []string{"A", "B"}, Type: schema.IndexUnique},
				{Name: tableName + "_B_index", Columns: []string{"B"}, Type: schema.IndexNormal},
			},
			ForeignKeys: []*schema.ForeignKey{
				{Columns: []string{"A"}, ReferencedTable: ep.a.FinalDatabaseName(), ReferencedColumns: []string{ta.Name}, OnDelete: schema.Cascade, OnUpdate: schema.NoAction},
				{Columns: []string{"B"}, ReferencedTable: ep.b.FinalDatabaseName(), ReferencedColumns: []string{tb.Name}, OnDelete: schema.Cascade, OnUpdate: schema.NoAction},
			},
		}
		tables = append(tables, t)
	}
	return tables, nil
}

type joinRef struct {
	Name string
	Type schema.ColumnType
}

func joinColumn(m *datamodel.Model, dm *datamodel.Datamodel, f Flavour) (joinRef, error) {
	id, ok := m.IDField()
	if !ok {
		return joinRef{}, fmt.Errorf("model %q has no single id field to join on", m.Name)
	}
	ct, err := f.ColumnType(id, dm)
	if err != nil {
		return joinRef{}, err
	}
	ct.Arity = schema.Required
	return joinRef{Name: id.FinalDatabaseName(), Type: ct}, nil
}

func listPartner(other *datamodel.Model, back, relation string, self *datamodel.RelationField) (*datamodel.RelationField, bool) {
	for _, rf := range other.RelationFields() {
		if rf == self {
			continue
		}
		if rf.Info.To == back && rf.Info.Name == relation && rf.Arity == datamodel.List {
			return rf, true
		}
	}
	return nil, false
}

func onDeleteAction(s datamodel.OnDeleteStrategy) schema.ForeignKeyAction {
	switch s {
	case datamodel.OnDeleteCascade:
		return schema.Cascade
	case datamodel.OnDeleteRestrict:
		return schema.Restrict
	case datamodel.OnDeleteSetNull:
		return schema.SetNull
	case datamodel.OnDeleteSetDefault:
		return schema.SetDefault
	default:
		return schema.NoAction
	}
}

func indexName(table string, idx *schema.Index) string {
	name := table
	for _, c := range idx.Columns {
		name += "_" + c
	}
	if idx.IsUnique() {
		return name + "_unique"
	}
	return name + "_index"
}
