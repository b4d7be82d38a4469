// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package introspect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// An AmbiguousRelationError reports relation fields whose names the
// disambiguation rules failed to resolve.
type AmbiguousRelationError struct {
	Model     string
	Field     string
	Relations []string
}

func (e *AmbiguousRelationError) Error() string {
	return fmt.Sprintf("introspect: ambiguous relations on model %q: field %q is produced by relations %s",
		e.Model, e.Field, strings.Join(e.Relations, ", "))
}

// A joinTable is a table following the implicit many-to-many
// convention: a leading underscore, exactly the two columns A and B,
// each a foreign key, and a unique index over both.
type joinTable struct {
	table *schema.Table
	// Referenced table names of the A and B columns.
	tableA, tableB string
}

func detectJoinTables(s *schema.SqlSchema) map[string]joinTable {
	joins := make(map[string]joinTable)
	for _, t := range s.Tables {
		if jt, ok := asJoinTable(t); ok {
			joins[t.Name] = jt
		}
	}
	return joins
}

func asJoinTable(t *schema.Table) (joinTable, bool) {
	if !strings.HasPrefix(t.Name, "_") || len(t.Columns) != 2 {
		return joinTable{}, false
	}
	if _, ok := t.Column("A"); !ok {
		return joinTable{}, false
	}
	if _, ok := t.Column("B"); !ok {
		return joinTable{}, false
	}
	fkA, okA := singleColumnFK(t, "A")
	fkB, okB := singleColumnFK(t, "B")
	if !okA || !okB {
		return joinTable{}, false
	}
	for _, idx := range t.Indices {
		if idx.IsUnique() && len(idx.Columns) == 2 && contains(idx.Columns, "A") && contains(idx.Columns, "B") {
			return joinTable{table: t, tableA: fkA.ReferencedTable, tableB: fkB.ReferencedTable}, true
		}
	}
	return joinTable{}, false
}

func singleColumnFK(t *schema.Table, column string) (*schema.ForeignKey, bool) {
	var found *schema.ForeignKey
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && fk.Columns[0] == column {
			if found != nil {
				return nil, false
			}
			found = fk
		}
	}
	return found, found != nil
}

func (in *introspector) calculateRelations() error {
	names := in.relationNames()
	// Relation fields are appended in foreign-key declaration order.
	for _, t := range in.schema.Tables {
		if _, ok := in.joins[t.Name]; ok {
			continue
		}
		model := in.models[t.Name]
		for _, fk := range t.ForeignKeys {
			ref, ok := in.models[fk.ReferencedTable]
			if !ok {
				continue
			}
			rel := names[fkKey(t.Name, fk)]
			model.Fields = append(model.Fields, &datamodel.RelationField{
				Name:  ref.Name,
				Arity: forwardArity(t, fk),
				Info: datamodel.RelationInfo{
					To:       ref.Name,
					Fields:   fieldNames(fk.Columns),
					ToFields: fieldNames(fk.ReferencedColumns),
					Name:     rel,
					OnDelete: onDeleteStrategy(fk.OnDelete),
				},
			})
			ref.Fields = append(ref.Fields, &datamodel.RelationField{
				Name:  model.Name,
				Arity: backArity(t, fk),
				Info: datamodel.RelationInfo{
					To:   model.Name,
					Name: rel,
				},
			})
		}
	}
	in.calculateManyToMany(names)
	return in.resolveCollisions()
}

// relationNames assigns every foreign key its relation name:
// "{A}To{B}" with the model names in alphabetical order, and the
// foreign-key column list appended when several relations connect
// the same pair of models.
func (in *introspector) relationNames() map[string]string {
	counts := make(map[string]int)
	for _, t := range in.schema.Tables {
		if _, ok := in.joins[t.Name]; ok {
			continue
		}
		for _, fk := range t.ForeignKeys {
			counts[pairKey(t.Name, fk.ReferencedTable)]++
		}
	}
	names := make(map[string]string)
	for _, t := range in.schema.Tables {
		if _, ok := in.joins[t.Name]; ok {
			continue
		}
		for _, fk := range t.ForeignKeys {
			name := pairName(t.Name, fk.ReferencedTable)
			if counts[pairKey(t.Name, fk.ReferencedTable)] > 1 {
				name += "_" + strings.Join(fieldNames(fk.Columns), "_")
			}
			names[fkKey(t.Name, fk)] = name
		}
	}
	return names
}

func (in *introspector) calculateManyToMany(fkNames map[string]string) {
	taken := make(map[string]bool)
	for _, name := range fkNames {
		taken[name] = true
	}
	for _, t := range in.schema.Tables {
		jt, ok := in.joins[t.Name]
		if !ok {
			continue
		}
		a, okA := in.models[jt.tableA]
		b, okB := in.models[jt.tableB]
		if !okA || !okB {
			continue
		}
		rel := strings.TrimPrefix(t.Name, "_")
		for taken[rel] {
			rel += "ManyToMany"
		}
		taken[rel] = true
		if a == b {
			a.Fields = append(a.Fields,
				&datamodel.RelationField{
					Name:  fmt.Sprintf("%s_A_%s", a.Name, rel),
					Arity: datamodel.List,
					Info:  datamodel.RelationInfo{To: a.Name, Name: rel},
				},
				&datamodel.RelationField{
					Name:  fmt.Sprintf("%s_B_%s", a.Name, rel),
					Arity: datamodel.List,
					Info:  datamodel.RelationInfo{To: a.Name, Name: rel},
				},
			)
			continue
		}
		a.Fields = append(a.Fields, &datamodel.RelationField{
			Name:  b.Name,
			Arity: datamodel.List,
			Info:  datamodel.RelationInfo{To: b.Name, Name: rel},
		})
		b.Fields = append(b.Fields, &datamodel.RelationField{
			Name:  a.Name,
			Arity: datamodel.List,
			Info:  datamodel.RelationInfo{To: a.Name, Name: rel},
		})
	}
}

// resolveCollisions renames relation fields whose default name is
// already taken inside their model: first by appending the relation
// name, then by appending the owned column list. Names that still
// collide are reported as ambiguous.
func (in *introspector) resolveCollisions() error {
	for _, m := range in.dm.Models {
		byName := make(map[string][]*datamodel.RelationField)
		scalars := make(map[string]bool)
		for _, f := range m.Fields {
			switch f := f.(type) {
			case *datamodel.ScalarField:
				scalars[f.Name] = true
			case *datamodel.RelationField:
				byName[f.Name] = append(byName[f.Name], f)
			}
		}
		for name, group := range byName {
			if len(group) == 1 && !scalars[name] {
				continue
			}
			for _, rf := range group {
				rf.Name = fmt.Sprintf("%s_%s", name, rf.Info.Name)
			}
		}
		// A second pass for self relations, where forward and
		// back-reference carry the same relation name.
		again := make(map[string][]*datamodel.RelationField)
		for _, rf := range m.RelationFields() {
			again[rf.Name] = append(again[rf.Name], rf)
		}
		names := sortedKeys(again)
		for _, name := range names {
			group := again[name]
			if len(group) == 1 {
				continue
			}
			for _, rf := range group {
				if len(rf.Info.Fields) > 0 {
					rf.Name = fmt.Sprintf("%s_%s", rf.Name, strings.Join(rf.Info.Fields, "_"))
				}
			}
		}
		final := make(map[string][]string)
		for _, rf := range m.RelationFields() {
			final[rf.Name] = append(final[rf.Name], rf.Info.Name)
		}
		for _, name := range sortedStringKeys(final) {
			if rels := final[name]; len(rels) > 1 || scalars[name] {
				return &AmbiguousRelationError{Model: m.Name, Field: name, Relations: rels}
			}
		}
	}
	return nil
}

// forwardArity is Required when every foreign-key column is required,
// Optional otherwise.
func forwardArity(t *schema.Table, fk *schema.ForeignKey) datamodel.FieldArity {
	for _, name := range fk.Columns {
		if c, ok := t.Column(name); ok && !c.Type.Arity.IsRequired() {
			return datamodel.Optional
		}
	}
	return datamodel.Required
}

// backArity is Optional when a unique index covers the foreign-key
// column set exactly (a one-to-one), List otherwise.
func backArity(t *schema.Table, fk *schema.ForeignKey) datamodel.FieldArity {
	for _, idx := range t.Indices {
		if idx.IsUnique() && sameColumnSet(idx.Columns, fk.Columns) {
			return datamodel.Optional
		}
	}
	return datamodel.List
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, c := range a {
		if !contains(b, c) {
			return false
		}
	}
	return true
}

func onDeleteStrategy(a schema.ForeignKeyAction) datamodel.OnDeleteStrategy {
	switch a {
	case schema.Cascade:
		return datamodel.OnDeleteCascade
	case schema.Restrict:
		return datamodel.OnDeleteRestrict
	case schema.SetNull:
		return datamodel.OnDeleteSetNull
	case schema.SetDefault:
		return datamodel.OnDeleteSetDefault
	default:
		return datamodel.OnDeleteNone
	}
}

func fieldNames(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = fieldName(c)
	}
	return out
}

func pairKey(table, refTable string) string {
	a, b := table, refTable
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

func pairName(table, refTable string) string {
	a, b := table, refTable
	if b < a {
		a, b = b, a
	}
	return a + "To" + b
}

func fkKey(table string, fk *schema.ForeignKey) string {
	return table + "\x00" + strings.Join(fk.Columns, "\x00") + "\x00" + fk.ReferencedTable
}

func contains(vs []string, v string) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]*datamodel.RelationField) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

func sortedStringKeys(m map[string][]string) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
