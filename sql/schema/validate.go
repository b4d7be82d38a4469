// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import "fmt"

// Validate checks the structural invariants of the schema: unique
// table and enum names, existing index and primary-key columns,
// resolvable foreign keys with matching column counts, and required
// primary-key columns. A violation is reported as an error and means
// the input cannot be processed further.
func Validate(s *SqlSchema) error {
	tables := make(map[string]*Table, len(s.Tables))
	for _, t := range s.Tables {
		if _, ok := tables[t.Name]; ok {
			return fmt.Errorf("sql/schema: duplicate table name %q", t.Name)
		}
		tables[t.Name] = t
	}
	enums := make(map[string]struct{}, len(s.Enums))
	for _, e := range s.Enums {
		if _, ok := enums[e.Name]; ok {
			return fmt.Errorf("sql/schema: duplicate enum name %q", e.Name)
		}
		enums[e.Name] = struct{}{}
	}
	for _, t := range s.Tables {
		for _, idx := range t.Indices {
			for _, c := range idx.Columns {
				if _, ok := t.Column(c); !ok {
					return fmt.Errorf("sql/schema: index %q on table %q references unknown column %q", idx.Name, t.Name, c)
				}
			}
		}
		if pk := t.PrimaryKey; pk != nil {
			for _, name := range pk.Columns {
				c, ok := t.Column(name)
				if !ok {
					return fmt.Errorf("sql/schema: primary key of table %q references unknown column %q", t.Name, name)
				}
				if !c.Type.Arity.IsRequired() {
					return fmt.Errorf("sql/schema: primary key column %q of table %q is not required", name, t.Name)
				}
			}
		}
		for _, fk := range t.ForeignKeys {
			ref, ok := tables[fk.ReferencedTable]
			if !ok {
				return fmt.Errorf("sql/schema: foreign key on table %q references unknown table %q", t.Name, fk.ReferencedTable)
			}
			if len(fk.Columns) != len(fk.ReferencedColumns) {
				return fmt.Errorf("sql/schema: foreign key on table %q has %d columns but references %d", t.Name, len(fk.Columns), len(fk.ReferencedColumns))
			}
			for _, c := range fk.Columns {
				if _, ok := t.Column(c); !ok {
					return fmt.Errorf("sql/schema: foreign key on table %q constrains unknown column %q", t.Name, c)
				}
			}
			for _, c := range fk.ReferencedColumns {
				if _, ok := ref.Column(c); !ok {
					return fmt.Errorf("sql/schema: foreign key on table %q references unknown column %q.%q", t.Name, ref.Name, c)
				}
			}
		}
	}
	return nil
}
