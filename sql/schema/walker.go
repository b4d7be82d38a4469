// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

// A TableWalker is a borrowed view over one table of a schema that
// resolves cross-table references by name. Walkers must not outlive
// the schema they were created from.
type TableWalker struct {
	schema *SqlSchema
	table  *Table
}

// WalkTables returns a walker for every table of the schema,
// in declaration order.
func (s *SqlSchema) WalkTables() []TableWalker {
	ws := make([]TableWalker, len(s.Tables))
	for i, t := range s.Tables {
		ws[i] = TableWalker{schema: s, table: t}
	}
	return ws
}

// WalkTable returns a walker for the named table.
func (s *SqlSchema) WalkTable(name string) (TableWalker, bool) {
	t, ok := s.Table(name)
	if !ok {
		return TableWalker{}, false
	}
	return TableWalker{schema: s, table: t}, true
}

// Name returns the table name.
func (w TableWalker) Name() string { return w.table.Name }

// Table returns the underlying table.
func (w TableWalker) Table() *Table { return w.table }

// Schema returns the schema the walker borrows.
func (w TableWalker) Schema() *SqlSchema { return w.schema }

// Columns returns a walker for every column of the table.
func (w TableWalker) Columns() []ColumnWalker {
	ws := make([]ColumnWalker, len(w.table.Columns))
	for i, c := range w.table.Columns {
		ws[i] = ColumnWalker{schema: w.schema, table: w.table, column: c}
	}
	return ws
}

// Column returns a walker for the named column.
func (w TableWalker) Column(name string) (ColumnWalker, bool) {
	c, ok := w.table.Column(name)
	if !ok {
		return ColumnWalker{}, false
	}
	return ColumnWalker{schema: w.schema, table: w.table, column: c}, true
}

// ForeignKeys returns a walker for every foreign key of the table.
func (w TableWalker) ForeignKeys() []ForeignKeyWalker {
	ws := make([]ForeignKeyWalker, len(w.table.ForeignKeys))
	for i, fk := range w.table.ForeignKeys {
		ws[i] = ForeignKeyWalker{schema: w.schema, table: w.table, fk: fk}
	}
	return ws
}

// A ColumnWalker is a borrowed view over one column of a table.
type ColumnWalker struct {
	schema *SqlSchema
	table  *Table
	column *Column
}

// Name returns the column name.
func (w ColumnWalker) Name() string { return w.column.Name }

// Column returns the underlying column.
func (w ColumnWalker) Column() *Column { return w.column }

// Table returns a walker for the owning table.
func (w ColumnWalker) Table() TableWalker {
	return TableWalker{schema: w.schema, table: w.table}
}

// Arity returns the column arity.
func (w ColumnWalker) Arity() ColumnArity { return w.column.Type.Arity }

// Default returns the column default, or nil.
func (w ColumnWalker) Default() Default { return w.column.Default }

// IsAutoIncrement reports if the column auto-increments.
func (w ColumnWalker) IsAutoIncrement() bool { return w.column.AutoIncrement }

// IsPartOfPrimaryKey reports if the column takes part in the
// table primary key.
func (w ColumnWalker) IsPartOfPrimaryKey() bool {
	return w.table.IsPartOfPrimaryKey(w.column.Name)
}

// IsSingleUnique reports if a single-column unique index
// covers exactly this column.
func (w ColumnWalker) IsSingleUnique() bool {
	for _, idx := range w.table.Indices {
		if idx.IsUnique() && len(idx.Columns) == 1 && idx.Columns[0] == w.column.Name {
			return true
		}
	}
	return false
}

// A ForeignKeyWalker is a borrowed view over one foreign key that
// resolves the referenced table as a neighbour reference.
type ForeignKeyWalker struct {
	schema *SqlSchema
	table  *Table
	fk     *ForeignKey
}

// ForeignKey returns the underlying foreign key.
func (w ForeignKeyWalker) ForeignKey() *ForeignKey { return w.fk }

// Table returns a walker for the constrained table.
func (w ForeignKeyWalker) Table() TableWalker {
	return TableWalker{schema: w.schema, table: w.table}
}

// ReferencedTable returns a walker for the referenced table.
func (w ForeignKeyWalker) ReferencedTable() (TableWalker, bool) {
	return w.schema.WalkTable(w.fk.ReferencedTable)
}

// ConstrainedColumns returns a walker for every local column
// of the foreign key, in constraint order.
func (w ForeignKeyWalker) ConstrainedColumns() []ColumnWalker {
	ws := make([]ColumnWalker, 0, len(w.fk.Columns))
	for _, name := range w.fk.Columns {
		if c, ok := w.table.Column(name); ok {
			ws = append(ws, ColumnWalker{schema: w.schema, table: w.table, column: c})
		}
	}
	return ws
}

// IsSelfReference reports if the foreign key points back
// at its own table.
func (w ForeignKeyWalker) IsSelfReference() bool {
	return w.fk.ReferencedTable == w.table.Name
}
