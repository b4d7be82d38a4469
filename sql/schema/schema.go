// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package schema provides the in-memory representation of a described
// SQL schema: tables, columns, primary keys, foreign keys, indices,
// sequences and enums. Values are immutable after construction;
// transformations over them produce fresh values.
package schema

type (
	// A SqlSchema describes the full set of schema resources of a
	// single database, as produced by a schema describer.
	SqlSchema struct {
		Tables    []*Table
		Enums     []*Enum
		Sequences []*Sequence
	}

	// A Table represents a table definition.
	Table struct {
		Name        string
		Columns     []*Column
		Indices     []*Index
		PrimaryKey  *PrimaryKey
		ForeignKeys []*ForeignKey
	}

	// A Column represents a column definition.
	Column struct {
		Name          string
		Type          ColumnType
		Default       Default
		AutoIncrement bool
	}

	// A ColumnType carries the dialect-level type of a column together
	// with its coarse family and arity.
	ColumnType struct {
		DataType               string
		FullDataType           string
		CharacterMaximumLength *int
		Family                 ColumnTypeFamily
		// EnumName holds the referenced enum name
		// when Family is FamilyEnum.
		EnumName string
		Arity    ColumnArity
		// NativeType is an optional dialect-specific type tag
		// (e.g. "VarChar(255)") the column was declared with.
		NativeType string
	}

	// A PrimaryKey represents a primary-key definition.
	PrimaryKey struct {
		Columns        []string
		Sequence       *Sequence
		ConstraintName string
	}

	// A ForeignKey represents a foreign-key definition. Cross-table
	// references are held by name, never by pointer.
	ForeignKey struct {
		ConstraintName    string
		Columns           []string
		ReferencedTable   string
		ReferencedColumns []string
		OnDelete          ForeignKeyAction
		OnUpdate          ForeignKeyAction
	}

	// An Index represents an index definition.
	Index struct {
		Name    string
		Columns []string
		Type    IndexType
	}

	// An Enum represents a named enum type with ordered values.
	Enum struct {
		Name   string
		Values []string
	}

	// A Sequence represents a sequence definition.
	Sequence struct {
		Name           string
		InitialValue   int64
		AllocationSize int64
	}
)

// A ColumnTypeFamily is the coarse category of a column type.
type ColumnTypeFamily string

// List of column type families.
const (
	FamilyInt               ColumnTypeFamily = "Int"
	FamilyFloat             ColumnTypeFamily = "Float"
	FamilyBoolean           ColumnTypeFamily = "Boolean"
	FamilyString            ColumnTypeFamily = "String"
	FamilyDateTime          ColumnTypeFamily = "DateTime"
	FamilyBinary            ColumnTypeFamily = "Binary"
	FamilyJson              ColumnTypeFamily = "Json"
	FamilyUuid              ColumnTypeFamily = "Uuid"
	FamilyEnum              ColumnTypeFamily = "Enum"
	FamilyGeometric         ColumnTypeFamily = "Geometric"
	FamilyLogSequenceNumber ColumnTypeFamily = "LogSequenceNumber"
	FamilyTextSearch        ColumnTypeFamily = "TextSearch"
	FamilyTransactionId     ColumnTypeFamily = "TransactionId"
	FamilyUnsupported       ColumnTypeFamily = "Unsupported"
)

// A ColumnArity describes the nullability or cardinality of a column.
type ColumnArity string

// List of column arities.
const (
	Required ColumnArity = "REQUIRED"
	Nullable ColumnArity = "NULLABLE"
	List     ColumnArity = "LIST"
)

// IsRequired reports if the arity is Required.
func (a ColumnArity) IsRequired() bool { return a == Required }

// IsNullable reports if the arity is Nullable.
func (a ColumnArity) IsNullable() bool { return a == Nullable }

// IsList reports if the arity is List.
func (a ColumnArity) IsList() bool { return a == List }

// A ForeignKeyAction is a referential action specified by the
// ON UPDATE and ON DELETE subclauses of a FOREIGN KEY clause.
type ForeignKeyAction string

// List of foreign-key actions.
const (
	NoAction   ForeignKeyAction = "NO ACTION"
	Restrict   ForeignKeyAction = "RESTRICT"
	Cascade    ForeignKeyAction = "CASCADE"
	SetNull    ForeignKeyAction = "SET NULL"
	SetDefault ForeignKeyAction = "SET DEFAULT"
)

// An IndexType distinguishes unique from normal indices.
type IndexType string

// List of index types.
const (
	IndexNormal IndexType = "NORMAL"
	IndexUnique IndexType = "UNIQUE"
)

// NewColumnType returns a ColumnType carrying only a family and an
// arity, with no dialect-level type strings attached.
func NewColumnType(family ColumnTypeFamily, arity ColumnArity) ColumnType {
	return ColumnType{Family: family, Arity: arity}
}

// Table returns the first table that matched the given name.
func (s *SqlSchema) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Enum returns the first enum that matched the given name.
func (s *SqlSchema) Enum(name string) (*Enum, bool) {
	for _, e := range s.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Sequence returns the first sequence that matched the given name.
func (s *SqlSchema) Sequence(name string) (*Sequence, bool) {
	for _, sq := range s.Sequences {
		if sq.Name == name {
			return sq, true
		}
	}
	return nil, false
}

// Column returns the first column that matched the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Index returns the first index that matched the given name.
func (t *Table) Index(name string) (*Index, bool) {
	for _, i := range t.Indices {
		if i.Name == name {
			return i, true
		}
	}
	return nil, false
}

// PrimaryKeyColumns returns the ordered primary-key column
// names, or nil if the table has no primary key.
func (t *Table) PrimaryKeyColumns() []string {
	if t.PrimaryKey == nil {
		return nil
	}
	return t.PrimaryKey.Columns
}

// IsPartOfPrimaryKey reports if the named column takes part
// in the table primary key.
func (t *Table) IsPartOfPrimaryKey(column string) bool {
	for _, c := range t.PrimaryKeyColumns() {
		if c == column {
			return true
		}
	}
	return false
}

// IsUnique reports if the index is a unique index.
func (i *Index) IsUnique() bool { return i.Type == IndexUnique }

type (
	// A Default represents a column default. The types below implement
	// this interface and can be used for describing default values.
	Default interface {
		def()
	}

	// Value represents a literal default value like 1, or 'hello'.
	// V holds one of int64, float64, bool or string.
	Value struct {
		V any
	}

	// Now represents the current-timestamp default.
	Now struct{}

	// DBGenerated represents a database-generated default expression
	// that is inlined as-is on migration.
	DBGenerated struct {
		X string
	}

	// SequenceDefault represents a default drawn from a sequence.
	// The sequence itself is declared elsewhere.
	SequenceDefault struct {
		Name string
	}
)

// defaults.
func (*Value) def()           {}
func (*Now) def()             {}
func (*DBGenerated) def()     {}
func (*SequenceDefault) def() {}

// DefaultsEqual reports if two defaults are structurally equal.
func DefaultsEqual(d1, d2 Default) bool {
	if d1 == nil || d2 == nil {
		return d1 == nil && d2 == nil
	}
	switch x1 := d1.(type) {
	case *Value:
		x2, ok := d2.(*Value)
		return ok && x1.V == x2.V
	case *Now:
		_, ok := d2.(*Now)
		return ok
	case *DBGenerated:
		x2, ok := d2.(*DBGenerated)
		return ok && x1.X == x2.X
	case *SequenceDefault:
		x2, ok := d2.(*SequenceDefault)
		return ok && x1.Name == x2.Name
	}
	return false
}
