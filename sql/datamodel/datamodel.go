// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package datamodel provides the high-level data model: models with
// scalar and relation fields, enums, index definitions and id fields.
// Relations are held by name on both sides; resolution happens on
// demand, so values stay cloneable and structurally comparable.
package datamodel

type (
	// A Datamodel is an ordered list of models and enums.
	Datamodel struct {
		Models []*Model
		Enums  []*Enum
	}

	// A Model describes one entity of the data model.
	Model struct {
		Name           string
		DatabaseName   string
		IsEmbedded     bool
		IsGenerated    bool
		IsCommentedOut bool
		Documentation  string
		Fields         []Field
		Indexes        []IndexDefinition
		// IDFields holds the compound-id field names. It is empty
		// when a single field carries the id flag.
		IDFields []string
	}

	// A Field is either a ScalarField or a RelationField.
	Field interface {
		field()
		// FieldName returns the field name.
		FieldName() string
		// FieldArity returns the field arity.
		FieldArity() FieldArity
	}

	// A ScalarField is a field holding a scalar, enum or
	// unsupported value.
	ScalarField struct {
		Name           string
		Arity          FieldArity
		Type           FieldType
		DatabaseName   string
		Default        DefaultValue
		IsUnique       bool
		IsID           bool
		IsGenerated    bool
		IsUpdatedAt    bool
		IsCommentedOut bool
		Documentation  string
	}

	// A RelationField is a field pointing at another model.
	RelationField struct {
		Name  string
		Arity FieldArity
		Info  RelationInfo
	}

	// RelationInfo carries the wiring of a relation field. The side
	// owning the foreign key has non-empty Fields and ToFields.
	RelationInfo struct {
		// To is the referenced model name.
		To string
		// Fields are the local scalar fields holding the key.
		Fields []string
		// ToFields are the referenced fields on the To model.
		ToFields []string
		// Name identifies the relation; both sides carry it.
		Name     string
		OnDelete OnDeleteStrategy
	}

	// An Enum is a named set of values.
	Enum struct {
		Name           string
		DatabaseName   string
		Values         []EnumValue
		IsCommentedOut bool
		Documentation  string
	}

	// An EnumValue is one value of an enum.
	EnumValue struct {
		Name           string
		DatabaseName   string
		IsCommentedOut bool
	}

	// An IndexDefinition describes a model-level index.
	IndexDefinition struct {
		Name   string
		Fields []string
		Type   IndexType
	}
)

// fields.
func (*ScalarField) field()   {}
func (*RelationField) field() {}

// FieldName returns the field name.
func (f *ScalarField) FieldName() string { return f.Name }

// FieldArity returns the field arity.
func (f *ScalarField) FieldArity() FieldArity { return f.Arity }

// FieldName returns the field name.
func (f *RelationField) FieldName() string { return f.Name }

// FieldArity returns the field arity.
func (f *RelationField) FieldArity() FieldArity { return f.Arity }

// A FieldArity describes the nullability or cardinality of a field.
type FieldArity string

// List of field arities.
const (
	Required FieldArity = "REQUIRED"
	Optional FieldArity = "OPTIONAL"
	List     FieldArity = "LIST"
)

// A Scalar is a base scalar type.
type Scalar string

// List of scalar types.
const (
	Int      Scalar = "Int"
	Float    Scalar = "Float"
	Boolean  Scalar = "Boolean"
	String   Scalar = "String"
	DateTime Scalar = "DateTime"
	Json     Scalar = "Json"
)

type (
	// A FieldType is the type of a scalar field. One of BaseType,
	// EnumType or UnsupportedType.
	FieldType interface {
		fieldType()
	}

	// BaseType is a scalar field type with an optional
	// dialect-specific native type tag.
	BaseType struct {
		Scalar     Scalar
		NativeType string
	}

	// EnumType references an enum by name.
	EnumType struct {
		Name string
	}

	// UnsupportedType marks a column type the data model cannot
	// express. T holds the column family name.
	UnsupportedType struct {
		T string
	}
)

// field types.
func (*BaseType) fieldType()        {}
func (*EnumType) fieldType()        {}
func (*UnsupportedType) fieldType() {}

type (
	// A DefaultValue is either a literal Single value or a
	// generator Expression.
	DefaultValue interface {
		defaultValue()
	}

	// Single is a literal default. V holds one of int64, float64,
	// bool or string.
	Single struct {
		V any
	}

	// Expression is a generator default like autoincrement() or
	// now(). X carries the payload of dbgenerated expressions.
	Expression struct {
		Generator string
		X         string
	}
)

// defaults.
func (*Single) defaultValue()     {}
func (*Expression) defaultValue() {}

// List of generator names used in Expression defaults.
const (
	GeneratorAutoincrement = "autoincrement"
	GeneratorNow           = "now"
	GeneratorDBGenerated   = "dbgenerated"
)

// Autoincrement returns the autoincrement() expression default.
func Autoincrement() *Expression {
	return &Expression{Generator: GeneratorAutoincrement}
}

// NowExpression returns the now() expression default.
func NowExpression() *Expression {
	return &Expression{Generator: GeneratorNow}
}

// An OnDeleteStrategy describes what happens to the relation
// when the referenced record is deleted.
type OnDeleteStrategy string

// List of on-delete strategies.
const (
	OnDeleteNone       OnDeleteStrategy = "NONE"
	OnDeleteRestrict   OnDeleteStrategy = "RESTRICT"
	OnDeleteCascade    OnDeleteStrategy = "CASCADE"
	OnDeleteSetNull    OnDeleteStrategy = "SET_NULL"
	OnDeleteSetDefault OnDeleteStrategy = "SET_DEFAULT"
)

// List of index definition types.
const (
	IndexNormal IndexType = "NORMAL"
	IndexUnique IndexType = "UNIQUE"
)

// An IndexType distinguishes unique from normal index definitions.
type IndexType string

// Model returns the first model that matched the given name.
func (d *Datamodel) Model(name string) (*Model, bool) {
	for _, m := range d.Models {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Enum returns the first enum that matched the given name.
func (d *Datamodel) Enum(name string) (*Enum, bool) {
	for _, e := range d.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Field returns the first field that matched the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}

// ScalarField returns the first scalar field that matched
// the given name.
func (m *Model) ScalarField(name string) (*ScalarField, bool) {
	for _, f := range m.Fields {
		if sf, ok := f.(*ScalarField); ok && sf.Name == name {
			return sf, true
		}
	}
	return nil, false
}

// ScalarFields returns the scalar fields in declaration order.
func (m *Model) ScalarFields() []*ScalarField {
	var fs []*ScalarField
	for _, f := range m.Fields {
		if sf, ok := f.(*ScalarField); ok {
			fs = append(fs, sf)
		}
	}
	return fs
}

// RelationFields returns the relation fields in declaration order.
func (m *Model) RelationFields() []*RelationField {
	var fs []*RelationField
	for _, f := range m.Fields {
		if rf, ok := f.(*RelationField); ok {
			fs = append(fs, rf)
		}
	}
	return fs
}

// FinalDatabaseName returns the mapped database name of the model,
// falling back to the model name.
func (m *Model) FinalDatabaseName() string {
	if m.DatabaseName != "" {
		return m.DatabaseName
	}
	return m.Name
}

// FinalDatabaseName returns the mapped column name of the field,
// falling back to the field name.
func (f *ScalarField) FinalDatabaseName() string {
	if f.DatabaseName != "" {
		return f.DatabaseName
	}
	return f.Name
}

// FinalDatabaseName returns the mapped database name of the enum,
// falling back to the enum name.
func (e *Enum) FinalDatabaseName() string {
	if e.DatabaseName != "" {
		return e.DatabaseName
	}
	return e.Name
}

// DatabaseValues returns the mapped database values of the enum.
func (e *Enum) DatabaseValues() []string {
	vs := make([]string, len(e.Values))
	for i, v := range e.Values {
		if v.DatabaseName != "" {
			vs[i] = v.DatabaseName
		} else {
			vs[i] = v.Name
		}
	}
	return vs
}

// IDField returns the scalar field flagged as the model id, if any.
func (m *Model) IDField() (*ScalarField, bool) {
	for _, f := range m.ScalarFields() {
		if f.IsID {
			return f, true
		}
	}
	return nil, false
}

// OwnsRelation reports if the relation field is the side
// holding the foreign key.
func (f *RelationField) OwnsRelation() bool {
	return len(f.Info.Fields) > 0 && len(f.Info.ToFields) > 0
}
