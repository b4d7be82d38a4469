// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package introspect derives a high-level data model from a described
// SQL schema: one model per table, relation fields for foreign keys,
// implicit many-to-many join tables folded into list relations, and
// unsupported column families carried as commented-out fields.
// Introspection is pure: for a fixed input schema the output is
// canonical and independent of map iteration order.
package introspect

import (
	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// Documentation attached to fields whose column family has no data
// model representation.
const unsupportedTypeDoc = "This type is currently not supported."

// Documentation attached to models whose table carries no usable
// unique identifier.
const noIdentifierDoc = "The underlying table does not contain a valid unique identifier and can therefore currently not be handled."

// Introspect computes the data model equivalent of the schema.
func Introspect(s *schema.SqlSchema) (*datamodel.Datamodel, error) {
	if err := schema.Validate(s); err != nil {
		return nil, err
	}
	in := &introspector{
		schema: s,
		joins:  detectJoinTables(s),
		models: make(map[string]*datamodel.Model),
	}
	in.calculateModels()
	if err := in.calculateRelations(); err != nil {
		return nil, err
	}
	in.calculateEnums()
	return in.dm, nil
}

type introspector struct {
	schema *schema.SqlSchema
	dm     *datamodel.Datamodel
	joins  map[string]joinTable
	models map[string]*datamodel.Model
}

func (in *introspector) calculateModels() {
	in.dm = &datamodel.Datamodel{}
	for _, t := range in.schema.Tables {
		if _, ok := in.joins[t.Name]; ok {
			continue
		}
		m := in.calculateModel(t)
		in.dm.Models = append(in.dm.Models, m)
		in.models[t.Name] = m
	}
}

func (in *introspector) calculateModel(t *schema.Table) *datamodel.Model {
	m := &datamodel.Model{Name: t.Name}
	for _, c := range t.Columns {
		m.Fields = append(m.Fields, calculateScalarField(t, c))
	}
	// A single-column primary key flags its field; a multi-column
	// primary key becomes the model's compound id.
	if pk := t.PrimaryKey; pk != nil {
		if len(pk.Columns) == 1 {
			if sf, ok := m.ScalarField(fieldName(pk.Columns[0])); ok {
				sf.IsID = true
			}
		} else {
			for _, c := range pk.Columns {
				m.IDFields = append(m.IDFields, fieldName(c))
			}
		}
	}
	for _, idx := range t.Indices {
		switch {
		case idx.IsUnique() && len(idx.Columns) == 1:
			if sf, ok := m.ScalarField(fieldName(idx.Columns[0])); ok {
				sf.IsUnique = true
			}
		default:
			def := datamodel.IndexDefinition{Name: idx.Name, Type: datamodel.IndexNormal}
			if idx.IsUnique() {
				def.Type = datamodel.IndexUnique
			}
			for _, c := range idx.Columns {
				def.Fields = append(def.Fields, fieldName(c))
			}
			m.Indexes = append(m.Indexes, def)
		}
	}
	if !hasUniqueIdentifier(t) {
		m.IsCommentedOut = true
		m.Documentation = noIdentifierDoc
	}
	return m
}

// hasUniqueIdentifier reports if the table can be addressed by a
// unique key: a primary key or any unique index.
func hasUniqueIdentifier(t *schema.Table) bool {
	if t.PrimaryKey != nil {
		return true
	}
	for _, idx := range t.Indices {
		if idx.IsUnique() {
			return true
		}
	}
	return false
}

func calculateScalarField(t *schema.Table, c *schema.Column) *datamodel.ScalarField {
	sf := &datamodel.ScalarField{
		Name:  fieldName(c.Name),
		Arity: fieldArity(c.Type.Arity),
	}
	if sf.Name != c.Name {
		sf.DatabaseName = c.Name
	}
	switch c.Type.Family {
	case schema.FamilyInt:
		sf.Type = &datamodel.BaseType{Scalar: datamodel.Int, NativeType: c.Type.NativeType}
	case schema.FamilyFloat:
		sf.Type = &datamodel.BaseType{Scalar: datamodel.Float, NativeType: c.Type.NativeType}
	case schema.FamilyBoolean:
		sf.Type = &datamodel.BaseType{Scalar: datamodel.Boolean, NativeType: c.Type.NativeType}
	case schema.FamilyString, schema.FamilyUuid:
		sf.Type = &datamodel.BaseType{Scalar: datamodel.String, NativeType: c.Type.NativeType}
	case schema.FamilyDateTime:
		sf.Type = &datamodel.BaseType{Scalar: datamodel.DateTime, NativeType: c.Type.NativeType}
	case schema.FamilyJson:
		sf.Type = &datamodel.BaseType{Scalar: datamodel.Json, NativeType: c.Type.NativeType}
	case schema.FamilyEnum:
		sf.Type = &datamodel.EnumType{Name: c.Type.EnumName}
	default:
		sf.Type = &datamodel.UnsupportedType{T: string(c.Type.Family)}
		sf.IsCommentedOut = true
		sf.Documentation = unsupportedTypeDoc
	}
	switch {
	case c.AutoIncrement:
		sf.Default = datamodel.Autoincrement()
	default:
		sf.Default = calculateDefault(c.Default)
	}
	return sf
}

func calculateDefault(d schema.Default) datamodel.DefaultValue {
	switch d := d.(type) {
	case nil:
		return nil
	case *schema.Value:
		return &datamodel.Single{V: d.V}
	case *schema.Now:
		return datamodel.NowExpression()
	case *schema.DBGenerated:
		return &datamodel.Expression{Generator: datamodel.GeneratorDBGenerated, X: d.X}
	case *schema.SequenceDefault:
		// A sequence-seeded key is the autoincrement() semantic.
		return datamodel.Autoincrement()
	}
	return nil
}

func (in *introspector) calculateEnums() {
	for _, e := range in.schema.Enums {
		de := &datamodel.Enum{Name: e.Name}
		for _, v := range e.Values {
			de.Values = append(de.Values, datamodel.EnumValue{Name: v})
		}
		in.dm.Enums = append(in.dm.Enums, de)
	}
}

func fieldArity(a schema.ColumnArity) datamodel.FieldArity {
	switch a {
	case schema.Required:
		return datamodel.Required
	case schema.List:
		return datamodel.List
	default:
		return datamodel.Optional
	}
}

// fieldName sanitises a column name into a legal field identifier.
// The original is preserved as the field's database name by callers.
func fieldName(column string) string {
	out := []rune(column)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
