// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package sqlspec decodes and encodes the declarative HCL form of the
// data model: model blocks with field, relation and index blocks, and
// enum blocks.
package sqlspec

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/internal/sqlx"
)

type (
	fileSpec struct {
		Models []*modelSpec `hcl:"model,block"`
		Enums  []*enumSpec  `hcl:"enum,block"`
	}

	modelSpec struct {
		Name          string          `hcl:"name,label"`
		DBName        *string         `hcl:"db_name,optional"`
		IDFields      []string        `hcl:"id_fields,optional"`
		CommentedOut  *bool           `hcl:"commented_out,optional"`
		Documentation *string         `hcl:"docs,optional"`
		Fields        []*fieldSpec    `hcl:"field,block"`
		Relations     []*relationSpec `hcl:"relation,block"`
		Indexes       []*indexSpec    `hcl:"index,block"`
	}

	fieldSpec struct {
		Name         string         `hcl:"name,label"`
		Type         string         `hcl:"type"`
		NativeType   *string        `hcl:"native_type,optional"`
		Optional     *bool          `hcl:"optional,optional"`
		List         *bool          `hcl:"list,optional"`
		DBName       *string        `hcl:"db_name,optional"`
		Unique       *bool          `hcl:"unique,optional"`
		ID           *bool          `hcl:"id,optional"`
		UpdatedAt    *bool          `hcl:"updated_at,optional"`
		Unsupported  *bool          `hcl:"unsupported,optional"`
		CommentedOut *bool          `hcl:"commented_out,optional"`
		Docs         *string        `hcl:"docs,optional"`
		Default      hcl.Expression `hcl:"default,optional"`
		DefaultExpr  *string        `hcl:"default_expr,optional"`
	}

	relationSpec struct {
		Name     string   `hcl:"name,label"`
		To       string   `hcl:"to"`
		Fields   []string `hcl:"fields,optional"`
		ToFields []string `hcl:"to_fields,optional"`
		Relation *string  `hcl:"relation,optional"`
		Optional *bool    `hcl:"optional,optional"`
		List     *bool    `hcl:"list,optional"`
		OnDelete *string  `hcl:"on_delete,optional"`
	}

	indexSpec struct {
		Name   string   `hcl:"name,label"`
		Fields []string `hcl:"fields"`
		Unique *bool    `hcl:"unique,optional"`
	}

	enumSpec struct {
		Name   string   `hcl:"name,label"`
		DBName *string  `hcl:"db_name,optional"`
		Values []string `hcl:"values"`
	}
)

// Unmarshal decodes an HCL document into a data model.
func Unmarshal(src []byte, filename string) (*datamodel.Datamodel, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var spec fileSpec
	if diags := gohcl.DecodeBody(file.Body, nil, &spec); diags.HasErrors() {
		return nil, diags
	}
	dm := &datamodel.Datamodel{}
	for _, es := range spec.Enums {
		e := &datamodel.Enum{Name: es.Name, DatabaseName: sqlx.V(es.DBName)}
		for _, v := range es.Values {
			e.Values = append(e.Values, datamodel.EnumValue{Name: v})
		}
		dm.Enums = append(dm.Enums, e)
	}
	for _, ms := range spec.Models {
		m, err := decodeModel(ms, dm)
		if err != nil {
			return nil, err
		}
		dm.Models = append(dm.Models, m)
	}
	return dm, nil
}

func decodeModel(ms *modelSpec, dm *datamodel.Datamodel) (*datamodel.Model, error) {
	m := &datamodel.Model{
		Name:           ms.Name,
		DatabaseName:   sqlx.V(ms.DBName),
		IDFields:       ms.IDFields,
		IsCommentedOut: sqlx.V(ms.CommentedOut),
		Documentation:  sqlx.V(ms.Documentation),
	}
	for _, fs := range ms.Fields {
		f, err := decodeField(fs, dm)
		if err != nil {
			return nil, fmt.Errorf("sqlspec: model %q: %w", ms.Name, err)
		}
		m.Fields = append(m.Fields, f)
	}
	for _, rs := range ms.Relations {
		m.Fields = append(m.Fields, decodeRelation(ms.Name, rs))
	}
	for _, is := range ms.Indexes {
		def := datamodel.IndexDefinition{Name: is.Name, Fields: is.Fields, Type: datamodel.IndexNormal}
		if sqlx.V(is.Unique) {
			def.Type = datamodel.IndexUnique
		}
		m.Indexes = append(m.Indexes, def)
	}
	return m, nil
}

func decodeField(fs *fieldSpec, dm *datamodel.Datamodel) (*datamodel.ScalarField, error) {
	sf := &datamodel.ScalarField{
		Name:           fs.Name,
		Arity:          arityOf(fs.Optional, fs.List),
		DatabaseName:   sqlx.V(fs.DBName),
		IsUnique:       sqlx.V(fs.Unique),
		IsID:           sqlx.V(fs.ID),
		IsUpdatedAt:    sqlx.V(fs.UpdatedAt),
		IsCommentedOut: sqlx.V(fs.CommentedOut),
		Documentation:  sqlx.V(fs.Docs),
	}
	switch {
	case sqlx.V(fs.Unsupported):
		sf.Type = &datamodel.UnsupportedType{T: fs.Type}
	case isScalar(fs.Type):
		sf.Type = &datamodel.BaseType{Scalar: datamodel.Scalar(fs.Type), NativeType: sqlx.V(fs.NativeType)}
	default:
		if _, ok := dm.Enum(fs.Type); !ok {
			return nil, fmt.Errorf("field %q has unknown type %q", fs.Name, fs.Type)
		}
		sf.Type = &datamodel.EnumType{Name: fs.Type}
	}
	d, err := decodeDefault(fs)
	if err != nil {
		return nil, err
	}
	sf.Default = d
	return sf, nil
}

func decodeDefault(fs *fieldSpec) (datamodel.DefaultValue, error) {
	if fs.DefaultExpr != nil {
		switch x := *fs.DefaultExpr; x {
		case "autoincrement()":
			return datamodel.Autoincrement(), nil
		case "now()":
			return datamodel.NowExpression(), nil
		default:
			return &datamodel.Expression{Generator: datamodel.GeneratorDBGenerated, X: x}, nil
		}
	}
	if fs.Default == nil {
		return nil, nil
	}
	val, diags := fs.Default.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	switch val.Type() {
	case cty.String:
		return &datamodel.Single{V: val.AsString()}, nil
	case cty.Bool:
		return &datamodel.Single{V: val.True()}, nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		if fs.Type == string(datamodel.Float) {
			return &datamodel.Single{V: f}, nil
		}
		if i, acc := val.AsBigFloat().Int64(); acc == 0 {
			return &datamodel.Single{V: i}, nil
		}
		return &datamodel.Single{V: f}, nil
	default:
		return nil, fmt.Errorf("field %q has unsupported default type %s", fs.Name, val.Type().FriendlyName())
	}
}

func decodeRelation(model string, rs *relationSpec) *datamodel.RelationField {
	name := sqlx.V(rs.Relation)
	if name == "" {
		a, b := model, rs.To
		if b < a {
			a, b = b, a
		}
		name = a + "To" + b
	}
	return &datamodel.RelationField{
		Name:  rs.Name,
		Arity: arityOf(rs.Optional, rs.List),
		Info: datamodel.RelationInfo{
			To:       rs.To,
			Fields:   rs.Fields,
			ToFields: rs.ToFields,
			Name:     name,
			OnDelete: onDeleteOf(rs.OnDelete),
		},
	}
}

func arityOf(optional, list *bool) datamodel.FieldArity {
	switch {
	case sqlx.V(list):
		return datamodel.List
	case sqlx.V(optional):
		return datamodel.Optional
	default:
		return datamodel.Required
	}
}

func onDeleteOf(s *string) datamodel.OnDeleteStrategy {
	if s == nil {
		return datamodel.OnDeleteNone
	}
	return datamodel.OnDeleteStrategy(*s)
}

func isScalar(s string) bool {
	switch datamodel.Scalar(s) {
	case datamodel.Int, datamodel.Float, datamodel.Boolean, datamodel.String, datamodel.DateTime, datamodel.Json:
		return true
	}
	return false
}
