// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlspec

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/schemaflow/schemaflow/sql/datamodel"
)

// Marshal encodes a data model into its HCL document form. Each model
// lists its scalar fields before its relation fields. The embedded and
// generated flags, enum documentation and commented-out flags, and enum
// value database names are not encoded, so decoding the result with
// Unmarshal yields a structurally equal data model only when those are
// unset and every model already lists its scalar fields first.
func Marshal(dm *datamodel.Datamodel) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, e := range dm.Enums {
		if i > 0 {
			body.AppendNewline()
		}
		writeEnum(body, e)
	}
	for i, m := range dm.Models {
		if i > 0 || len(dm.Enums) > 0 {
			body.AppendNewline()
		}
		writeModel(body, m)
	}
	return f.Bytes()
}

func writeEnum(body *hclwrite.Body, e *datamodel.Enum) {
	b := body.AppendNewBlock("enum", []string{e.Name}).Body()
	if e.DatabaseName != "" {
		b.SetAttributeValue("db_name", cty.StringVal(e.DatabaseName))
	}
	values := make([]cty.Value, 0, len(e.Values))
	for _, v := range e.Values {
		values = append(values, cty.StringVal(v.Name))
	}
	b.SetAttributeValue("values", listVal(values))
}

func writeModel(body *hclwrite.Body, m *datamodel.Model) {
	b := body.AppendNewBlock("model", []string{m.Name}).Body()
	if m.DatabaseName != "" {
		b.SetAttributeValue("db_name", cty.StringVal(m.DatabaseName))
	}
	if m.IsCommentedOut {
		b.SetAttributeValue("commented_out", cty.True)
	}
	if m.Documentation != "" {
		b.SetAttributeValue("docs", cty.StringVal(m.Documentation))
	}
	if len(m.IDFields) > 0 {
		b.SetAttributeValue("id_fields", stringList(m.IDFields))
	}
	for _, f := range m.Fields {
		if sf, ok := f.(*datamodel.ScalarField); ok {
			writeField(b, sf)
		}
	}
	for _, f := range m.Fields {
		if rf, ok := f.(*datamodel.RelationField); ok {
			writeRelation(b, rf)
		}
	}
	for _, def := range m.Indexes {
		ib := b.AppendNewBlock("index", []string{def.Name}).Body()
		ib.SetAttributeValue("fields", stringList(def.Fields))
		if def.Type == datamodel.IndexUnique {
			ib.SetAttributeValue("unique", cty.True)
		}
	}
}

func writeField(body *hclwrite.Body, sf *datamodel.ScalarField) {
	b := body.AppendNewBlock("field", []string{sf.Name}).Body()
	switch t := sf.Type.(type) {
	case *datamodel.BaseType:
		b.SetAttributeValue("type", cty.StringVal(string(t.Scalar)))
		if t.NativeType != "" {
			b.SetAttributeValue("native_type", cty.StringVal(t.NativeType))
		}
	case *datamodel.EnumType:
		b.SetAttributeValue("type", cty.StringVal(t.Name))
	case *datamodel.UnsupportedType:
		b.SetAttributeValue("type", cty.StringVal(t.T))
		b.SetAttributeValue("unsupported", cty.True)
	}
	switch sf.Arity {
	case datamodel.Optional:
		b.SetAttributeValue("optional", cty.True)
	case datamodel.List:
		b.SetAttributeValue("list", cty.True)
	}
	if sf.DatabaseName != "" {
		b.SetAttributeValue("db_name", cty.StringVal(sf.DatabaseName))
	}
	if sf.IsUnique {
		b.SetAttributeValue("unique", cty.True)
	}
	if sf.IsID {
		b.SetAttributeValue("id", cty.True)
	}
	if sf.IsUpdatedAt {
		b.SetAttributeValue("updated_at", cty.True)
	}
	if sf.IsCommentedOut {
		b.SetAttributeValue("commented_out", cty.True)
	}
	if sf.Documentation != "" {
		b.SetAttributeValue("docs", cty.StringVal(sf.Documentation))
	}
	writeDefault(b, sf.Default)
}

func writeDefault(b *hclwrite.Body, d datamodel.DefaultValue) {
	switch d := d.(type) {
	case nil:
	case *datamodel.Single:
		switch v := d.V.(type) {
		case string:
			b.SetAttributeValue("default", cty.StringVal(v))
		case bool:
			b.SetAttributeValue("default", cty.BoolVal(v))
		case int64:
			b.SetAttributeValue("default", cty.NumberIntVal(v))
		case float64:
			b.SetAttributeValue("default", cty.NumberFloatVal(v))
		}
	case *datamodel.Expression:
		switch d.Generator {
		case datamodel.GeneratorAutoincrement:
			b.SetAttributeValue("default_expr", cty.StringVal("autoincrement()"))
		case datamodel.GeneratorNow:
			b.SetAttributeValue("default_expr", cty.StringVal("now()"))
		default:
			b.SetAttributeValue("default_expr", cty.StringVal(d.X))
		}
	}
}

func writeRelation(body *hclwrite.Body, rf *datamodel.RelationField) {
	b := body.AppendNewBlock("relation", []string{rf.Name}).Body()
	b.SetAttributeValue("to", cty.StringVal(rf.Info.To))
	if len(rf.Info.Fields) > 0 {
		b.SetAttributeValue("fields", stringList(rf.Info.Fields))
	}
	if len(rf.Info.ToFields) > 0 {
		b.SetAttributeValue("to_fields", stringList(rf.Info.ToFields))
	}
	b.SetAttributeValue("relation", cty.StringVal(rf.Info.Name))
	switch rf.Arity {
	case datamodel.Optional:
		b.SetAttributeValue("optional", cty.True)
	case datamodel.List:
		b.SetAttributeValue("list", cty.True)
	}
	if rf.Info.OnDelete != datamodel.OnDeleteNone {
		b.SetAttributeValue("on_delete", cty.StringVal(string(rf.Info.OnDelete)))
	}
}

func stringList(vs []string) cty.Value {
	values := make([]cty.Value, 0, len(vs))
	for _, v := range vs {
		values = append(values, cty.StringVal(v))
	}
	return listVal(values)
}

func listVal(values []cty.Value) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	return cty.ListVal(values)
}
