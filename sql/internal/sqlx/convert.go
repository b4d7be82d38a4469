// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlx

import (
	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/schema"
)

// ColumnArity maps a field arity to its column arity.
func ColumnArity(a datamodel.FieldArity) schema.ColumnArity {
	switch a {
	case datamodel.Required:
		return schema.Required
	case datamodel.List:
		return schema.List
	default:
		return schema.Nullable
	}
}

// ScalarFamily maps a scalar type to its column type family.
func ScalarFamily(s datamodel.Scalar) schema.ColumnTypeFamily {
	switch s {
	case datamodel.Int:
		return schema.FamilyInt
	case datamodel.Float:
		return schema.FamilyFloat
	case datamodel.Boolean:
		return schema.FamilyBoolean
	case datamodel.DateTime:
		return schema.FamilyDateTime
	case datamodel.Json:
		return schema.FamilyJson
	default:
		return schema.FamilyString
	}
}
