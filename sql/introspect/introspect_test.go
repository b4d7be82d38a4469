// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package introspect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/sql/datamodel"
	"github.com/schemaflow/schemaflow/sql/schema"
)

func TestAllColumnFamilies(t *testing.T) {
	families := []schema.ColumnTypeFamily{
		schema.FamilyInt,
		schema.FamilyFloat,
		schema.FamilyBoolean,
		schema.FamilyString,
		schema.FamilyDateTime,
		schema.FamilyBinary,
		schema.FamilyJson,
		schema.FamilyUuid,
		schema.FamilyGeometric,
		schema.FamilyLogSequenceNumber,
		schema.FamilyTextSearch,
		schema.FamilyTransactionId,
	}
	table := &schema.Table{Name: "Table1"}
	for _, f := range families {
		table.Columns = append(table.Columns, &schema.Column{
			Name: string(f),
			Type: schema.NewColumnType(f, schema.Nullable),
		})
	}
	dm, err := Introspect(&schema.SqlSchema{Tables: []*schema.Table{table}})
	require.NoError(t, err)
	require.Len(t, dm.Models, 1)

	m := dm.Models[0]
	require.Equal(t, "Table1", m.Name)
	require.True(t, m.IsCommentedOut)
	require.Equal(t, noIdentifierDoc, m.Documentation)
	require.Len(t, m.Fields, len(families))

	expected := map[schema.ColumnTypeFamily]datamodel.FieldType{
		schema.FamilyInt:      &datamodel.BaseType{Scalar: datamodel.Int},
		schema.FamilyFloat:    &datamodel.BaseType{Scalar: datamodel.Float},
		schema.FamilyBoolean:  &datamodel.BaseType{Scalar: datamodel.Boolean},
		schema.FamilyString:   &datamodel.BaseType{Scalar: datamodel.String},
		schema.FamilyDateTime: &datamodel.BaseType{Scalar: datamodel.DateTime},
		schema.FamilyJson:     &datamodel.BaseType{Scalar: datamodel.Json},
		schema.FamilyUuid:     &datamodel.BaseType{Scalar: datamodel.String},
	}
	for i, f := range families {
		sf, ok := m.Fields[i].(*datamodel.ScalarField)
		require.True(t, ok)
		require.Equal(t, string(f), sf.Name)
		require.Equal(t, datamodel.Optional, sf.Arity)
		if want, ok := expected[f]; ok {
			require.Equal(t, want, sf.Type, "family %s", f)
			require.False(t, sf.IsCommentedOut)
			require.Empty(t, sf.Documentation)
			continue
		}
		require.Equal(t, &datamodel.UnsupportedType{T: string(f)}, sf.Type, "family %s", f)
		require.True(t, sf.IsCommentedOut)
		require.Equal(t, unsupportedTypeDoc, sf.Documentation)
	}
}

func TestArityAndAutoincrement(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "Table1",
			Columns: []*schema.Column{
				{Name: "optional", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)},
				{Name: "required", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				{Name: "list", Type: schema.NewColumnType(schema.FamilyInt, schema.List)},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"required"}},
		}},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)

	m := dm.Models[0]
	require.False(t, m.IsCommentedOut)

	optional, ok := m.ScalarField("optional")
	require.True(t, ok)
	require.Equal(t, datamodel.Optional, optional.Arity)

	required, ok := m.ScalarField("required")
	require.True(t, ok)
	require.Equal(t, datamodel.Required, required.Arity)
	require.True(t, required.IsID)
	require.Equal(t, datamodel.Autoincrement(), required.Default)

	list, ok := m.ScalarField("list")
	require.True(t, ok)
	require.Equal(t, datamodel.List, list.Arity)
}

func TestDefaultsPreserved(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "Table1",
			Columns: []*schema.Column{
				{Name: "no_default", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				{Name: "int_default", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), Default: &schema.Value{V: int64(1)}},
				{Name: "bool_default", Type: schema.NewColumnType(schema.FamilyBoolean, schema.Nullable), Default: &schema.Value{V: true}},
				{Name: "float_default", Type: schema.NewColumnType(schema.FamilyFloat, schema.Nullable), Default: &schema.Value{V: 1.0}},
				{Name: "string_default", Type: schema.NewColumnType(schema.FamilyString, schema.Nullable), Default: &schema.Value{V: "default"}},
			},
			Indices: []*schema.Index{
				{Name: "unique", Columns: []string{"no_default", "int_default"}, Type: schema.IndexUnique},
			},
		}},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)

	m := dm.Models[0]
	require.False(t, m.IsCommentedOut)
	for name, want := range map[string]datamodel.DefaultValue{
		"int_default":    &datamodel.Single{V: int64(1)},
		"bool_default":   &datamodel.Single{V: true},
		"float_default":  &datamodel.Single{V: 1.0},
		"string_default": &datamodel.Single{V: "default"},
	} {
		sf, ok := m.ScalarField(name)
		require.True(t, ok, name)
		require.Equal(t, want, sf.Default, name)
	}
	noDefault, ok := m.ScalarField("no_default")
	require.True(t, ok)
	require.Nil(t, noDefault.Default)
	require.Equal(t, []datamodel.IndexDefinition{
		{Name: "unique", Fields: []string{"no_default", "int_default"}, Type: datamodel.IndexUnique},
	}, m.Indexes)
}

func TestPrimaryKeySeededBySequence(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "Table3",
			Columns: []*schema.Column{
				{Name: "primary", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
			},
			PrimaryKey: &schema.PrimaryKey{
				Columns:  []string{"primary"},
				Sequence: &schema.Sequence{Name: "sequence", InitialValue: 1, AllocationSize: 1},
			},
		}},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)
	sf, ok := dm.Models[0].ScalarField("primary")
	require.True(t, ok)
	require.True(t, sf.IsID)
	require.Equal(t, datamodel.Autoincrement(), sf.Default)
}

func TestSingleAndMultiColumnUniques(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "User",
			Columns: []*schema.Column{
				{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				{Name: "email", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
				{Name: "name", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
				{Name: "lastname", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
			},
			Indices: []*schema.Index{
				{Name: "email", Columns: []string{"email"}, Type: schema.IndexUnique},
				{Name: "name_last_name_unique", Columns: []string{"name", "lastname"}, Type: schema.IndexUnique},
				{Name: "sqlite_autoindex_User_1", Columns: []string{"name", "email"}, Type: schema.IndexNormal},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		}},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)

	m := dm.Models[0]
	email, ok := m.ScalarField("email")
	require.True(t, ok)
	require.True(t, email.IsUnique)
	require.Equal(t, []datamodel.IndexDefinition{
		{Name: "name_last_name_unique", Fields: []string{"name", "lastname"}, Type: datamodel.IndexUnique},
		{Name: "sqlite_autoindex_User_1", Fields: []string{"name", "email"}, Type: datamodel.IndexNormal},
	}, m.Indexes)
}

func compoundFKSchema() *schema.SqlSchema {
	return &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name: "City",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
					{Name: "name", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
			{
				Name: "User",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
					{Name: "city-id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
					{Name: "city-name", Type: schema.NewColumnType(schema.FamilyString, schema.Required)},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []*schema.ForeignKey{{
					Columns:           []string{"city-id", "city-name"},
					ReferencedTable:   "City",
					ReferencedColumns: []string{"id", "name"},
					OnDelete:          schema.NoAction,
					OnUpdate:          schema.NoAction,
				}},
			},
		},
	}
}

func TestCompoundForeignKeys(t *testing.T) {
	dm, err := Introspect(compoundFKSchema())
	require.NoError(t, err)

	user, ok := dm.Model("User")
	require.True(t, ok)
	cityID, ok := user.ScalarField("city_id")
	require.True(t, ok)
	require.Equal(t, "city-id", cityID.DatabaseName)
	cityName, ok := user.ScalarField("city_name")
	require.True(t, ok)
	require.Equal(t, "city-name", cityName.DatabaseName)

	rfs := user.RelationFields()
	require.Len(t, rfs, 1)
	require.Equal(t, &datamodel.RelationField{
		Name:  "City",
		Arity: datamodel.Required,
		Info: datamodel.RelationInfo{
			To:       "City",
			Fields:   []string{"city_id", "city_name"},
			ToFields: []string{"id", "name"},
			Name:     "CityToUser",
			OnDelete: datamodel.OnDeleteNone,
		},
	}, rfs[0])

	city, ok := dm.Model("City")
	require.True(t, ok)
	back := city.RelationFields()
	require.Len(t, back, 1)
	require.Equal(t, "User", back[0].Name)
	require.Equal(t, datamodel.List, back[0].Arity)
	require.Equal(t, "CityToUser", back[0].Info.Name)
}

func TestOneToOneFromUniqueIndex(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name: "User",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
			{
				Name: "Profile",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
					{Name: "userId", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				},
				Indices: []*schema.Index{
					{Name: "userId_unique", Columns: []string{"userId"}, Type: schema.IndexUnique},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []*schema.ForeignKey{{
					Columns:           []string{"userId"},
					ReferencedTable:   "User",
					ReferencedColumns: []string{"id"},
				}},
			},
		},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)
	user, ok := dm.Model("User")
	require.True(t, ok)
	back := user.RelationFields()
	require.Len(t, back, 1)
	require.Equal(t, datamodel.Optional, back[0].Arity)
}

func eventUserSchema() *schema.SqlSchema {
	return &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name: "User",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
			{
				Name: "Event",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
					{Name: "hostId", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []*schema.ForeignKey{{
					Columns:           []string{"hostId"},
					ReferencedTable:   "User",
					ReferencedColumns: []string{"id"},
				}},
			},
			{
				Name: "_EventToUser",
				Columns: []*schema.Column{
					{Name: "A", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
					{Name: "B", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				},
				Indices: []*schema.Index{
					{Name: "_EventToUser_AB_unique", Columns: []string{"A", "B"}, Type: schema.IndexUnique},
					{Name: "_EventToUser_B_index", Columns: []string{"B"}, Type: schema.IndexNormal},
				},
				ForeignKeys: []*schema.ForeignKey{
					{Columns: []string{"A"}, ReferencedTable: "Event", ReferencedColumns: []string{"id"}},
					{Columns: []string{"B"}, ReferencedTable: "User", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}
}

func TestImplicitManyToMany(t *testing.T) {
	dm, err := Introspect(eventUserSchema())
	require.NoError(t, err)
	require.Len(t, dm.Models, 2)

	user, ok := dm.Model("User")
	require.True(t, ok)
	event, ok := dm.Model("Event")
	require.True(t, ok)

	names := func(m *datamodel.Model) []string {
		var out []string
		for _, rf := range m.RelationFields() {
			out = append(out, rf.Name)
		}
		return out
	}
	require.Equal(t, []string{"Event_EventToUser", "Event_EventToUserManyToMany"}, names(user))
	require.Equal(t, []string{"User_EventToUser", "User_EventToUserManyToMany"}, names(event))

	forward := event.RelationFields()[0]
	require.Equal(t, "EventToUser", forward.Info.Name)
	require.Equal(t, []string{"hostId"}, forward.Info.Fields)
	require.Equal(t, datamodel.Required, forward.Arity)

	mn := event.RelationFields()[1]
	require.Equal(t, "EventToUserManyToMany", mn.Info.Name)
	require.Equal(t, datamodel.List, mn.Arity)
	require.Empty(t, mn.Info.Fields)
}

func selfManyToManySchema() *schema.SqlSchema {
	join := func(name string) *schema.Table {
		return &schema.Table{
			Name: name,
			Columns: []*schema.Column{
				{Name: "A", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				{Name: "B", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
			},
			Indices: []*schema.Index{
				{Name: name + "_AB_unique", Columns: []string{"A", "B"}, Type: schema.IndexUnique},
				{Name: name + "_B_index", Columns: []string{"B"}, Type: schema.IndexNormal},
			},
			ForeignKeys: []*schema.ForeignKey{
				{Columns: []string{"A"}, ReferencedTable: "User", ReferencedColumns: []string{"id"}},
				{Columns: []string{"B"}, ReferencedTable: "User", ReferencedColumns: []string{"id"}},
			},
		}
	}
	return &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name: "User",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
			join("_Friendship"),
			join("_Frenemyship"),
		},
	}
}

func TestSelfManyToMany(t *testing.T) {
	dm, err := Introspect(selfManyToManySchema())
	require.NoError(t, err)
	require.Len(t, dm.Models, 1)

	user := dm.Models[0]
	var names, relations []string
	for _, rf := range user.RelationFields() {
		names = append(names, rf.Name)
		relations = append(relations, rf.Info.Name)
		require.Equal(t, datamodel.List, rf.Arity)
		require.Equal(t, "User", rf.Info.To)
	}
	require.Equal(t, []string{"User_A_Friendship", "User_B_Friendship", "User_A_Frenemyship", "User_B_Frenemyship"}, names)
	require.Equal(t, []string{"Friendship", "Friendship", "Frenemyship", "Frenemyship"}, relations)
}

func TestSelfRelationDisambiguation(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "Person",
			Columns: []*schema.Column{
				{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				{Name: "partner_id", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			ForeignKeys: []*schema.ForeignKey{{
				Columns:           []string{"partner_id"},
				ReferencedTable:   "Person",
				ReferencedColumns: []string{"id"},
			}},
		}},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)

	person := dm.Models[0]
	rfs := person.RelationFields()
	require.Len(t, rfs, 2)
	seen := make(map[string]bool)
	for _, rf := range rfs {
		require.False(t, seen[rf.Name], "duplicate field name %q", rf.Name)
		seen[rf.Name] = true
		require.Equal(t, "PersonToPerson", rf.Info.Name)
	}
}

func TestTwoForeignKeysBetweenSamePair(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{
			{
				Name: "City",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			},
			{
				Name: "User",
				Columns: []*schema.Column{
					{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
					{Name: "born_in", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
					{Name: "lives_in", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []*schema.ForeignKey{
					{Columns: []string{"born_in"}, ReferencedTable: "City", ReferencedColumns: []string{"id"}},
					{Columns: []string{"lives_in"}, ReferencedTable: "City", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)

	user, ok := dm.Model("User")
	require.True(t, ok)
	rfs := user.RelationFields()
	require.Len(t, rfs, 2)
	require.Equal(t, "CityToUser_born_in", rfs[0].Info.Name)
	require.Equal(t, "CityToUser_lives_in", rfs[1].Info.Name)
	require.Equal(t, "City_CityToUser_born_in", rfs[0].Name)
	require.Equal(t, "City_CityToUser_lives_in", rfs[1].Name)
}

func TestEnumsPreserved(t *testing.T) {
	dm, err := Introspect(&schema.SqlSchema{
		Enums: []*schema.Enum{{Name: "Enum", Values: []string{"a", "b"}}},
	})
	require.NoError(t, err)
	require.Equal(t, []*datamodel.Enum{{
		Name:   "Enum",
		Values: []datamodel.EnumValue{{Name: "a"}, {Name: "b"}},
	}}, dm.Enums)
}

func TestEnumColumnBecomesEnumField(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "User",
			Columns: []*schema.Column{
				{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required), AutoIncrement: true},
				{Name: "color", Type: schema.ColumnType{Family: schema.FamilyEnum, EnumName: "Color", Arity: schema.Required}},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
		}},
		Enums: []*schema.Enum{{Name: "Color", Values: []string{"RED", "GREEN"}}},
	}
	dm, err := Introspect(s)
	require.NoError(t, err)
	sf, ok := dm.Models[0].ScalarField("color")
	require.True(t, ok)
	require.Equal(t, &datamodel.EnumType{Name: "Color"}, sf.Type)
}

func TestIntrospectionIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		dm1, err := Introspect(eventUserSchema())
		require.NoError(t, err)
		dm2, err := Introspect(eventUserSchema())
		require.NoError(t, err)
		require.Equal(t, dm1, dm2)
	}
}

func TestInvalidSchemaRejected(t *testing.T) {
	s := &schema.SqlSchema{
		Tables: []*schema.Table{{
			Name: "User",
			Columns: []*schema.Column{
				{Name: "id", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
			},
			ForeignKeys: []*schema.ForeignKey{{
				Columns:           []string{"id"},
				ReferencedTable:   "Missing",
				ReferencedColumns: []string{"id"},
			}},
		}},
	}
	_, err := Introspect(s)
	require.Error(t, err)
}
