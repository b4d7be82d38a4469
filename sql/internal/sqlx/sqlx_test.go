// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package sqlx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemaflow/schemaflow/sql/schema"
)

func TestBuilder(t *testing.T) {
	b := &Builder{QuoteOpening: '"', QuoteClosing: '"'}
	b.P("CREATE TABLE").Ident("users").Wrap(func(b *Builder) {
		b.MapComma([]string{"id", "name"}, func(i int, b *Builder) {
			b.Ident([]string{"id", "name"}[i]).P("text")
		})
	})
	require.Equal(t, `CREATE TABLE "users" ("id" text, "name" text)`, b.String())
}

func TestBuilderSchemaQualifier(t *testing.T) {
	b := &Builder{QuoteOpening: '[', QuoteClosing: ']', SchemaQualifier: "dbo"}
	b.P("DROP TABLE").Table("users")
	require.Equal(t, "DROP TABLE [dbo].[users]", b.String())
}

func TestEscapeStringLiteral(t *testing.T) {
	require.Equal(t, "it''s", EscapeStringLiteral("it's"))
	require.Equal(t, "'it''s'", SingleQuote("it's"))
	require.Equal(t, "'plain'", SingleQuote("plain"))
}

func TestFormatLiteral(t *testing.T) {
	require.Equal(t, "1", FormatLiteral(int64(1)))
	require.Equal(t, "1.5", FormatLiteral(1.5))
	require.Equal(t, "true", FormatLiteral(true))
	require.Equal(t, "'x'", FormatLiteral("x"))
}

func TestIndexHasNullableColumns(t *testing.T) {
	table := &schema.Table{
		Name: "users",
		Columns: []*schema.Column{
			{Name: "a", Type: schema.NewColumnType(schema.FamilyInt, schema.Required)},
			{Name: "b", Type: schema.NewColumnType(schema.FamilyInt, schema.Nullable)},
		},
	}
	require.False(t, IndexHasNullableColumns(table, &schema.Index{Columns: []string{"a"}}))
	require.True(t, IndexHasNullableColumns(table, &schema.Index{Columns: []string{"a", "b"}}))
}

func TestValuesEqual(t *testing.T) {
	require.True(t, ValuesEqual([]string{"a", "b"}, []string{"a", "b"}))
	require.False(t, ValuesEqual([]string{"a", "b"}, []string{"b", "a"}))
	require.False(t, ValuesEqual([]string{"a"}, []string{"a", "b"}))
}
