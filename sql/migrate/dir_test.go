// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirCreateAndList(t *testing.T) {
	d := NewDir(t.TempDir())

	first, err := d.Create("init", time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "202103142653_init", first.ID())

	second, err := d.Create("AddUsers", time.Date(2021, 4, 1, 12, 0, 7, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "202104010007_add_users", second.ID())

	ms, err := d.List()
	require.NoError(t, err)
	require.Len(t, ms, 2)
	require.Equal(t, "202103142653_init", ms[0].ID())
	require.Equal(t, "202104010007_add_users", ms[1].ID())
}

func TestDirCreateRefusesDuplicates(t *testing.T) {
	d := NewDir(t.TempDir())
	stamp := time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)
	_, err := d.Create("init", stamp)
	require.NoError(t, err)
	_, err = d.Create("init", stamp)
	require.Error(t, err)
}

func TestScriptRoundTrip(t *testing.T) {
	d := NewDir(t.TempDir())
	m, err := d.Create("init", time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC))
	require.NoError(t, err)

	const script = "CREATE TABLE \"users\" (\"id\" SERIAL);\n"
	require.NoError(t, m.WriteScript(script, "sql"))
	read, err := m.ReadScript("sql")
	require.NoError(t, err)
	require.Equal(t, script, read)
}
