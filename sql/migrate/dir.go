// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
)

// ScriptFilename is the file name for migration scripts inside a
// migration directory, not including the file extension.
const ScriptFilename = "migration"

// timestampFormat renders year, month, day, minute and second.
const timestampFormat = "200601020405"

type (
	// A Dir manages the contents of a migrations directory: one
	// sub-directory per migration, named "{timestamp}_{name}", each
	// holding a single migration script.
	Dir struct {
		path string
	}

	// A MigrationDir is one migration inside a Dir.
	MigrationDir struct {
		path string
	}
)

// NewDir returns a Dir for the given path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Create creates a directory for a new migration stamped with the
// given time. The name is normalised to a snake-case identifier. An
// error is returned if the directory already exists.
func (d *Dir) Create(name string, now time.Time) (*MigrationDir, error) {
	id := fmt.Sprintf("%s_%s", now.UTC().Format(timestampFormat), inflect.Underscore(name))
	path := filepath.Join(d.path, id)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("sql/migrate: migration directory already exists at %s", path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &MigrationDir{path: path}, nil
}

// List returns the migrations in the directory, ordered by
// increasing migration id.
func (d *Dir) List() ([]*MigrationDir, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var ms []*MigrationDir
	for _, e := range entries {
		if e.IsDir() {
			ms = append(ms, &MigrationDir{path: filepath.Join(d.path, e.Name())})
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID() < ms[j].ID() })
	return ms, nil
}

// ID returns the "{timestamp}_{name}" formatted migration id.
func (m *MigrationDir) ID() string {
	return filepath.Base(m.path)
}

// WriteScript writes the migration script with the given extension.
func (m *MigrationDir) WriteScript(script, ext string) error {
	name := ScriptFilename + "." + strings.TrimPrefix(ext, ".")
	return os.WriteFile(filepath.Join(m.path, name), []byte(script), 0o644)
}

// ReadScript reads the migration script with the given extension.
func (m *MigrationDir) ReadScript(ext string) (string, error) {
	name := ScriptFilename + "." + strings.TrimPrefix(ext, ".")
	buf, err := os.ReadFile(filepath.Join(m.path, name))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
