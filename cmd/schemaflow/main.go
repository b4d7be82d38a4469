// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package main contains the cli implementation of the tool. It uses
// the cobra package for the command tree and reads an optional
// schemaflow.toml project file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/sql/calculate"
	"github.com/schemaflow/schemaflow/sql/check"
	"github.com/schemaflow/schemaflow/sql/diff"
	"github.com/schemaflow/schemaflow/sql/migrate"
	"github.com/schemaflow/schemaflow/sql/mssql"
	"github.com/schemaflow/schemaflow/sql/mysql"
	"github.com/schemaflow/schemaflow/sql/postgres"
	"github.com/schemaflow/schemaflow/sql/schema"
	"github.com/schemaflow/schemaflow/sql/sqlite"
	"github.com/schemaflow/schemaflow/sql/sqlspec"
)

// config is the optional schemaflow.toml project file. Flags
// override its values.
type config struct {
	Dialect      string `toml:"dialect"`
	Dir          string `toml:"dir"`
	MySQLVersion string `toml:"mysql_version"`
}

// flavour groups the capability surfaces every dialect implements.
type flavour interface {
	calculate.Flavour
	diff.Flavour
	check.Flavour
	migrate.Flavour
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemaflow",
		Short: "Schema toolchain: calculate, diff, render and check migrations",
	}

	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(migrationsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type planFlags struct {
	config  string
	dialect string
	dir     string
	name    string
	unsafe  bool
}

func planCmd() *cobra.Command {
	flags := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan <prev.hcl> <next.hcl>",
		Short: "Render the migration moving one declared schema to another",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPlan(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "schemaflow.toml", "Project file")
	cmd.Flags().StringVar(&flags.dialect, "dialect", "", "Target dialect: postgres, mysql, sqlite or mssql")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Migrations directory to write into")
	cmd.Flags().StringVar(&flags.name, "name", "", "Migration name")
	cmd.Flags().BoolVar(&flags.unsafe, "unsafe", false, "Write the migration even when steps are unexecutable")
	return cmd
}

func runPlan(prevFile, nextFile string, flags *planFlags) error {
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return err
	}
	if flags.dialect != "" {
		cfg.Dialect = flags.dialect
	}
	if flags.dir != "" {
		cfg.Dir = flags.dir
	}
	f, err := flavourFor(cfg)
	if err != nil {
		return err
	}
	plan, err := planFiles(prevFile, nextFile, f)
	if err != nil {
		return err
	}
	result := check.Check(plan, f)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s on %s\n", w.Kind, position(w.Table, w.Column))
	}
	for _, u := range result.Unexecutables {
		fmt.Fprintf(os.Stderr, "unexecutable: %s on %s\n", u.Kind, position(u.Table, u.Column))
	}
	if result.HasBlockers() && !flags.unsafe {
		return fmt.Errorf("migration contains unexecutable steps; re-run with --unsafe to write it anyway")
	}
	stmts, err := migrate.Render(plan, f)
	if err != nil {
		return err
	}
	script := migrate.Script(stmts)
	if cfg.Dir == "" || flags.name == "" {
		fmt.Print(script)
		return nil
	}
	m, err := migrate.NewDir(cfg.Dir).Create(flags.name, time.Now())
	if err != nil {
		return err
	}
	if err := m.WriteScript(script, "sql"); err != nil {
		return err
	}
	fmt.Printf("Wrote migration %s\n", m.ID())
	return nil
}

type diffFlags struct {
	config  string
	dialect string
}

func diffCmd() *cobra.Command {
	flags := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff <prev.hcl> <next.hcl>",
		Short: "Compare two declared schemas",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.config)
			if err != nil {
				return err
			}
			if flags.dialect != "" {
				cfg.Dialect = flags.dialect
			}
			f, err := flavourFor(cfg)
			if err != nil {
				return err
			}
			plan, err := planFiles(args[0], args[1], f)
			if err != nil {
				return err
			}
			if len(plan.Steps) == 0 {
				fmt.Println("Schemas are in sync.")
				return nil
			}
			for _, step := range plan.Steps {
				fmt.Println(describe(step))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "schemaflow.toml", "Project file")
	cmd.Flags().StringVar(&flags.dialect, "dialect", "", "Target dialect: postgres, mysql, sqlite or mssql")
	return cmd
}

func migrationsCmd() *cobra.Command {
	var configFile, dir string
	cmd := &cobra.Command{
		Use:   "migrations",
		Short: "List the migrations directory",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Dir = dir
			}
			if cfg.Dir == "" {
				return fmt.Errorf("no migrations directory configured")
			}
			ms, err := migrate.NewDir(cfg.Dir).List()
			if err != nil {
				return err
			}
			for _, m := range ms {
				fmt.Println(m.ID())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "schemaflow.toml", "Project file")
	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory")
	return cmd
}

func planFiles(prevFile, nextFile string, f flavour) (*migrate.Plan, error) {
	prev, err := loadSchema(prevFile, f)
	if err != nil {
		return nil, err
	}
	next, err := loadSchema(nextFile, f)
	if err != nil {
		return nil, err
	}
	return diff.Diff(prev, next, f)
}

func loadSchema(file string, f flavour) (*schema.SqlSchema, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	dm, err := sqlspec.Unmarshal(buf, file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	s, err := calculate.Calculate(dm, f)
	if err != nil {
		return nil, fmt.Errorf("calculate %s: %w", file, err)
	}
	return s, nil
}

func loadConfig(file string) (*config, error) {
	cfg := &config{Dialect: "postgres"}
	if file == "" {
		return cfg, nil
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return cfg, nil
}

func flavourFor(cfg *config) (flavour, error) {
	switch cfg.Dialect {
	case "postgres":
		return postgres.New(), nil
	case "mysql":
		return mysql.New(cfg.MySQLVersion), nil
	case "sqlite":
		return sqlite.New(), nil
	case "mssql":
		return mssql.New(), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", cfg.Dialect)
	}
}

func describe(step migrate.Step) string {
	switch step := step.(type) {
	case *migrate.CreateTable:
		return fmt.Sprintf("create table %q", step.Table)
	case *migrate.DropTable:
		return fmt.Sprintf("drop table %q", step.Table)
	case *migrate.RenameTable:
		return fmt.Sprintf("rename table %q to %q", step.From, step.To)
	case *migrate.AlterTable:
		return fmt.Sprintf("alter table %q (%d changes)", step.Table, len(step.Changes))
	case *migrate.CreateIndex:
		return fmt.Sprintf("create index %q on %q", step.Index.Name, step.Table)
	case *migrate.DropIndex:
		return fmt.Sprintf("drop index %q on %q", step.Index, step.Table)
	case *migrate.AlterIndex:
		return fmt.Sprintf("rename index %q on %q to %q", step.Index, step.Table, step.NewName)
	case *migrate.AddForeignKey:
		return fmt.Sprintf("add foreign key on %q referencing %q", step.Table, step.ForeignKey.ReferencedTable)
	case *migrate.DropForeignKey:
		return fmt.Sprintf("drop foreign key %q on %q", step.ConstraintName, step.Table)
	case *migrate.CreateEnum:
		return fmt.Sprintf("create enum %q", step.Name)
	case *migrate.DropEnum:
		return fmt.Sprintf("drop enum %q", step.Name)
	case *migrate.AlterEnum:
		return fmt.Sprintf("alter enum %q (+%d, -%d values)", step.Name, len(step.AddedValues), len(step.RemovedValues))
	case *migrate.RedefineTables:
		return fmt.Sprintf("redefine %d tables", len(step.Tables))
	default:
		return fmt.Sprintf("%T", step)
	}
}

func position(table, column string) string {
	if column == "" {
		return fmt.Sprintf("table %q", table)
	}
	return fmt.Sprintf("column %q.%q", table, column)
}
