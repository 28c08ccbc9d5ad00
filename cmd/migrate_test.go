// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestMigrationActionsRequireDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	called := false
	action := withMigrationDB(func(context.Context, *sql.DB) error {
		called = true
		return nil
	})

	command := &cli.Command{
		Name:   "status",
		Flags:  CmdMigrate.Flags,
		Action: action,
	}

	err := command.Run(context.Background(), []string{"status"})
	if !errors.Is(err, errDatabaseURLRequired) {
		t.Fatalf("expected errDatabaseURLRequired, got %v", err)
	}

	if called {
		t.Fatal("migration ran without a database")
	}
}

func TestMigrateCreateRequiresName(t *testing.T) {
	t.Parallel()

	command := &cli.Command{Name: "create", Action: migrateCreate}

	if err := command.Run(context.Background(), []string{"create"}); !errors.Is(err, errMigrationNameRequired) {
		t.Fatalf("expected errMigrationNameRequired, got %v", err)
	}
}
