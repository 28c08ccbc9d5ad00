// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"os"
	"testing"
)

func TestInitRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if err := Init(testContext()); !errors.Is(err, ErrDatabaseURLEnvVarNotSet) {
		t.Fatalf("expected ErrDatabaseURLEnvVarNotSet, got %v", err)
	}
}

func TestInitInvalidDatabaseURL(t *testing.T) {
	requireDatabase(t)
	t.Setenv("DATABASE_URL", "postgres://")

	if err := Init(testContext()); err == nil {
		t.Fatalf("expected error for invalid database url")
	}
}

func TestGetPoolAndClose(t *testing.T) {
	requireDatabase(t)

	if GetPool() == nil {
		t.Fatalf("expected pool to be initialized")
	}

	Close()

	if GetPool() != nil {
		t.Fatalf("expected pool to be nil after Close")
	}

	if err := initTestPool(testContext(), os.Getenv("DATABASE_URL"), testSchemaName); err != nil {
		t.Fatalf("failed to re-init pool: %v", err)
	}
}

func TestSyncSchema(t *testing.T) {
	requireDatabase(t)

	searchPathURL, err := withSearchPath(os.Getenv("DATABASE_URL"), testSchemaName)
	if err != nil {
		t.Fatalf("withSearchPath failed: %v", err)
	}

	t.Setenv("DATABASE_URL", searchPathURL)

	// Migrations are already applied; a second run must be a no-op.
	if err := SyncSchema(testContext()); err != nil {
		t.Fatalf("SyncSchema failed: %v", err)
	}
}
