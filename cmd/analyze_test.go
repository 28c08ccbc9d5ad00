// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/humaidq/trtlog/analytics"
)

func TestWriteStateFile(t *testing.T) {
	t.Parallel()

	t.Run("writes a decodable state", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "merged.json")
		state := analytics.State{Settings: analytics.DefaultSettings()}

		if err := writeStateFile(path, state); err != nil {
			t.Fatalf("writeStateFile failed: %v", err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open written file: %v", err)
		}

		defer func() { _ = f.Close() }()

		decoded, err := analytics.DecodeState(f)
		if err != nil {
			t.Fatalf("written file does not decode: %v", err)
		}

		if decoded.SchemaVersion != analytics.StateSchemaVersion {
			t.Fatalf("unexpected schema version %d", decoded.SchemaVersion)
		}
	})

	t.Run("reports create failure", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "missing", "merged.json")
		if err := writeStateFile(path, analytics.State{}); err == nil {
			t.Fatal("expected an error for an unwritable path")
		}
	})
}
