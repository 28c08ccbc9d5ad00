// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/flamego/session"
)

func TestSessionStoreIniterDefaults(t *testing.T) {
	t.Parallel()

	store, err := SessionStoreIniter()(testContext())
	if err != nil {
		t.Fatalf("SessionStoreIniter failed: %v", err)
	}

	pgStore, ok := store.(*SessionStore)
	if !ok {
		t.Fatalf("expected *SessionStore, got %T", store)
	}

	if pgStore.lifetime != defaultSessionLifetime {
		t.Fatalf("expected default lifetime, got %v", pgStore.lifetime)
	}
}

func TestSessionStoreIniterConfig(t *testing.T) {
	t.Parallel()

	store, err := SessionStoreIniter()(testContext(), SessionStoreConfig{Lifetime: time.Hour})
	if err != nil {
		t.Fatalf("SessionStoreIniter failed: %v", err)
	}

	if got := store.(*SessionStore).lifetime; got != time.Hour {
		t.Fatalf("expected configured lifetime, got %v", got)
	}

	if _, err := SessionStoreIniter()(testContext(), "invalid"); !errors.Is(err, errInvalidSessionConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	store, err := SessionStoreIniter()(ctx, SessionStoreConfig{Lifetime: time.Hour})
	if err != nil {
		t.Fatalf("SessionStoreIniter failed: %v", err)
	}

	noopWriter := func(http.ResponseWriter, *http.Request, string) {}

	sess := session.NewBaseSession("sess1", session.GobEncoder, noopWriter)
	sess.Set("flash-test", "pending")

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !store.Exist(ctx, "sess1") {
		t.Fatalf("expected session to exist")
	}

	read, err := store.Read(ctx, "sess1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if read.Get("flash-test") != "pending" {
		t.Fatalf("expected stored value, got %#v", read.Get("flash-test"))
	}

	if err := store.Touch(ctx, "sess1"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	missing, err := store.Read(ctx, "missing")
	if err != nil || missing.ID() != "missing" || missing.Get("flash-test") != nil {
		t.Fatalf("expected fresh session for unknown ID, got %#v, %v", missing, err)
	}

	if err := store.GC(ctx); err != nil {
		t.Fatalf("GC failed: %v", err)
	}

	if err := store.Destroy(ctx, "sess1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	if store.Exist(ctx, "sess1") {
		t.Fatalf("expected session to be removed")
	}
}
