package persist

import (
	"context"
	"path/filepath"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreSetGetDeleteClear(t *testing.T) {
	ctx := context.Background()

	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, KeyAccessToken); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}

			err := s.SetMany(ctx, map[string]string{
				KeyAccessToken:  "a1",
				KeyRefreshToken: "r1",
				KeyCurrentRoom:  "room",
			})
			if err != nil {
				t.Fatalf("SetMany: %v", err)
			}
			if got, _ := GetString(ctx, s, KeyAccessToken); got != "a1" {
				t.Fatalf("expected a1, got %q", got)
			}

			if err := Set(ctx, s, KeyAccessToken, "a2"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if got, _ := GetString(ctx, s, KeyAccessToken); got != "a2" {
				t.Fatalf("expected overwritten a2, got %q", got)
			}

			if err := Set(ctx, s, KeyCurrentRoom, ""); err != nil {
				t.Fatalf("Set empty: %v", err)
			}
			if _, ok, _ := s.Get(ctx, KeyCurrentRoom); ok {
				t.Fatal("empty value should delete the key")
			}

			if err := s.Delete(ctx, KeyRefreshToken); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := s.Get(ctx, KeyRefreshToken); ok {
				t.Fatal("expected refresh token to be deleted")
			}

			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if _, ok, _ := s.Get(ctx, KeyAccessToken); ok {
				t.Fatal("expected Clear to remove every key")
			}
		})
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := Set(ctx, s, KeyUsername, "theseus"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	if got, _ := GetString(ctx, s, KeyUsername); got != "theseus" {
		t.Fatalf("expected persisted username, got %q", got)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
}
