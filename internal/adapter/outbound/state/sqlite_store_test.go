package state

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(ctx, ":memory:", testLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("Get() on empty store = (ok=%v, err=%v)", ok, err)
	}

	if err := s.Set(ctx, "token", "T1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "token", "T2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok || v != "T2" {
		t.Fatalf("Get() = (%q, %v, %v), want (T2, true, nil)", v, ok, err)
	}

	if err := s.Set(ctx, "user", `{"id":1}`); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "token", "user"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, k := range []string{"token", "user"} {
		if _, ok, _ := s.Get(ctx, k); ok {
			t.Errorf("%s still present after Delete", k)
		}
	}
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenSQLiteStore(ctx, path, testLogger())
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	if err := s.Set(ctx, "token", "T1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenSQLiteStore(ctx, path, testLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "token")
	if err != nil || !ok || v != "T1" {
		t.Fatalf("Get() after reopen = (%q, %v, %v), want (T1, true, nil)", v, ok, err)
	}
}
