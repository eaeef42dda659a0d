package store_test

import (
	"testing"

	"github.com/loykin/storegw/internal/store"
	_ "github.com/loykin/storegw/internal/store/postgres"
	_ "github.com/loykin/storegw/internal/store/sqlite"
)

func TestFactorySupportedTypes(t *testing.T) {
	types := store.SupportedTypes()
	want := map[string]bool{"sqlite": false, "postgres": false, "postgresql": false}
	for _, ty := range types {
		if _, ok := want[ty]; ok {
			want[ty] = true
		}
	}
	for ty, seen := range want {
		if !seen {
			t.Fatalf("backend %q not registered (got %v)", ty, types)
		}
	}
}

func TestFactoryCreateSQLite(t *testing.T) {
	s, err := store.New(store.Config{Type: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("create sqlite: %v", err)
	}
	_ = s.Close()
}

func TestFactoryUnknownType(t *testing.T) {
	if _, err := store.New(store.Config{Type: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
