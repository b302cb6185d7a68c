package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationFS_PairedFiles(t *testing.T) {
	entries, err := fs.ReadDir(MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %q", name)
		}
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %q has no down file", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %q has no up file", base)
		}
	}
}
