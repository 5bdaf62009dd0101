package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintFileFlagsMissingMarker(t *testing.T) {
	path := writeGo(t, t.TempDir(), "q.go", "package q\n\nconst QBad = `SELECT 1`\n\nconst QGood = `--sql 0b6f0c1e-6d53-4a55-9c4b-9d1f8f1f0a01\nSELECT 1`\n")
	vs, markers, err := lintFile(path)
	if err != nil {
		t.Fatalf("lintFile: %v", err)
	}
	if len(vs) != 1 || vs[0].name != "QBad" {
		t.Fatalf("expected one violation for QBad, got %+v", vs)
	}
	if len(markers) != 1 {
		t.Fatalf("expected one marker, got %d", len(markers))
	}
}

func TestDuplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	const id = "--sql 0b6f0c1e-6d53-4a55-9c4b-9d1f8f1f0a02"
	a := writeGo(t, dir, "a.go", "package q\n\nconst QA = `"+id+"\nSELECT 1`\n")
	b := writeGo(t, dir, "b.go", "package q\n\nconst QB = `"+id+"\nUPDATE t SET x = 1`\n")

	seen := map[string]marker{}
	var dups []violation
	for _, path := range []string{a, b} {
		_, ms, err := lintFile(path)
		if err != nil {
			t.Fatalf("lintFile: %v", err)
		}
		dups = append(dups, duplicates(seen, ms)...)
	}
	if len(dups) != 1 || dups[0].name != "QB" {
		t.Fatalf("expected QB flagged as duplicate, got %+v", dups)
	}
}
