package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bagtoad/libload/internal/bundle"
	"github.com/klauspost/compress/zip"
)

func openBundle(t *testing.T, files map[string][]byte) *bundle.Bundle {
	t.Helper()
	p := filepath.Join(t.TempDir(), "app.jar")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := bundle.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestExtract(t *testing.T) {
	b := openBundle(t, map[string][]byte{
		"jnilibs/linux-amd64/libfoo.so": []byte("foo"),
		"jnilibs/tutorial.jnilib":       []byte("tutorial"),
		"jnilibs/notes.txt":             []byte("skip me"),
	})
	dest := t.TempDir()

	results, err := Extract(b, bundle.DefaultPrefix, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	for _, r := range results {
		data, err := os.ReadFile(r.DestPath)
		if err != nil {
			t.Errorf("destination file missing: %s", r.DestPath)
			continue
		}
		if int64(len(data)) != r.Size {
			t.Errorf("%s: expected %d bytes, got %d", r.Name, r.Size, len(data))
		}
	}

	if _, err := os.Stat(filepath.Join(dest, "linux-amd64", "libfoo.so")); err != nil {
		t.Error("nested library should keep its folder")
	}
	if _, err := os.Stat(filepath.Join(dest, "notes.txt")); !os.IsNotExist(err) {
		t.Error("non-library entries should not be extracted")
	}
}

func TestExtractDryRun(t *testing.T) {
	b := openBundle(t, map[string][]byte{"jnilibs/linux-amd64/libfoo.so": []byte("foo")})
	dest := t.TempDir()

	results, err := Extract(b, bundle.DefaultPrefix, dest, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Size != 3 {
		t.Errorf("expected size 3 from the archive header, got %d", results[0].Size)
	}
	if _, err := os.Stat(filepath.Join(dest, "linux-amd64")); !os.IsNotExist(err) {
		t.Error("folder should not exist in dry-run")
	}
}

func TestExtractConflict(t *testing.T) {
	b := openBundle(t, map[string][]byte{"jnilibs/libfoo.so": []byte("new")})
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "libfoo.so"), []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := Extract(b, bundle.DefaultPrefix, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	expected := filepath.Join(dest, "libfoo_1.so")
	if results[0].DestPath != expected {
		t.Errorf("expected dest %s, got %s", expected, results[0].DestPath)
	}
	if data, _ := os.ReadFile(filepath.Join(dest, "libfoo.so")); string(data) != "existing" {
		t.Error("existing file must not be overwritten")
	}
	if data, _ := os.ReadFile(expected); string(data) != "new" {
		t.Error("renamed file should hold the bundle contents")
	}
}

func TestExtractRefusesTraversal(t *testing.T) {
	b := openBundle(t, map[string][]byte{"jnilibs/../../evil.so": []byte("x")})

	if _, err := Extract(b, bundle.DefaultPrefix, t.TempDir(), false); err == nil {
		t.Error("expected error for entry escaping the destination")
	}
}

func TestExtractEmpty(t *testing.T) {
	b := openBundle(t, map[string][]byte{"Main.class": []byte("x")})

	results, err := Extract(b, bundle.DefaultPrefix, t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestExtractIntoCurrentDir(t *testing.T) {
	b := openBundle(t, map[string][]byte{
		"jnilibs/libfoo.so":             []byte("foo"),
		"jnilibs/linux-amd64/libbar.so": []byte("bar"),
	})

	for _, dest := range []string{".", "./"} {
		t.Run(dest, func(t *testing.T) {
			t.Chdir(t.TempDir())

			results, err := Extract(b, bundle.DefaultPrefix, dest, false)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 2 {
				t.Fatalf("expected 2 results, got %d", len(results))
			}
			if data, err := os.ReadFile("libfoo.so"); err != nil || string(data) != "foo" {
				t.Errorf("libfoo.so not extracted into the working directory: %v", err)
			}
			if _, err := os.Stat(filepath.Join("linux-amd64", "libbar.so")); err != nil {
				t.Errorf("nested library missing: %v", err)
			}
		})
	}
}

func TestExtractConflictVersioned(t *testing.T) {
	b := openBundle(t, map[string][]byte{"jnilibs/libfoo.so.1": []byte("new")})
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "libfoo.so.1"), []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := Extract(b, bundle.DefaultPrefix, dest, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	expected := filepath.Join(dest, "libfoo_1.so.1")
	if results[0].DestPath != expected {
		t.Errorf("expected dest %s, got %s", expected, results[0].DestPath)
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		dir, p string
		want   bool
	}{
		{".", "libfoo.so", true},
		{"./", "libfoo.so", true},
		{"out", filepath.Join("out", "libfoo.so"), true},
		{"out", filepath.Join("out", "..libfoo.so"), true},
		{"out", "libfoo.so", false},
		{"out", filepath.Join("out", "..", "..", "evil.so"), false},
		{".", filepath.Join("..", "evil.so"), false},
	}
	for _, tt := range tests {
		if got := within(tt.dir, tt.p); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.dir, tt.p, got, tt.want)
		}
	}
}
