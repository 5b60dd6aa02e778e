package libname

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestForPlatform(t *testing.T) {
	tests := []struct {
		goos, goarch, want string
	}{
		{"linux", "amd64", "linux-amd64/libfoo.so"},
		{"freebsd", "arm64", "freebsd-arm64/libfoo.so"},
		{"darwin", "arm64", "darwin-arm64/libfoo.dylib"},
		{"windows", "amd64", "windows-amd64/foo.dll"},
	}
	for _, tt := range tests {
		if got := ForPlatform("foo", tt.goos, tt.goarch); got != tt.want {
			t.Errorf("ForPlatform(foo, %s, %s) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
}

func TestExpand(t *testing.T) {
	if got, want := Expand("@onnxruntime"), ForPlatform("onnxruntime", runtime.GOOS, runtime.GOARCH); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := Expand("tutorial.jnilib"); got != "tutorial.jnilib" {
		t.Errorf("plain names must be unchanged, got %q", got)
	}
	if got := Expand("@"); got != "@" {
		t.Errorf("bare prefix must be unchanged, got %q", got)
	}
}

func TestResolveWithCLINames(t *testing.T) {
	result, err := Resolve([]string{"foo.so", "bar.so"}, "/nonexistent/list.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(result) != 2 || result[0] != "foo.so" {
		t.Errorf("unexpected result %v", result)
	}
}

func TestResolveFromList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libraries.txt")
	content := "foo.so\n# a comment\n  @bar  \n\ntutorial.jnilib\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	names, err := Resolve(nil, path)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"foo.so", Current("bar"), "tutorial.jnilib"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d names, got %d: %v", len(expected), len(names), names)
	}
	for i, n := range expected {
		if names[i] != n {
			t.Errorf("name %d: expected %q, got %q", i, n, names[i])
		}
	}
}

func TestResolveNothingRequested(t *testing.T) {
	if _, err := Resolve(nil, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error when no libraries are requested")
	}
	if _, err := Resolve(nil, ""); err == nil {
		t.Error("expected error when no libraries are requested")
	}
}

func TestLoadListNoFile(t *testing.T) {
	names, err := LoadList(filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if names != nil {
		t.Errorf("expected nil for missing file, got %v", names)
	}
}

func TestDefaultListPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	p, err := DefaultListPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".libload", "libraries.txt"); p != want {
		t.Errorf("expected %q, got %q", want, p)
	}
}
