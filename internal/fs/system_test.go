package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justyntemme/filer/internal/diritem"
)

func TestReadNames(t *testing.T) {
	tmpDir := t.TempDir()

	dirs := []string{"dir1", "dir2", ".hidden_dir"}
	files := []string{"file1.txt", "file2.go", ".hidden_file"}

	for _, d := range dirs {
		if err := os.Mkdir(filepath.Join(tmpDir, d), 0755); err != nil {
			t.Fatalf("failed to create dir %s: %v", d, err)
		}
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, f), []byte("test content"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", f, err)
		}
	}

	// Nested entries must not be listed
	if err := os.WriteFile(filepath.Join(tmpDir, "dir1", "nested.txt"), []byte("nested"), 0644); err != nil {
		t.Fatalf("failed to create nested file: %v", err)
	}

	l := NewLocal()
	names, err := l.ReadNames(tmpDir)
	if err != nil {
		t.Fatalf("ReadNames returned error: %v", err)
	}

	expected := len(dirs) + len(files)
	if len(names) != expected {
		t.Fatalf("expected %d names, got %d: %v", expected, len(names), names)
	}

	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}

	seen := make(map[string]bool)
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range append(dirs, files...) {
		if !seen[n] {
			t.Errorf("missing name %q", n)
		}
	}
	if seen["nested.txt"] {
		t.Error("nested file should not be listed")
	}
}

func TestReadNames_Empty(t *testing.T) {
	names, err := NewLocal().ReadNames(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no names, got %v", names)
	}
}

func TestReadNames_NonExistent(t *testing.T) {
	if _, err := NewLocal().ReadNames("/nonexistent/path/that/does/not/exist"); err == nil {
		t.Error("expected error for nonexistent path")
	}
}

func TestStatDir(t *testing.T) {
	tmpDir := t.TempDir()
	l := NewLocal()

	info, err := l.StatDir(tmpDir)
	if err != nil {
		t.Fatalf("StatDir returned error: %v", err)
	}
	if !info.Mode.IsDir() {
		t.Errorf("expected directory mode, got %v", info.Mode)
	}

	file := filepath.Join(tmpDir, "plain.txt")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.StatDir(file); err == nil {
		t.Error("StatDir on a regular file should fail")
	}
	if _, err := l.StatDir(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("StatDir on a missing path should fail")
	}
}

func TestRestat_Fields(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("hello world")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLocal()
	parent, err := l.StatDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	it := l.Restat(testFile, "test.txt", parent)

	if it.Name != "test.txt" {
		t.Errorf("expected Name='test.txt', got %q", it.Name)
	}
	if it.Type != diritem.TypeRegular {
		t.Errorf("expected TypeRegular, got %v", it.Type)
	}
	if it.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), it.Size)
	}
	if it.Mode.Perm() != 0644 {
		t.Errorf("expected perm 0644, got %v", it.Mode.Perm())
	}
	if it.MimeType != "text/plain" {
		t.Errorf("expected text/plain, got %q", it.MimeType)
	}
	if it.Icon != "text-plain" {
		t.Errorf("expected icon text-plain, got %q", it.Icon)
	}
	if it.Flags.Has(diritem.FlagExecutable) {
		t.Error("0644 file should not be executable")
	}
	if time.Since(it.Mtime) > time.Minute {
		t.Errorf("Mtime seems too old: %v", it.Mtime)
	}
}

func TestRestat_Unchanged(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "stable.bin")
	if err := os.WriteFile(testFile, []byte{1, 2, 3}, 0600); err != nil {
		t.Fatal(err)
	}

	l := NewLocal()
	// Sniffing reads the file and may move its atime
	l.SniffContent = false
	first := l.Restat(testFile, "stable.bin", diritem.DirInfo{})
	second := l.Restat(testFile, "stable.bin", diritem.DirInfo{})
	if !first.Equal(second) {
		t.Errorf("restat of an untouched file should be equal:\n%+v\n%+v", first, second)
	}
}

func TestRestat_Executable(t *testing.T) {
	tmpDir := t.TempDir()
	script := filepath.Join(tmpDir, "run")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho hi\n"), 0755); err != nil {
		t.Fatal(err)
	}

	it := NewLocal().Restat(script, "run", diritem.DirInfo{})
	if !it.Flags.Has(diritem.FlagExecutable) {
		t.Error("0755 file should be flagged executable")
	}
}

func TestRestat_Missing(t *testing.T) {
	tmpDir := t.TempDir()
	it := NewLocal().Restat(filepath.Join(tmpDir, "gone"), "gone", diritem.DirInfo{})

	if !it.NotFound() {
		t.Errorf("expected not-found item, got %+v", it)
	}
}

func TestRestat_Symlinks(t *testing.T) {
	tmpDir := t.TempDir()

	realDir := filepath.Join(tmpDir, "realdir")
	if err := os.Mkdir(realDir, 0755); err != nil {
		t.Fatal(err)
	}
	linkToDir := filepath.Join(tmpDir, "linkdir")
	if err := os.Symlink(realDir, linkToDir); err != nil {
		t.Skipf("cannot create symlinks: %v", err)
	}
	dangling := filepath.Join(tmpDir, "dangling")
	if err := os.Symlink(filepath.Join(tmpDir, "nowhere"), dangling); err != nil {
		t.Fatal(err)
	}

	l := NewLocal()

	it := l.Restat(linkToDir, "linkdir", diritem.DirInfo{})
	if it.Type != diritem.TypeDirectory {
		t.Errorf("symlink to directory should report the target type, got %v", it.Type)
	}
	if !it.Flags.Has(diritem.FlagSymlink) {
		t.Error("symlink should carry FlagSymlink")
	}
	if it.Flags.Has(diritem.FlagMountPoint) {
		t.Error("symlinked directory must not be flagged as a mount point")
	}

	it = l.Restat(dangling, "dangling", diritem.DirInfo{})
	if it.Type != diritem.TypeSymlink {
		t.Errorf("dangling symlink should be TypeSymlink, got %v", it.Type)
	}
	if it.NotFound() {
		t.Error("dangling symlink exists and must not be treated as removed")
	}
}

func TestMimeType(t *testing.T) {
	tmpDir := t.TempDir()

	noExt := filepath.Join(tmpDir, "README")
	if err := os.WriteFile(noExt, []byte("just some text\n"), 0644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		path     string
		sniff    bool
		expected string
	}{
		{filepath.Join(tmpDir, "index.HTML"), false, "text/html"},
		{filepath.Join(tmpDir, "photo.png"), false, "image/png"},
		{noExt, true, "text/plain"},
		{noExt, false, "application/octet-stream"},
	}

	for _, tc := range testCases {
		if got := MimeType(tc.path, tc.sniff); got != tc.expected {
			t.Errorf("MimeType(%q, %v): expected %q, got %q", tc.path, tc.sniff, tc.expected, got)
		}
	}
}

func BenchmarkReadNames(b *testing.B) {
	tmpDir := b.TempDir()

	for i := 0; i < 100; i++ {
		name := filepath.Join(tmpDir, "file"+string(rune('0'+i%10))+string(rune('0'+i/10%10))+".txt")
		os.WriteFile(name, []byte("content"), 0644)
	}

	l := NewLocal()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.ReadNames(tmpDir)
	}
}
