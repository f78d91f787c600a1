package fileutil_test

// Notes:
// - TestWriteTempFile_CreateTempError modifies TMPDIR and cannot run in
//   parallel with other tests.
// - The WriteString and Close error branches in WriteTempFile are not tested
//   because triggering disk write failures is platform-specific.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-md2diagram/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestValidateExtension - Extension validation
// ---------------------------------------------------------------------------

func TestValidateExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{name: "valid extension mmd", extension: "mmd"},
		{name: "valid extension html", extension: "html"},
		{name: "empty extension", extension: "", wantErr: fileutil.ErrExtensionEmpty},
		{name: "forward slash path traversal", extension: "../etc/passwd", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "backslash path traversal", extension: "..\\windows", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "null byte injection", extension: "html\x00exe", wantErr: fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := fileutil.ValidateExtension(tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateExtension(%q) = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWriteTempFile - Temporary file creation and cleanup
// ---------------------------------------------------------------------------

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	content := "graph TD\n    A --> B"
	path, cleanup, err := fileutil.WriteTempFile(content, "mmd")
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}

	if !strings.Contains(filepath.Base(path), "md2diagram-") {
		t.Errorf("path %q does not contain prefix 'md2diagram-'", path)
	}
	if !strings.HasSuffix(path, ".mmd") {
		t.Errorf("path %q does not have extension .mmd", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}
	if string(data) != content {
		t.Errorf("file content = %q, want %q", string(data), content)
	}

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still exists after cleanup at %s", path)
	}

	// A second cleanup of an already removed file is not an error.
	if err := cleanup(); err != nil {
		t.Errorf("second cleanup() error = %v, want nil", err)
	}
}

func TestWriteTempFile_InvalidExtension(t *testing.T) {
	t.Parallel()

	_, cleanup, err := fileutil.WriteTempFile("content", "")
	if cleanup != nil {
		t.Error("cleanup should be nil on error")
	}
	if !errors.Is(err, fileutil.ErrExtensionEmpty) {
		t.Errorf("WriteTempFile() error = %v, want %v", err, fileutil.ErrExtensionEmpty)
	}
}

// NOTE: This test modifies TMPDIR and cannot run in parallel.
func TestWriteTempFile_CreateTempError(t *testing.T) {
	t.Setenv("TMPDIR", "/nonexistent/path/that/does/not/exist")

	_, _, err := fileutil.WriteTempFile("content", "mmd")
	if err == nil {
		t.Fatal("WriteTempFile() expected error when TMPDIR is invalid, got nil")
	}
	if !strings.Contains(err.Error(), "creating temp file") {
		t.Errorf("WriteTempFile() error = %q, want error containing 'creating temp file'", err.Error())
	}
}

// ---------------------------------------------------------------------------
// TestFileExists - File existence check
// ---------------------------------------------------------------------------

func TestFileExists(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "test.md")
	if err := os.WriteFile(testFile, []byte("content"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "existing file returns true", path: testFile, want: true},
		{name: "directory returns false", path: tempDir, want: false},
		{name: "nonexistent path returns false", path: filepath.Join(tempDir, "missing"), want: false},
		{name: "empty path returns false", path: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.FileExists(tt.path); got != tt.want {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWithSuffix - Derived output names
// ---------------------------------------------------------------------------

func TestWithSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		suffix string
		want   string
	}{
		{name: "markdown with diagrams", path: "docs/guide.md", suffix: fileutil.SuffixWithDiagrams, want: "docs/guide-with-diagrams.md"},
		{name: "markdown with images", path: "guide.markdown", suffix: fileutil.SuffixWithImages, want: "guide-with-images.markdown"},
		{name: "no extension", path: "README", suffix: fileutil.SuffixWithImages, want: "README-with-images"},
		{name: "dotted base keeps last extension", path: "v1.2.notes.md", suffix: "-x", want: "v1.2.notes-x.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.WithSuffix(tt.path, tt.suffix); got != tt.want {
				t.Errorf("WithSuffix(%q, %q) = %q, want %q", tt.path, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestDefaultImageDir(t *testing.T) {
	t.Parallel()

	got := fileutil.DefaultImageDir(filepath.Join("docs", "guide-with-diagrams.md"))
	want := filepath.Join("docs", "guide-with-diagrams-images")
	if got != want {
		t.Errorf("DefaultImageDir() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestImageRef - Image reference paths
// ---------------------------------------------------------------------------

func TestImageRef(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	doc := filepath.Join(root, "docs", "guide.md")

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "sibling directory", target: filepath.Join(root, "docs", "guide-images", "a.png"), want: "guide-images/a.png"},
		{name: "parent directory", target: filepath.Join(root, "img", "a.png"), want: "../img/a.png"},
		{name: "same directory", target: filepath.Join(root, "docs", "a.png"), want: "a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.ImageRef(doc, tt.target); got != tt.want {
				t.Errorf("ImageRef() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCopyFile - Placeholder copy
// ---------------------------------------------------------------------------

func TestCopyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	if err := os.WriteFile(src, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\x89PNG" {
		t.Errorf("copied content = %q, want %q", data, "\x89PNG")
	}
}

func TestCopyFile_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := fileutil.CopyFile(filepath.Join(dir, "missing.png"), filepath.Join(dir, "dst.png"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("CopyFile() error = %v, want os.ErrNotExist", err)
	}
}
