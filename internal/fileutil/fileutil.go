// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// Output name suffixes for the two pipeline stages.
const (
	SuffixWithDiagrams = "-with-diagrams"
	SuffixWithImages   = "-with-images"
	imageDirSuffix     = "-images"
)

// WriteTempFile creates a temporary file with the given content and extension.
// Returns the file path and a cleanup function that removes the file.
// The cleanup error is for logging; callers should not fail on it.
func WriteTempFile(content, extension string) (path string, cleanup func() error, err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp("", "md2diagram-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing temp file: %w", err)
		}
		return nil
	}

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		_ = cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		_ = cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// WithSuffix inserts suffix between the base name and the extension:
// docs/guide.md with "-with-images" gives docs/guide-with-images.md.
func WithSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// DefaultImageDir returns <dir>/<base>-images for a markdown path.
func DefaultImageDir(markdownPath string) string {
	base := strings.TrimSuffix(filepath.Base(markdownPath), filepath.Ext(markdownPath))
	return filepath.Join(filepath.Dir(markdownPath), base+imageDirSuffix)
}

// ImageRef returns the path to use for target inside a document written to
// markdownPath: relative to the document's directory when possible,
// otherwise target itself. Separators are always forward slashes.
func ImageRef(markdownPath, target string) string {
	ref := target
	absDoc, errDoc := filepath.Abs(filepath.Dir(markdownPath))
	absTarget, errTarget := filepath.Abs(target)
	if errDoc == nil && errTarget == nil {
		if rel, err := filepath.Rel(absDoc, absTarget); err == nil {
			ref = rel
		}
	}
	return filepath.ToSlash(ref)
}

// CopyFile copies src to dst, creating or truncating dst.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 -- path comes from configuration
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 -- output path built by the pipeline
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, closeErr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}
