package assets

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAssetResolver(t *testing.T) {
	t.Parallel()

	r, err := NewAssetResolver("")
	if err != nil {
		t.Fatalf("NewAssetResolver(\"\") error = %v", err)
	}
	if r.HasCustomLoader() {
		t.Error("empty path should not configure a custom loader")
	}

	r, err = NewAssetResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewAssetResolver(dir) error = %v", err)
	}
	if !r.HasCustomLoader() {
		t.Error("valid path should configure a custom loader")
	}

	if _, err := NewAssetResolver(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrInvalidBasePath) {
		t.Errorf("NewAssetResolver(missing) error = %v, want ErrInvalidBasePath", err)
	}
}

func TestAssetResolver_CustomFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeAsset(t, dir, "styles", "default.css", "body{color:red}")

	r, err := NewAssetResolver(dir)
	if err != nil {
		t.Fatalf("NewAssetResolver() error = %v", err)
	}

	tests := []struct {
		name         string
		load         func() (string, error)
		wantContains string
		wantErr      error
	}{
		{name: "custom overrides embedded", load: func() (string, error) { return r.LoadStyle("default") }, wantContains: "color:red"},
		{name: "falls back to embedded style", load: func() (string, error) { return r.LoadStyle("technical") }, wantContains: "monospace"},
		{name: "falls back to embedded template", load: func() (string, error) { return r.LoadTemplate(CardTemplateName) }, wantContains: "Could not render diagram"},
		{name: "missing everywhere", load: func() (string, error) { return r.LoadStyle("neon") }, wantErr: ErrStyleNotFound},
		{name: "invalid name is not masked", load: func() (string, error) { return r.LoadStyle("a/b") }, wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.load()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.wantContains) {
				t.Errorf("got %q, want it to contain %q", got, tt.wantContains)
			}
		})
	}
}
