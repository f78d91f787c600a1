package assets

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// TestValidateAssetName - Name safety
// ---------------------------------------------------------------------------

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple name", input: "technical"},
		{name: "hyphen and underscore", input: "my-style_2"},
		{name: "empty", input: "", wantErr: ErrInvalidAssetName},
		{name: "blank", input: "  ", wantErr: ErrInvalidAssetName},
		{name: "forward slash", input: "a/b", wantErr: ErrInvalidAssetName},
		{name: "backslash", input: `a\b`, wantErr: ErrInvalidAssetName},
		{name: "traversal", input: "..", wantErr: ErrInvalidAssetName},
		{name: "extension", input: "default.css", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateAssetName(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateAssetName(%q) unexpected error: %v", tt.input, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAssetName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestEmbeddedLoader - Built-in assets
// ---------------------------------------------------------------------------

func TestEmbeddedLoader_LoadTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		template     string
		wantContains string
	}{
		{name: "render page", template: RenderTemplateName, wantContains: `<pre class="mermaid">{{.Source}}</pre>`},
		{name: "error card", template: CardTemplateName, wantContains: `<div class="card">`},
	}

	loader := NewEmbeddedLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := loader.LoadTemplate(tt.template)
			if err != nil {
				t.Fatalf("LoadTemplate(%q) error = %v", tt.template, err)
			}
			if !strings.Contains(got, tt.wantContains) {
				t.Errorf("LoadTemplate(%q) missing %q", tt.template, tt.wantContains)
			}
		})
	}

	if _, err := loader.LoadTemplate("cover"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("LoadTemplate(cover) error = %v, want ErrTemplateNotFound", err)
	}
}

func TestEmbeddedLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	loader := NewEmbeddedLoader()
	for _, name := range StyleNames() {
		got, err := loader.LoadStyle(name)
		if err != nil {
			t.Errorf("LoadStyle(%q) error = %v", name, err)
			continue
		}
		if !strings.Contains(got, ".mermaid") {
			t.Errorf("LoadStyle(%q) should style mermaid blocks", name)
		}
	}

	_, err := loader.LoadStyle("neon")
	if !errors.Is(err, ErrStyleNotFound) {
		t.Fatalf("LoadStyle(neon) error = %v, want ErrStyleNotFound", err)
	}
	if !strings.Contains(err.Error(), "technical") {
		t.Errorf("error %q should list the available styles", err)
	}

	if _, err := loader.LoadStyle("../templates/card"); !errors.Is(err, ErrInvalidAssetName) {
		t.Errorf("LoadStyle(traversal) error = %v, want ErrInvalidAssetName", err)
	}
}

func TestStyleNames(t *testing.T) {
	t.Parallel()

	want := []string{"default", "minimal", "technical"}
	if diff := cmp.Diff(want, StyleNames()); diff != "" {
		t.Errorf("StyleNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestMustLoadTemplate(t *testing.T) {
	t.Parallel()

	if got := MustLoadTemplate(CardTemplateName); got == "" {
		t.Error("MustLoadTemplate(card) returned empty content")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustLoadTemplate(missing) should panic")
		}
	}()
	MustLoadTemplate("missing")
}
