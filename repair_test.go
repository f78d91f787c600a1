package md2diagram

// Notes:
// - Each case names the rules expected to fire so a rule that silently
//   stops matching (or starts matching too much) shows up by name.

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// TestRepairRules - Rule order
// ---------------------------------------------------------------------------

func TestRepairRules_Order(t *testing.T) {
	t.Parallel()

	want := []string{
		"state-inline-label",
		"flowchart-direction",
		"graph-keyword-separator",
		"state-diagram-version",
		"state-block-separator",
		"reserved-end-node",
		"triple-equals-link",
		"classdef-quoted-style",
		"class-name-separator",
		"class-subject-separator",
		"quote-spaced-labels",
		"identifier-separator",
		"subgraph-separator",
		"end-keyword-spacing",
		"style-separator",
		"classdef-separator",
		"style-attribute-separator",
		"graph-header-spacing",
	}

	rules := RepairRules()
	got := make([]string, len(rules))
	for i, r := range rules {
		got[i] = r.Name
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairRules() order mismatch (-want +got):\n%s", diff)
	}

	// The returned slice is a copy.
	rules[0].Name = "changed"
	if RepairRules()[0].Name != want[0] {
		t.Error("RepairRules() should return a copy")
	}
}

// ---------------------------------------------------------------------------
// TestRepairTrace - Individual defects
// ---------------------------------------------------------------------------

func TestRepairTrace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		want      string
		wantRules []string
	}{
		{
			name:      "state diagram version and state block",
			input:     "stateDiagram_v2\nstate_Requirements {\n}",
			want:      "stateDiagram\nstate \"Requirements\" {\n}",
			wantRules: []string{"state-diagram-version", "state-block-separator"},
		},
		{
			name:      "hyphenated state diagram version",
			input:     "stateDiagram-v2\n    [*] --> Idle",
			want:      "stateDiagram\n    [*] --> Idle",
			wantRules: []string{"state-diagram-version"},
		},
		{
			name:      "triple equals link",
			input:     "graph LR\nA===B",
			want:      "graph LR\nA-->B",
			wantRules: []string{"triple-equals-link"},
		},
		{
			name:      "state inline label",
			input:     "stateDiagram\n    Idle -- start --> Running",
			want:      "stateDiagram\n    Idle --> Running : start",
			wantRules: []string{"state-inline-label"},
		},
		{
			name:      "missing direction",
			input:     "graph\n    A --> B",
			want:      "graph TD\n    A --> B",
			wantRules: []string{"flowchart-direction"},
		},
		{
			name:      "missing direction with inline body",
			input:     "flowchart A --> B",
			want:      "flowchart TD A --> B",
			wantRules: []string{"flowchart-direction"},
		},
		{
			name:      "graph keyword separator",
			input:     "graph_LR\n    A --> B",
			want:      "graph LR\n    A --> B",
			wantRules: []string{"graph-keyword-separator"},
		},
		{
			name:      "glued header",
			input:     "graphLR\n    A --> B",
			want:      "graph LR\n    A --> B",
			wantRules: []string{"graph-header-spacing"},
		},
		{
			name:      "reserved end node",
			input:     "graph TD\n    A --> end[Finish]",
			want:      "graph TD\n    A --> endNode [Finish]",
			wantRules: []string{"reserved-end-node"},
		},
		{
			name:      "quoted classDef style",
			input:     "graph TD\n    classDef green \"fill: #9f6, stroke: #333\"",
			want:      "graph TD\n    classDef green fill:#9f6,stroke:#333",
			wantRules: []string{"classdef-quoted-style"},
		},
		{
			name:      "class name separator",
			input:     "graph TD\n    class A,B solid_line",
			want:      "graph TD\n    class A,B solidline",
			wantRules: []string{"class-name-separator"},
		},
		{
			name:      "class subject separator",
			input:     "graph TD\n    class_id1 highlight",
			want:      "graph TD\n    class id1 highlight",
			wantRules: []string{"class-subject-separator"},
		},
		{
			name:      "spaced label quoted",
			input:     "graph TD\n    A[Log in] --> B",
			want:      "graph TD\n    A[\"Log in\"] --> B",
			wantRules: []string{"quote-spaced-labels"},
		},
		{
			name:      "hyphenated identifiers",
			input:     "graph TD\n    user-db --> api-gw",
			want:      "graph TD\n    user_db --> api_gw",
			wantRules: []string{"identifier-separator"},
		},
		{
			name:      "subgraph separator",
			input:     "graph TD\n    subgraph_Backend\n    A --> B\n    end",
			want:      "graph TD\n    subgraph Backend\n    A --> B\n    end",
			wantRules: []string{"subgraph-separator"},
		},
		{
			name:      "inline end keyword",
			input:     "graph TD\n    subgraph X\n    A --> B end",
			want:      "graph TD\n    subgraph X\n    A --> B\nend\n",
			wantRules: []string{"end-keyword-spacing"},
		},
		{
			name:      "style separator and attribute",
			input:     "graph TD\n    style_A fill_#f9f",
			want:      "graph TD\n    style A fill:#f9f",
			wantRules: []string{"style-separator", "style-attribute-separator"},
		},
		{
			name:      "classDef separator and attribute",
			input:     "graph TD\n    classDef_red fill_#f00",
			want:      "graph TD\n    classDef red fill:#f00",
			wantRules: []string{"classdef-separator", "style-attribute-separator"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, rules := RepairTrace(tt.input)
			if got != tt.want {
				t.Errorf("RepairTrace() source = %q, want %q", got, tt.want)
			}
			if diff := cmp.Diff(tt.wantRules, rules); diff != "" {
				t.Errorf("RepairTrace() rules mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRepair - Properties
// ---------------------------------------------------------------------------

func TestRepair_CanonicalInputUnchanged(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"graph TD\n    A[Start] --> B{Is it?}\n    B -->|Yes| C[OK]",
		"graph LR\n    A[my-label] --> B",
		"sequenceDiagram\n    participant A\n    participant B\n    A->>B: Message",
		"stateDiagram\n    [*] --> Idle\n    Idle --> Running : start\n    Running --> [*]",
		SkeletonState,
		SkeletonSequence,
		SkeletonFlowchart,
		ErrorDiagramSource,
	}

	for _, in := range inputs {
		got, rules := RepairTrace(in)
		if got != in {
			t.Errorf("Repair(%q) = %q, want unchanged", in, got)
		}
		if len(rules) != 0 {
			t.Errorf("Repair(%q) applied %v, want none", in, rules)
		}
	}
}

func TestRepair_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"stateDiagram_v2\nstate_Requirements {\n}",
		"graph\nA===B",
		"graphTD\n    user-db --> end[Done]\n    A[two words] --> B",
		"graph TD\n    subgraph_X\n    a-b --> c end\n    style_a fill_#fff",
		"flowchart_LR\n    classDef k \"fill:#fff , stroke : #000\"\n    class a,b my_class",
		"stateDiagram-v2\n    A -- go --> B\n    state_S {\n    }",
		"",
		"   \n",
	}

	for _, in := range inputs {
		once := Repair(in)
		twice := Repair(once)
		if once != twice {
			t.Errorf("Repair not idempotent for %q:\nonce:  %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestRepair_Total(t *testing.T) {
	t.Parallel()

	// Malformed input must never panic.
	inputs := []string{"[", "((", "\"", "|", "graph TD\n    A[unclosed --> B", "%%\n%%", strings.Repeat("-", 50)}
	for _, in := range inputs {
		_ = Repair(in)
	}
}

func TestRepairWithLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	got := RepairWithLog("graph LR\nA===B", logger)
	if got != "graph LR\nA-->B" {
		t.Errorf("RepairWithLog() = %q", got)
	}
	if !strings.Contains(buf.String(), "triple-equals-link") {
		t.Errorf("log should name the applied rule, got %q", buf.String())
	}

	if got := RepairWithLog("graph LR\nA-->B", nil); got != "graph LR\nA-->B" {
		t.Errorf("RepairWithLog() with nil logger = %q", got)
	}
}
