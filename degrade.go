package md2diagram

import (
	"regexp"
	"strings"
)

// Skeletons returned by Degrade. Each is the smallest diagram of its
// family that mermaid renders.
const (
	SkeletonState     = "stateDiagram\n    Start --> End"
	SkeletonSequence  = "sequenceDiagram\n    participant A\n    participant B\n    A->>B: Message"
	SkeletonFlowchart = "graph TD\n    A[Simplified] --> B[Diagram]"
)

// defaultDirection is used when the original direction cannot be recovered.
const defaultDirection = "TD"

var flowDirection = regexp.MustCompile(`\b(?:graph|flowchart)[ \t]+` + directionCodes + `\b`)

// FlowchartSkeleton returns the two-node flowchart skeleton for dir.
// Unknown directions fall back to top-down.
func FlowchartSkeleton(dir string) string {
	switch dir {
	case "TB", "TD", "BT", "RL", "LR":
	default:
		dir = defaultDirection
	}
	return "graph " + dir + "\n    A[Simplified] --> B[Diagram]"
}

// DetectFamily classifies source by its header keyword, falling back to
// markers anywhere in the text when the header is unrecognised.
func DetectFamily(source string) Family {
	if f, ok := familyOf(headerLine(source)); ok {
		return f
	}

	switch {
	case strings.Contains(source, "stateDiagram"):
		return FamilyState
	case strings.Contains(source, "graph ") || strings.Contains(source, "flowchart "):
		return FamilyFlowchart
	case strings.Contains(source, "sequenceDiagram"):
		return FamilySequence
	default:
		return FamilyOther
	}
}

func familyOf(header string) (Family, bool) {
	switch word := firstToken(header); {
	case strings.HasPrefix(word, "stateDiagram"):
		return FamilyState, true
	case strings.HasPrefix(word, "graph"), strings.HasPrefix(word, "flowchart"):
		return FamilyFlowchart, true
	case word == "sequenceDiagram":
		return FamilySequence, true
	default:
		return FamilyOther, false
	}
}

// headerLine returns the first line that is neither blank nor a comment.
func headerLine(source string) string {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "%%") {
			continue
		}
		return trimmed
	}
	return ""
}

// Degrade replaces source with the skeleton for family. All structure is
// dropped except a flowchart's direction.
func Degrade(source string, family Family) string {
	switch family {
	case FamilyState:
		return SkeletonState
	case FamilySequence:
		return SkeletonSequence
	case FamilyFlowchart:
		if m := flowDirection.FindStringSubmatch(source); m != nil {
			return FlowchartSkeleton(m[1])
		}
		return SkeletonFlowchart
	default:
		return SkeletonFlowchart
	}
}
