package md2diagram

import (
	"log/slog"
	"regexp"
	"strings"
)

// maxRepairPasses bounds how often the rule list is re-applied. Some rules
// expose defects that an earlier rule handles, so the list runs until the
// text stops changing.
const maxRepairPasses = 4

// RepairRule is a single named rewrite of mermaid source.
// Apply must be total and must return its input when the defect is absent.
type RepairRule struct {
	Name  string
	Apply func(string) string
}

// directionCodes matches the flowchart direction tokens mermaid accepts.
const directionCodes = `(TB|TD|BT|RL|LR)`

// Precompiled patterns for the repair rules.
var (
	stateInlineLabel    = regexp.MustCompile(`(\w+)[ \t]+--[ \t]+([^-\n]+?)[ \t]+-->[ \t]+(\w+)`)
	flowHeader          = regexp.MustCompile(`^([ \t]*)(graph|flowchart)\b(.*)$`)
	leadingDirection    = regexp.MustCompile(`^` + directionCodes + `\b`)
	graphKeywordSep     = regexp.MustCompile(`\b(graph|flowchart)_` + directionCodes + `\b`)
	stateDiagramVersion = regexp.MustCompile(`\bstateDiagram[_-]v2\b`)
	stateBlockSep       = regexp.MustCompile(`\bstate_([A-Za-z0-9]+)\s*\{`)
	reservedEndNode     = regexp.MustCompile(`\bend\s*\[`)
	classDefQuoted      = regexp.MustCompile(`\bclassDef[ \t]+(\w+)[ \t]+"([^"\n]+)"`)
	classNameSep        = regexp.MustCompile(`\bclass[ \t]+([A-Za-z0-9,][A-Za-z0-9, \t]*?)[ \t]+([A-Za-z0-9]+(?:_[A-Za-z0-9]+)+)\b`)
	classSubjectSep     = regexp.MustCompile(`\bclass_([A-Za-z0-9]+)[ \t]+(\w+)`)
	spacedLabel         = regexp.MustCompile(`\[([^"'\[\]\n]+\s+[^"'\[\]\n]+)\]`)
	hyphenatedIdent     = regexp.MustCompile(`\b[A-Za-z_]\w*(?:-[A-Za-z_]\w*)+\b`)
	subgraphSep         = regexp.MustCompile(`\bsubgraph_([A-Za-z0-9]+)`)
	inlineEnd           = regexp.MustCompile(`(\w)[ \t]+end(?:[ \t]+|$)`)
	styleSep            = regexp.MustCompile(`\bstyle_(\w+)`)
	classDefSep         = regexp.MustCompile(`\bclassDef_(\w+)`)
	styleAttrSep        = regexp.MustCompile(`\b(stroke|fill)_([\w#]+)`)
	gluedHeader         = regexp.MustCompile(`^([ \t]*)(graph|flowchart)` + directionCodes + `\b`)
)

// statementKeywords start lines whose tokens are not node identifiers.
var statementKeywords = map[string]bool{
	"style": true, "classDef": true, "class": true, "linkStyle": true,
	"click": true, "title": true, "note": true, "Note": true,
	"participant": true, "actor": true, "accTitle": true, "accDescr": true,
}

// reservedPrefixes are keywords that may legally carry a hyphenated suffix
// or are handled by their own rule.
var reservedPrefixes = map[string]bool{
	"state": true, "class": true, "classDef": true, "style": true,
	"subgraph": true, "graph": true, "flowchart": true, "stroke": true,
	"fill": true, "end": true, "direction": true, "click": true,
	"linkStyle": true, "stateDiagram": true,
}

// repairRules is the fixed rule order. Rules later in the list assume the
// earlier ones already ran: the stateDiagram version fix precedes the
// state-block fix because both look at underscores.
var repairRules = []RepairRule{
	{Name: "state-inline-label", Apply: fixStateInlineLabels},
	{Name: "flowchart-direction", Apply: fixMissingDirection},
	{Name: "graph-keyword-separator", Apply: replaceWith(graphKeywordSep, "$1 $2")},
	{Name: "state-diagram-version", Apply: replaceWith(stateDiagramVersion, "stateDiagram")},
	{Name: "state-block-separator", Apply: replaceWith(stateBlockSep, `state "$1" {`)},
	{Name: "reserved-end-node", Apply: replaceWith(reservedEndNode, "endNode [")},
	{Name: "triple-equals-link", Apply: func(s string) string { return strings.ReplaceAll(s, "===", "-->") }},
	{Name: "classdef-quoted-style", Apply: fixQuotedClassDef},
	{Name: "class-name-separator", Apply: fixClassNameSeparator},
	{Name: "class-subject-separator", Apply: replaceWith(classSubjectSep, "class $1 $2")},
	{Name: "quote-spaced-labels", Apply: replaceWith(spacedLabel, `["$1"]`)},
	{Name: "identifier-separator", Apply: fixHyphenatedIdentifiers},
	{Name: "subgraph-separator", Apply: replaceWith(subgraphSep, "subgraph $1")},
	{Name: "end-keyword-spacing", Apply: fixInlineEnd},
	{Name: "style-separator", Apply: replaceWith(styleSep, "style $1")},
	{Name: "classdef-separator", Apply: replaceWith(classDefSep, "classDef $1")},
	{Name: "style-attribute-separator", Apply: fixStyleAttributes},
	{Name: "graph-header-spacing", Apply: fixGluedHeader},
}

// RepairRules returns a copy of the ordered rule list.
func RepairRules() []RepairRule {
	rules := make([]RepairRule, len(repairRules))
	copy(rules, repairRules)
	return rules
}

// Repair fixes common mermaid syntax defects. It never fails, and source
// that is already well formed comes back unchanged.
func Repair(source string) string {
	fixed, _ := RepairTrace(source)
	return fixed
}

// RepairTrace is Repair that also reports which rules changed the text,
// in application order. A rule that fires on several passes is listed once.
func RepairTrace(source string) (string, []string) {
	var applied []string
	seen := make(map[string]bool)

	current := source
	for pass := 0; pass < maxRepairPasses; pass++ {
		next := current
		for _, rule := range repairRules {
			out := rule.Apply(next)
			if out != next && !seen[rule.Name] {
				seen[rule.Name] = true
				applied = append(applied, rule.Name)
			}
			next = out
		}
		if next == current {
			break
		}
		current = next
	}

	return current, applied
}

// RepairWithLog is Repair that logs each rule that changed the text.
func RepairWithLog(source string, logger *slog.Logger) string {
	fixed, applied := RepairTrace(source)
	if logger != nil && len(applied) > 0 {
		logger.Debug("repaired diagram source", "rules", applied)
	}
	return fixed
}

// replaceWith builds a rule from a pattern and a replacement template.
func replaceWith(re *regexp.Regexp, repl string) func(string) string {
	return func(s string) string {
		return re.ReplaceAllString(s, repl)
	}
}

// fixStateInlineLabels rewrites "A -- label --> B" to "A --> B : label"
// in state diagrams, which only accept trailing labels.
func fixStateInlineLabels(s string) string {
	if !strings.Contains(s, "stateDiagram") && !strings.HasPrefix(strings.TrimSpace(s), "state") {
		return s
	}
	return stateInlineLabel.ReplaceAllStringFunc(s, func(m string) string {
		sub := stateInlineLabel.FindStringSubmatch(m)
		return sub[1] + " --> " + sub[3] + " : " + strings.TrimSpace(sub[2])
	})
}

// fixMissingDirection inserts TD after a flowchart header with no direction.
func fixMissingDirection(s string) string {
	return rewriteHeader(s, func(line string) string {
		m := flowHeader.FindStringSubmatch(line)
		if m == nil {
			return line
		}
		rest := strings.TrimSpace(m[3])
		if leadingDirection.MatchString(rest) {
			return line
		}
		if rest == "" {
			return m[1] + m[2] + " TD"
		}
		return m[1] + m[2] + " TD " + rest
	})
}

// fixGluedHeader splits "graphLR" into "graph LR" on the header line.
func fixGluedHeader(s string) string {
	return rewriteHeader(s, func(line string) string {
		return gluedHeader.ReplaceAllString(line, "$1$2 $3")
	})
}

// fixQuotedClassDef unquotes classDef styles and drops the whitespace
// around their separators.
func fixQuotedClassDef(s string) string {
	return classDefQuoted.ReplaceAllStringFunc(s, func(m string) string {
		sub := classDefQuoted.FindStringSubmatch(m)
		return "classDef " + sub[1] + " " + normalizeStyleList(sub[2])
	})
}

// normalizeStyleList turns "fill: #f9f, stroke: #333" into "fill:#f9f,stroke:#333".
func normalizeStyleList(style string) string {
	parts := strings.Split(style, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if key, value, ok := strings.Cut(p, ":"); ok {
			p = strings.TrimSpace(key) + ":" + strings.TrimSpace(value)
		}
		out = append(out, p)
	}
	return strings.Join(out, ",")
}

// fixClassNameSeparator joins underscore-separated class names in class
// statements: "class A,B solid_line" becomes "class A,B solidline".
func fixClassNameSeparator(s string) string {
	return classNameSep.ReplaceAllStringFunc(s, func(m string) string {
		sub := classNameSep.FindStringSubmatch(m)
		return "class " + sub[1] + " " + strings.ReplaceAll(sub[2], "_", "")
	})
}

// fixHyphenatedIdentifiers replaces hyphens inside bare node identifiers
// with underscores. Labels, header and statement lines are left alone.
func fixHyphenatedIdentifiers(s string) string {
	return rewriteBody(s, func(line string) string {
		if statementKeywords[firstToken(line)] {
			return line
		}
		return mapStructural(line, func(chunk string) string {
			return hyphenatedIdent.ReplaceAllStringFunc(chunk, func(id string) string {
				head, _, _ := strings.Cut(id, "-")
				if reservedPrefixes[head] {
					return id
				}
				return strings.ReplaceAll(id, "-", "_")
			})
		})
	})
}

// fixInlineEnd moves an "end" keyword sharing a line with other tokens
// onto its own line.
func fixInlineEnd(s string) string {
	return rewriteBody(s, func(line string) string {
		if statementKeywords[firstToken(line)] {
			return line
		}
		return mapStructural(line, func(chunk string) string {
			return inlineEnd.ReplaceAllString(chunk, "$1\nend\n")
		})
	})
}

// fixStyleAttributes rewrites "fill_#fff" to "fill:#fff" in style and
// classDef statements.
func fixStyleAttributes(s string) string {
	return rewriteBody(s, func(line string) string {
		switch firstToken(line) {
		case "style", "classDef":
			return styleAttrSep.ReplaceAllString(line, "$1:$2")
		}
		return line
	})
}

// rewriteHeader applies fn to the first non-blank line only.
func rewriteHeader(s string, fn func(string) string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[i] = fn(line)
		break
	}
	return strings.Join(lines, "\n")
}

// rewriteBody applies fn to every line after the header, skipping comments.
func rewriteBody(s string, fn func(string) string) string {
	lines := strings.Split(s, "\n")
	headerSeen := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		if strings.HasPrefix(trimmed, "%%") {
			continue
		}
		lines[i] = fn(line)
	}
	return strings.Join(lines, "\n")
}

// firstToken returns the first whitespace-delimited word of a line.
func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// mapStructural applies fn to the parts of a line that are mermaid syntax,
// leaving labels intact. Labels are bracketed, quoted or piped spans and
// everything after a colon outside those spans.
func mapStructural(line string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(line))

	start := 0
	for i := 0; i < len(line); {
		c := line[i]
		if c == ':' {
			b.WriteString(fn(line[start:i]))
			b.WriteString(line[i:])
			return b.String()
		}

		closer, opens := labelClosers[c]
		if !opens {
			i++
			continue
		}

		b.WriteString(fn(line[start:i]))
		end := spanEnd(line, i, c, closer)
		b.WriteString(line[i:end])
		i = end
		start = end
	}

	b.WriteString(fn(line[start:]))
	return b.String()
}

// labelClosers maps label openers to their closing byte.
var labelClosers = map[byte]byte{
	'[': ']',
	'(': ')',
	'{': '}',
	'"': '"',
	'|': '|',
}

// spanEnd returns the index just past the span opened at line[i].
// Unclosed spans run to the end of the line.
func spanEnd(line string, i int, opener, closer byte) int {
	depth := 0
	for j := i; j < len(line); j++ {
		switch {
		case opener == closer && j > i && line[j] == closer:
			return j + 1
		case opener == closer:
		case line[j] == opener:
			depth++
		case line[j] == closer:
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(line)
}
