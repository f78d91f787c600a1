package md2diagram

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	paragraphBreak = "\n\n"
	mermaidFence   = "```mermaid\n"
	closingFence   = "```"
	bodyIndent     = "    "
)

// SpliceResult reports what happened to one record or substitution.
type SpliceResult struct {
	Label    string // Title or block label, for logs
	Inserted bool
	Err      error // ErrAnchorNotFound, or nil when skipped for lack of content
}

// Substitution replaces the first occurrence of Anchor with Replacement.
type Substitution struct {
	Label       string
	Anchor      string
	Replacement string
}

// InsertAfterParagraphs inserts each record's diagram block after the
// paragraph containing its description. Records are applied from the highest
// offset down, so an insertion never moves a pending record's anchor.
// Results are returned in the order of the input records.
func InsertAfterParagraphs(doc string, records []DescriptionRecord) (string, []SpliceResult) {
	results := make([]SpliceResult, len(records))
	order := make([]int, len(records))
	for i := range records {
		order[i] = i
		results[i].Label = records[i].Title
	}
	sort.SliceStable(order, func(a, b int) bool {
		return records[order[a]].Offset > records[order[b]].Offset
	})

	for _, i := range order {
		rec := records[i]
		if rec.Source == "" {
			continue
		}

		at := insertionPoint(doc, rec.Offset+len(rec.MatchedText))
		doc = doc[:at] + diagramBlockText(rec.Source, rec.Explanation) + doc[at:]
		results[i].Inserted = true
	}

	return doc, results
}

// insertionPoint returns the offset of the first paragraph break at or
// after from, or the end of the document.
func insertionPoint(doc string, from int) int {
	from = min(max(from, 0), len(doc))
	if i := strings.Index(doc[from:], paragraphBreak); i >= 0 {
		return from + i
	}
	return len(doc)
}

// diagramBlockText is the text inserted for one generated diagram.
func diagramBlockText(source, explanation string) string {
	var b strings.Builder
	b.WriteString(paragraphBreak)
	b.WriteString(mermaidFence)
	b.WriteString(source)
	b.WriteString("\n")
	b.WriteString(closingFence)
	if explanation = strings.TrimSpace(explanation); explanation != "" {
		b.WriteString(paragraphBreak)
		b.WriteString(explanation)
	}
	return b.String()
}

// SubstituteAnchors applies subs in order. Each anchor is searched in the
// document as it stands after the previous substitutions, and only its first
// occurrence is replaced. Missing anchors are reported and skipped.
func SubstituteAnchors(doc string, subs []Substitution) (string, []SpliceResult) {
	results := make([]SpliceResult, len(subs))
	for i, sub := range subs {
		results[i].Label = sub.Label
		if sub.Anchor == "" {
			results[i].Err = fmt.Errorf("%w: empty anchor for %q", ErrAnchorNotFound, sub.Label)
			continue
		}
		at := strings.Index(doc, sub.Anchor)
		if at < 0 {
			results[i].Err = fmt.Errorf("%w: %q", ErrAnchorNotFound, sub.Label)
			continue
		}
		doc = doc[:at] + sub.Replacement + doc[at+len(sub.Anchor):]
		results[i].Inserted = true
	}
	return doc, results
}

// glued header: "graph TD A-->B" on a single line.
var headerWithBody = regexp.MustCompile(`^((?:graph|flowchart)[ \t]+` + directionCodes + `|stateDiagram(?:-v2)?|sequenceDiagram)[ \t]+(\S.*)$`)

// FormatSource tidies generated diagram source: unix line endings, trimmed
// surrounding blank lines, the header on its own line and body lines
// indented by four spaces. Lines that already carry indentation keep it.
func FormatSource(source string) string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")
	source = strings.Trim(source, "\n")
	if strings.TrimSpace(source) == "" {
		return ""
	}

	lines := strings.Split(source, "\n")
	header := strings.TrimSpace(lines[0])
	body := lines[1:]

	if m := headerWithBody.FindStringSubmatch(header); m != nil {
		header = m[1]
		body = append([]string{m[len(m)-1]}, body...)
	}

	out := make([]string, 0, len(body)+1)
	out = append(out, header)
	for _, line := range body {
		line = strings.TrimRight(line, " \t")
		switch {
		case line == "":
			out = append(out, "")
		case line[0] == ' ' || line[0] == '\t':
			out = append(out, line)
		default:
			out = append(out, bodyIndent+line)
		}
	}

	return strings.Join(out, "\n")
}
