package md2diagram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// Fenced mermaid block; the body is everything up to the next fence.
	blockPattern = regexp.MustCompile("(?s)```mermaid[ \t]*\r?\n(.*?)```")

	slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// ScanDiagramBlocks returns the fenced mermaid blocks of doc in document
// order. Each block is named after the nearest diagram title before it, the
// run stamp and its 1-based index, so names never collide within a run or
// across runs.
func ScanDiagramBlocks(doc string, stamp string) []DiagramBlock {
	titles := ScanTitles(doc)
	matches := blockPattern.FindAllStringSubmatchIndex(doc, -1)
	blocks := make([]DiagramBlock, 0, len(matches))

	for i, m := range matches {
		b := DiagramBlock{
			Source:    strings.ReplaceAll(doc[m[2]:m[3]], "\r\n", "\n"),
			FullMatch: doc[m[0]:m[1]],
			Position:  m[0],
			Index:     i + 1,
		}
		if t, ok := nearestTitleBefore(titles, b.Position); ok {
			b.Title = t.Title
			b.HasTitle = true
		}
		b.Filename = imageBaseName(b, stamp)
		blocks = append(blocks, b)
	}

	return blocks
}

// Slug lowercases s and replaces every character outside [a-zA-Z0-9] with
// a hyphen.
func Slug(s string) string {
	return strings.ToLower(slugUnsafe.ReplaceAllString(s, "-"))
}

// RunStamp formats the run timestamp embedded in image names.
func RunStamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func imageBaseName(b DiagramBlock, stamp string) string {
	name := fmt.Sprintf("diagram-%d", b.Index)
	if b.HasTitle {
		if slug := Slug(b.Title); slug != "" {
			name = slug
		}
	}
	return fmt.Sprintf("%s-%s-%d", name, stamp, b.Index)
}

// ImageReference formats the markdown line that replaces a block.
func ImageReference(alt, path string) string {
	return "![" + alt + "](" + path + ")"
}
