package md2diagram

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// contextRadius is how much surrounding text goes with a description.
const contextRadius = 500

// maxNearMisses caps the samples reported by DiagnoseMissing.
const maxNearMisses = 3

var (
	// **Title Diagram:** description  or  **Title Diagram**: description
	descriptionPattern = regexp.MustCompile(`\*\*([^*\n]+Diagram)(?::\*\*|\*\*:)[ \t]*([^\r\n]+)`)

	// Same anchor without the description, used to name rendered images.
	titlePattern = regexp.MustCompile(`\*\*([^*\n]+Diagram)(?::\*\*|\*\*:)`)

	// Emphasised text mentioning Diagram without the colon anchor.
	nearMissPattern = regexp.MustCompile(`\*\*[^*]{0,30}Diagram[^*]{0,30}\*\*`)
)

// ExtractDescriptions returns the diagram descriptions in doc, first to last.
// A document without descriptions yields an empty slice.
func ExtractDescriptions(doc string) []DescriptionRecord {
	matches := descriptionPattern.FindAllStringSubmatchIndex(doc, -1)
	records := make([]DescriptionRecord, 0, len(matches))

	for _, m := range matches {
		start, end := m[0], m[1]
		records = append(records, DescriptionRecord{
			Title:       strings.TrimSpace(doc[m[2]:m[3]]),
			Description: strings.TrimSpace(doc[m[4]:m[5]]),
			Context:     contextWindow(doc, start, end),
			MatchedText: doc[start:end],
			Offset:      start,
		})
	}

	return records
}

// contextWindow returns doc[start-radius:end+radius], clamped to the
// document and shrunk to rune boundaries.
func contextWindow(doc string, start, end int) string {
	lo := max(0, start-contextRadius)
	hi := min(len(doc), end+contextRadius)

	for lo < start && !utf8.RuneStart(doc[lo]) {
		lo++
	}
	for hi > end && hi < len(doc) && !utf8.RuneStart(doc[hi]) {
		hi--
	}

	return doc[lo:hi]
}

// TitleMark is a diagram title and where it appears.
type TitleMark struct {
	Title  string
	Offset int
}

// ScanTitles returns every diagram title in doc, sorted by offset.
func ScanTitles(doc string) []TitleMark {
	matches := titlePattern.FindAllStringSubmatchIndex(doc, -1)
	titles := make([]TitleMark, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, TitleMark{
			Title:  strings.TrimSpace(doc[m[2]:m[3]]),
			Offset: m[0],
		})
	}
	return titles
}

// nearestTitleBefore returns the title with the greatest offset strictly
// below pos. titles must be sorted by offset.
func nearestTitleBefore(titles []TitleMark, pos int) (TitleMark, bool) {
	i := sort.Search(len(titles), func(i int) bool {
		return titles[i].Offset >= pos
	})
	if i == 0 {
		return TitleMark{}, false
	}
	return titles[i-1], true
}

// Diagnosis explains why a document produced no descriptions.
type Diagnosis struct {
	WordCount  int      // Occurrences of the word "Diagram"
	NearMisses []string // Emphasised spans mentioning Diagram, at most three
}

// DiagnoseMissing looks for almost-matching description markers.
func DiagnoseMissing(doc string) Diagnosis {
	d := Diagnosis{WordCount: strings.Count(doc, "Diagram")}
	if d.WordCount == 0 {
		return d
	}
	d.NearMisses = nearMissPattern.FindAllString(doc, maxNearMisses)
	return d
}
