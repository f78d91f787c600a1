// Package pipeline builds the HTML documents used around diagram rendering:
//   - the single-diagram page a headless browser loads to render mermaid
//   - the error card screenshotted when rendering fails
//   - the HTML preview of a converted Markdown document (goldmark + chroma)
//
// Templates and stylesheets come from internal/assets. Browser automation
// itself lives in the root md2diagram package.
package pipeline
