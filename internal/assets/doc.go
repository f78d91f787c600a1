// Package assets provides the stylesheets and HTML templates used around
// diagram rendering: the page a headless browser loads to draw one diagram,
// the error card screenshotted when that fails, and the HTML preview styles.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in assets)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css      # Preview styles (e.g., github.css)
//	└── templates/
//	    └── {name}.html     # render.html, card.html
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
