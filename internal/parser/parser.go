// Package parser extracts fenced code blocks from markdown-formatted
// model output and classifies them for preview and download.
package parser

import (
	"regexp"
	"strings"
)

// Files holds the code extracted from a single model response, one slot
// per recognized language.
type Files struct {
	HTML string `json:"html,omitempty"`
	JSX  string `json:"jsx,omitempty"`
	TSX  string `json:"tsx,omitempty"`
	CSS  string `json:"css,omitempty"`
	JS   string `json:"js,omitempty"`
}

var fencePatterns = map[string]*regexp.Regexp{
	"html": regexp.MustCompile("(?is)```html\\n(.+?)\\n```"),
	"jsx":  regexp.MustCompile("(?is)```jsx\\n(.+?)\\n```"),
	"tsx":  regexp.MustCompile("(?is)```tsx\\n(.+?)\\n```"),
	"css":  regexp.MustCompile("(?is)```css\\n(.+?)\\n```"),
	"js":   regexp.MustCompile("(?is)```(?:javascript|js)\\n(.+?)\\n```"),
}

// Extract pulls fenced blocks out of text. Multiple blocks of the same
// language are joined with a newline. When the response contains no
// html/jsx/tsx block at all the whole text is treated as HTML, so bare
// (unfenced) model output still renders.
func Extract(text string) Files {
	var files Files
	for lang, pattern := range fencePatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		parts := make([]string, 0, len(matches))
		for _, m := range matches {
			parts = append(parts, m[1])
		}
		content := strings.TrimSpace(strings.Join(parts, "\n"))
		switch lang {
		case "html":
			files.HTML = content
		case "jsx":
			files.JSX = content
		case "tsx":
			files.TSX = content
		case "css":
			files.CSS = content
		case "js":
			files.JS = content
		}
	}

	if files.HTML == "" && files.JSX == "" && files.TSX == "" {
		files.HTML = strings.TrimSpace(text)
	}
	return files
}

// Primary returns the file to preview and its type. React output wins
// over plain HTML, HTML over bare JS.
func (f Files) Primary() (content, fileType string) {
	switch {
	case f.TSX != "":
		return f.TSX, "tsx"
	case f.JSX != "":
		return f.JSX, "jsx"
	case f.HTML != "":
		return f.HTML, "html"
	case f.JS != "":
		return f.JS, "js"
	default:
		return "", "html"
	}
}

// IsReact reports whether the primary file is a React component.
func (f Files) IsReact() bool {
	_, fileType := f.Primary()
	return fileType == "tsx" || fileType == "jsx"
}

// DetectFilename picks a download filename from content heuristics.
// format overrides the detected extension when non-empty and not "auto".
func DetectFilename(content, format string) string {
	if format != "" && format != "auto" {
		return "generated_code." + format
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(content, "import React") || strings.Contains(content, "export default"):
		return "App.tsx"
	case strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype"):
		return "index.html"
	case strings.Contains(content, "function") || strings.Contains(content, "const "):
		return "script.js"
	default:
		return "generated_code.txt"
	}
}
