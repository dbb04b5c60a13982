package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSingleHTMLBlock(t *testing.T) {
	text := "Here is your page:\n```html\n<h1>Hi</h1>\n```\nEnjoy!"
	files := Extract(text)
	assert.Equal(t, "<h1>Hi</h1>", files.HTML)
	assert.Empty(t, files.TSX)
}

func TestExtractJoinsRepeatedBlocks(t *testing.T) {
	text := "```css\nbody { margin: 0; }\n```\nand\n```css\nh1 { color: red; }\n```"
	files := Extract(text)
	assert.Equal(t, "body { margin: 0; }\nh1 { color: red; }", files.CSS)
}

func TestExtractIsCaseInsensitive(t *testing.T) {
	text := "```HTML\n<p>upper fence</p>\n```"
	files := Extract(text)
	assert.Equal(t, "<p>upper fence</p>", files.HTML)
}

func TestExtractJavascriptAlias(t *testing.T) {
	text := "```javascript\nconsole.log(1)\n```"
	files := Extract(text)
	assert.Equal(t, "console.log(1)", files.JS)
}

func TestExtractMultipleLanguages(t *testing.T) {
	text := "```tsx\nexport default function App() {}\n```\n```css\n.app {}\n```"
	files := Extract(text)
	assert.Equal(t, "export default function App() {}", files.TSX)
	assert.Equal(t, ".app {}", files.CSS)
	assert.Empty(t, files.HTML, "no fallback when a renderable block exists")
}

func TestExtractFallsBackToWholeTextAsHTML(t *testing.T) {
	text := "  <div>no fences here</div>  "
	files := Extract(text)
	assert.Equal(t, "<div>no fences here</div>", files.HTML)
}

func TestExtractFallsBackEvenWhenOnlyCSSFound(t *testing.T) {
	// A response with only a css block has nothing renderable, so the
	// whole text still becomes the HTML document.
	text := "```css\nbody {}\n```"
	files := Extract(text)
	assert.Equal(t, "body {}", files.CSS)
	assert.Equal(t, text, files.HTML)
}

func TestPrimaryPriority(t *testing.T) {
	tests := []struct {
		name     string
		files    Files
		wantType string
		wantBody string
	}{
		{"tsx wins", Files{TSX: "t", JSX: "j", HTML: "h", JS: "s"}, "tsx", "t"},
		{"jsx over html", Files{JSX: "j", HTML: "h"}, "jsx", "j"},
		{"html over js", Files{HTML: "h", JS: "s"}, "html", "h"},
		{"js last", Files{JS: "s"}, "js", "s"},
		{"empty defaults to html", Files{}, "html", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, fileType := tt.files.Primary()
			assert.Equal(t, tt.wantType, fileType)
			assert.Equal(t, tt.wantBody, content)
		})
	}
}

func TestIsReact(t *testing.T) {
	assert.True(t, Files{TSX: "x"}.IsReact())
	assert.True(t, Files{JSX: "x"}.IsReact())
	assert.False(t, Files{HTML: "x"}.IsReact())
}

func TestDetectFilename(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  string
		want    string
	}{
		{"react import", "import React from 'react'", "auto", "App.tsx"},
		{"default export", "export default App", "", "App.tsx"},
		{"html document", "<!DOCTYPE html><html></html>", "auto", "index.html"},
		{"html fragment", "<HTML><body/></HTML>", "auto", "index.html"},
		{"plain script", "function greet() {}", "auto", "script.js"},
		{"const script", "const x = 1", "auto", "script.js"},
		{"unknown", "plain text", "auto", "generated_code.txt"},
		{"explicit format", "whatever", "css", "generated_code.css"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFilename(tt.content, tt.format))
		})
	}
}
