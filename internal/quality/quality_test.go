package quality

import (
	"testing"

	"github.com/sejin-p/webforge/internal/parser"
	"github.com/stretchr/testify/assert"
)

func TestCheckReactFindings(t *testing.T) {
	files := parser.Files{TSX: `function App() {
  const [count, setCount] = useState(0)
  return <div class="app">{count}</div>
}`}
	issues := Check(files)

	var msgs []string
	for _, i := range issues {
		assert.Equal(t, "tsx", i.File)
		msgs = append(msgs, i.Message)
	}
	assert.Contains(t, msgs, "consider importing React hooks explicitly")
	assert.Contains(t, msgs, "component should have a default export")
	assert.Contains(t, msgs, "use className instead of class in React")
}

func TestCheckCleanReactComponent(t *testing.T) {
	files := parser.Files{TSX: `import React, { useState } from 'react'

export default function App() {
  const [count] = useState(0)
  return <div className="app">{count}</div>
}`}
	assert.Empty(t, Check(files))
}

func TestCheckHTMLFindings(t *testing.T) {
	files := parser.Files{HTML: `<html><head></head><body></body></html>`}
	issues := Check(files)

	var msgs []string
	for _, i := range issues {
		assert.Equal(t, "html", i.File)
		msgs = append(msgs, i.Message)
	}
	assert.Contains(t, msgs, "missing DOCTYPE declaration")
	assert.Contains(t, msgs, "missing title tag")
	assert.Contains(t, msgs, "missing lang attribute in html tag")
}

func TestCheckCleanHTMLDocument(t *testing.T) {
	files := parser.Files{HTML: `<!DOCTYPE html>
<html lang="en"><head><title>ok</title></head><body></body></html>`}
	assert.Empty(t, Check(files))
}

func TestCheckSkipsEmptyFiles(t *testing.T) {
	assert.Empty(t, Check(parser.Files{CSS: "body {}"}))
}
