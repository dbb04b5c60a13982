// Package quality runs advisory checks over generated code. Issues are
// reported alongside the generation but never block it.
package quality

import (
	"strings"

	"github.com/sejin-p/webforge/internal/parser"
)

// Issue describes one advisory finding in a generated file.
type Issue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Check inspects the extracted files and returns any findings.
func Check(files parser.Files) []Issue {
	var issues []Issue
	for _, f := range []struct {
		name, content string
		react         bool
	}{
		{"tsx", files.TSX, true},
		{"jsx", files.JSX, true},
		{"html", files.HTML, false},
	} {
		if f.content == "" {
			continue
		}
		var msgs []string
		if f.react {
			msgs = checkReact(f.content)
		} else {
			msgs = checkHTML(f.content)
		}
		for _, m := range msgs {
			issues = append(issues, Issue{File: f.name, Message: m})
		}
	}
	return issues
}

func checkReact(code string) []string {
	var issues []string
	if strings.Contains(code, "useState") && !strings.Contains(code, "import") {
		issues = append(issues, "consider importing React hooks explicitly")
	}
	if strings.Contains(code, "function") && !strings.Contains(code, "export default") {
		issues = append(issues, "component should have a default export")
	}
	if !strings.Contains(code, "className") && strings.Contains(code, "class=") {
		issues = append(issues, "use className instead of class in React")
	}
	return issues
}

func checkHTML(code string) []string {
	var issues []string
	if !strings.Contains(code, "<!DOCTYPE html>") && strings.Contains(code, "<html") {
		issues = append(issues, "missing DOCTYPE declaration")
	}
	if !strings.Contains(code, "<title>") && strings.Contains(code, "<head>") {
		issues = append(issues, "missing title tag")
	}
	if !strings.Contains(code, `lang="`) && strings.Contains(code, "<html") {
		issues = append(issues, "missing lang attribute in html tag")
	}
	return issues
}
