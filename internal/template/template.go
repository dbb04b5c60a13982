// Package template serves the built-in starter templates users can load
// instead of writing a prompt from scratch.
package template

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

//go:embed templates
var templateFS embed.FS

var ErrNotFound = errors.New("template not found")

// Template is a ready-made starter the client offers alongside free-form
// prompts.
type Template struct {
	Name     string `json:"name"`
	FileType string `json:"file_type"`
	Content  string `json:"content,omitempty"`
}

var templates map[string]Template

func init() {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		panic(fmt.Sprintf("reading embedded templates: %v", err))
	}
	templates = make(map[string]Template, len(entries))
	for _, entry := range entries {
		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("reading embedded template %s: %v", entry.Name(), err))
		}
		name, ext, _ := strings.Cut(entry.Name(), ".")
		templates[name] = Template{
			Name:     name,
			FileType: ext,
			Content:  string(data),
		}
	}
}

// List returns all templates without their content, sorted by name.
func List() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		t.Content = ""
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a template with its content.
func Get(name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}
