// Package sandbox builds the preview configuration a browser sandbox
// needs to render generated code: an HTML document directly, or a React
// entry point with a pinned esm.sh import map.
package sandbox

import "github.com/sejin-p/webforge/internal/parser"

// Config is consumed by the web client's sandbox iframe.
type Config struct {
	Template string            `json:"template"`
	Imports  map[string]string `json:"imports,omitempty"`
	Files    map[string]string `json:"files"`
}

const reactEntry = `import Demo from './demo.tsx'
import "@tailwindcss/browser"

export default Demo`

// reactImports pins the browser module versions React previews resolve
// against. Bumping a version here changes every rendered preview.
var reactImports = map[string]string{
	"react":      "https://esm.sh/react@^19.0.0",
	"react/":     "https://esm.sh/react@^19.0.0/",
	"react-dom":  "https://esm.sh/react-dom@^19.0.0",
	"react-dom/": "https://esm.sh/react-dom@^19.0.0/",

	"lucide-react":      "https://esm.sh/lucide-react@0.525.0",
	"recharts":          "https://esm.sh/recharts@3.1.0",
	"@headlessui/react": "https://esm.sh/@headlessui/react@2.0.4",
	"@heroicons/react":  "https://esm.sh/@heroicons/react@2.1.5",

	"framer-motion": "https://esm.sh/framer-motion@12.23.6",
	"lottie-react":  "https://esm.sh/lottie-react@2.4.0",

	"three":              "https://esm.sh/three@0.178.0",
	"@react-three/fiber": "https://esm.sh/@react-three/fiber@9.2.0",
	"@react-three/drei":  "https://esm.sh/@react-three/drei@10.5.2",

	"matter-js":   "https://esm.sh/matter-js@0.20.0",
	"konva":       "https://esm.sh/konva@9.3.22",
	"react-konva": "https://esm.sh/react-konva@19.0.7",
	"p5":          "https://esm.sh/p5@2.0.3",

	"@tailwindcss/browser": "https://esm.sh/@tailwindcss/browser@4.1.11",
	"lodash":               "https://esm.sh/lodash@4.17.21",
	"dayjs":                "https://esm.sh/dayjs@1.11.13",
	"uuid":                 "https://esm.sh/uuid@10.0.0",
}

// Build derives the sandbox configuration for a set of extracted files.
func Build(files parser.Files) Config {
	content, _ := files.Primary()
	if files.IsReact() {
		imports := make(map[string]string, len(reactImports))
		for k, v := range reactImports {
			imports[k] = v
		}
		return Config{
			Template: "react",
			Imports:  imports,
			Files: map[string]string{
				"./index.tsx": reactEntry,
				"./demo.tsx":  content,
			},
		}
	}
	return Config{
		Template: "html",
		Files: map[string]string{
			"./index.html": content,
		},
	}
}
