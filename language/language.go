// Package language maps file names to the language labels used in review prompts.
package language

import (
	"path"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// extensionLabels maps a case-sensitive file extension to its language label.
// An empty label marks an extension that is known but intentionally unlabeled.
var extensionLabels = map[string]string{
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"go":     "go",
	"rb":     "ruby",
	"cs":     "csharp",
	"java":   "java",
	"php":    "php",
	"rs":     "rust",
	"swift":  "swift",
	"cpp":    "cpp",
	"c":      "c",
	"m":      "objective-c",
	"mm":     "objective-cpp",
	"h":      "c",
	"hpp":    "cpp",
	"hxx":    "cpp",
	"hh":     "cpp",
	"cc":     "cpp",
	"cxx":    "cpp",
	"html":   "html",
	"css":    "css",
	"scss":   "scss",
	"less":   "less",
	"sass":   "sass",
	"styl":   "stylus",
	"vue":    "vue",
	"svelte": "svelte",
	"jsx":    "jsx",
	"tsx":    "tsx",
	"md":     "markdown",
	"json":   "json",
	"yaml":   "yaml",
	"yml":    "yaml",
	"xml":    "xml",
	"toml":   "toml",
	"sh":     "shell",
	"clj":    "clojure",
	"cljs":   "clojure",
	"cljc":   "clojure",
	"edn":    "clojure",
	"lua":    "lua",
	"sql":    "sql",
	"r":      "r",
	"kt":     "kotlin",
	"kts":    "kotlin",
	"ktm":    "kotlin",
	"ktx":    "kotlin",
	"gradle": "groovy",
	"tf":     "terraform",
	"scala":  "scala",
	"sc":     "scala",
	"txt":    "",
	"bat":    "",
	"ps1":    "",
	"psm1":   "",
	"psd1":   "",
	"ps1xml": "",
	"pssc":   "",
	"other":  "",
}

// Extension returns the text after the last dot of the file's base name,
// or an empty string if the name has no dot.
func Extension(filename string) string {
	base := path.Base(filename)
	idx := strings.LastIndex(base, ".")
	if idx == -1 {
		return ""
	}
	return base[idx+1:]
}

// Detect returns the language label for filename.
// ok is false when the extension is not in the table at all; a known extension
// may still map to an empty label.
func Detect(filename string) (label string, ok bool) {
	label, ok = extensionLabels[Extension(filename)]
	return label, ok
}

// Classifier is a stateless language detector.
type Classifier struct{}

// NewClassifier returns a Classifier backed by the static extension table.
func NewClassifier() Classifier {
	return Classifier{}
}

// Detect returns the language label for filename. See Detect.
func (Classifier) Detect(filename string) (string, bool) {
	return Detect(filename)
}

// IsVendored reports whether path looks like vendored or third-party code
// (vendor/, node_modules/, minified bundles and similar).
func IsVendored(path string) bool {
	return enry.IsVendor(path)
}
