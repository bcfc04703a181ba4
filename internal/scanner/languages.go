package scanner

import (
	"path"
	"strings"
)

// languageByExt maps a lowercase file extension to a language display name.
var languageByExt = map[string]string{
	".go":     "Go",
	".py":     "Python",
	".pyi":    "Python",
	".js":     "JavaScript",
	".jsx":    "JavaScript",
	".mjs":    "JavaScript",
	".cjs":    "JavaScript",
	".ts":     "TypeScript",
	".tsx":    "TypeScript",
	".rs":     "Rust",
	".java":   "Java",
	".kt":     "Kotlin",
	".kts":    "Kotlin",
	".rb":     "Ruby",
	".php":    "PHP",
	".cs":     "C#",
	".c":      "C",
	".h":      "C",
	".cc":     "C++",
	".cpp":    "C++",
	".hpp":    "C++",
	".swift":  "Swift",
	".dart":   "Dart",
	".scala":  "Scala",
	".sh":     "Shell",
	".bash":   "Shell",
	".sql":    "SQL",
	".vue":    "Vue",
	".svelte": "Svelte",
}

// ignoredDirs are never descended into.
var ignoredDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	"node_modules":  {},
	"vendor":        {},
	"__pycache__":   {},
	".venv":         {},
	"venv":          {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
	"dist":          {},
	"build":         {},
	"target":        {},
	".idea":         {},
	".vscode":       {},
	".next":         {},
	"coverage":      {},
}

// frameworkByDependency maps a normalized dependency name to the framework it implies.
var frameworkByDependency = map[string]string{
	// Python
	"flask":     "flask",
	"django":    "django",
	"fastapi":   "fastapi",
	"starlette": "starlette",
	"tornado":   "tornado",
	"streamlit": "streamlit",
	"pyramid":   "pyramid",
	"celery":    "celery",
	// JavaScript and TypeScript
	"react":         "react",
	"vue":           "vue",
	"svelte":        "svelte",
	"next":          "next.js",
	"nuxt":          "nuxt",
	"express":       "express",
	"koa":           "koa",
	"fastify":       "fastify",
	"@angular/core": "angular",
	"@nestjs/core":  "nestjs",
	"electron":      "electron",
	// Go
	"github.com/gin-gonic/gin":    "gin",
	"github.com/labstack/echo":    "echo",
	"github.com/gofiber/fiber":    "fiber",
	"github.com/go-chi/chi":       "chi",
	"github.com/gorilla/mux":      "gorilla",
	"github.com/spf13/cobra":      "cobra",
	"google.golang.org/grpc":      "grpc",
	"github.com/mark3labs/mcp-go": "mcp",
	// Rust
	"actix-web": "actix",
	"rocket":    "rocket",
	"axum":      "axum",
	"tokio":     "tokio",
	// Dart
	"flutter": "flutter",
}

// frameworkOf returns the framework implied by a dependency or import path.
// Go module paths match with any major version suffix or subpackage.
func frameworkOf(dep string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(dep))
	if fw, ok := frameworkByDependency[name]; ok {
		return fw, true
	}
	// Scoped npm subpackages and Python submodules ("django.db")
	if i := strings.IndexByte(name, '.'); i > 0 && !strings.Contains(name, "/") {
		if fw, ok := frameworkByDependency[name[:i]]; ok {
			return fw, true
		}
	}
	for prefix := name; strings.Contains(prefix, "/"); {
		prefix = path.Dir(prefix)
		if fw, ok := frameworkByDependency[prefix]; ok {
			return fw, true
		}
	}
	return "", false
}

// keyFileRule scores files that say more about a repository than their neighbors.
type keyFileRule struct {
	importance float64
	reason     string
}

// keyFileByName matches on the lowercase base name.
var keyFileByName = map[string]keyFileRule{
	"package.json":        {1.0, "dependency manifest"},
	"go.mod":              {1.0, "dependency manifest"},
	"requirements.txt":    {1.0, "dependency manifest"},
	"pyproject.toml":      {1.0, "dependency manifest"},
	"cargo.toml":          {1.0, "dependency manifest"},
	"pubspec.yaml":        {1.0, "dependency manifest"},
	"setup.py":            {0.9, "dependency manifest"},
	"pom.xml":             {0.9, "dependency manifest"},
	"build.gradle":        {0.9, "dependency manifest"},
	"main.go":             {0.8, "entry point"},
	"main.py":             {0.8, "entry point"},
	"app.py":              {0.8, "entry point"},
	"manage.py":           {0.8, "entry point"},
	"index.js":            {0.8, "entry point"},
	"index.ts":            {0.8, "entry point"},
	"server.js":           {0.8, "entry point"},
	"main.rs":             {0.8, "entry point"},
	"lib.rs":              {0.7, "library root"},
	"dockerfile":          {0.6, "container build"},
	"docker-compose.yml":  {0.6, "container build"},
	"docker-compose.yaml": {0.6, "container build"},
	"makefile":            {0.5, "build script"},
	"license":             {0.3, "license"},
	"license.md":          {0.3, "license"},
}

// keyFileRuleFor returns the rule for a repository-relative slash path.
func keyFileRuleFor(rel string) (keyFileRule, bool) {
	base := strings.ToLower(path.Base(rel))
	if strings.HasPrefix(base, "readme") {
		// Only the top-level README documents the repository
		if !strings.Contains(rel, "/") {
			return keyFileRule{0.9, "documentation"}, true
		}
		return keyFileRule{0.4, "documentation"}, true
	}
	if strings.HasPrefix(rel, ".github/workflows/") {
		return keyFileRule{0.4, "continuous integration"}, true
	}
	rule, ok := keyFileByName[base]
	return rule, ok
}
