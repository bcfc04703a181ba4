package scanner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// manifestDeps is what one dependency manifest declares.
type manifestDeps struct {
	production  []string
	development []string
}

// manifestParser parses the raw content of one manifest kind.
type manifestParser func(data []byte) (manifestDeps, error)

// manifestParsers is keyed by lowercase base name.
var manifestParsers = map[string]manifestParser{
	"package.json":     parsePackageJSON,
	"go.mod":           parseGoMod,
	"requirements.txt": parseRequirements,
	"pyproject.toml":   parsePyproject,
	"cargo.toml":       parseCargo,
	"pubspec.yaml":     parsePubspec,
}

func parsePackageJSON(data []byte) (manifestDeps, error) {
	var pkg struct {
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return manifestDeps{}, fmt.Errorf("invalid package.json: %w", err)
	}
	return manifestDeps{
		production:  append(keys(pkg.Dependencies), keys(pkg.PeerDependencies)...),
		development: keys(pkg.DevDependencies),
	}, nil
}

func parseGoMod(data []byte) (manifestDeps, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return manifestDeps{}, fmt.Errorf("invalid go.mod: %w", err)
	}
	var deps manifestDeps
	for _, req := range f.Require {
		if req.Indirect {
			continue
		}
		deps.production = append(deps.production, req.Mod.Path)
	}
	return deps, nil
}

// requirementName captures the distribution name of a requirements.txt line.
var requirementName = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)

func parseRequirements(data []byte) (manifestDeps, error) {
	var deps manifestDeps
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		// Options such as -r, -e and --index-url
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if name := pythonRequirementName(line); name != "" {
			deps.production = append(deps.production, name)
		}
	}
	return deps, sc.Err()
}

// pythonRequirementName strips version specifiers and extras from a PEP 508 requirement.
func pythonRequirementName(req string) string {
	m := requirementName.FindStringSubmatch(strings.TrimSpace(req))
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(m[1], "_", "-"))
}

func parsePyproject(data []byte) (manifestDeps, error) {
	var doc struct {
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies    map[string]any `toml:"dependencies"`
				DevDependencies map[string]any `toml:"dev-dependencies"`
				Group           map[string]struct {
					Dependencies map[string]any `toml:"dependencies"`
				} `toml:"group"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return manifestDeps{}, fmt.Errorf("invalid pyproject.toml: %w", err)
	}

	var deps manifestDeps
	for _, req := range doc.Project.Dependencies {
		if name := pythonRequirementName(req); name != "" {
			deps.production = append(deps.production, name)
		}
	}
	for _, group := range doc.Project.OptionalDependencies {
		for _, req := range group {
			if name := pythonRequirementName(req); name != "" {
				deps.development = append(deps.development, name)
			}
		}
	}
	for name := range doc.Tool.Poetry.Dependencies {
		if strings.EqualFold(name, "python") {
			continue
		}
		deps.production = append(deps.production, strings.ToLower(name))
	}
	for name := range doc.Tool.Poetry.DevDependencies {
		deps.development = append(deps.development, strings.ToLower(name))
	}
	for _, group := range doc.Tool.Poetry.Group {
		for name := range group.Dependencies {
			deps.development = append(deps.development, strings.ToLower(name))
		}
	}
	return deps, nil
}

func parseCargo(data []byte) (manifestDeps, error) {
	var doc struct {
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return manifestDeps{}, fmt.Errorf("invalid Cargo.toml: %w", err)
	}
	return manifestDeps{
		production:  keys(doc.Dependencies),
		development: keys(doc.DevDependencies),
	}, nil
}

func parsePubspec(data []byte) (manifestDeps, error) {
	var doc struct {
		Dependencies    map[string]any `yaml:"dependencies"`
		DevDependencies map[string]any `yaml:"dev_dependencies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return manifestDeps{}, fmt.Errorf("invalid pubspec.yaml: %w", err)
	}
	return manifestDeps{
		production:  keys(doc.Dependencies),
		development: keys(doc.DevDependencies),
	}, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
