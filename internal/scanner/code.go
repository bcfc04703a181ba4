package scanner

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
)

// codePatterns recognizes declarations in one language family.
type codePatterns struct {
	function *regexp.Regexp
	class    *regexp.Regexp
	imports  *regexp.Regexp
	// importPath captures the imported module from a matching line
	importPath *regexp.Regexp
}

var (
	pythonPatterns = codePatterns{
		function:   regexp.MustCompile(`^\s*(async\s+)?def\s+\w+`),
		class:      regexp.MustCompile(`^\s*class\s+\w+`),
		imports:    regexp.MustCompile(`^\s*(import|from)\s+[\w.]+`),
		importPath: regexp.MustCompile(`^\s*(?:from|import)\s+([\w.]+)`),
	}
	goPatterns = codePatterns{
		function:   regexp.MustCompile(`^func\s`),
		class:      regexp.MustCompile(`^type\s+\w+\s+(struct|interface)\b`),
		imports:    regexp.MustCompile(`^\s*(import\s+)?(\w+\s+|_\s+|\.\s+)?"[^"]+"\s*$`),
		importPath: regexp.MustCompile(`"([^"]+)"`),
	}
	jsPatterns = codePatterns{
		function:   regexp.MustCompile(`\bfunction\b|^\s*(export\s+)?(const|let|var)\s+\w+\s*=\s*(async\s*)?(\([^)]*\)|\w+)\s*=>`),
		class:      regexp.MustCompile(`^\s*(export\s+)?(default\s+)?(abstract\s+)?class\s+\w+`),
		imports:    regexp.MustCompile(`^\s*import\s|\brequire\(\s*['"]`),
		importPath: regexp.MustCompile(`(?:from\s+|require\(\s*|^\s*import\s+)['"]([^'"]+)['"]`),
	}
	rustPatterns = codePatterns{
		function:   regexp.MustCompile(`^\s*(pub(\([^)]*\))?\s+)?(async\s+)?fn\s+\w+`),
		class:      regexp.MustCompile(`^\s*(pub(\([^)]*\))?\s+)?(struct|enum|trait)\s+\w+`),
		imports:    regexp.MustCompile(`^\s*use\s+`),
		importPath: regexp.MustCompile(`^\s*use\s+(\w+)`),
	}
	jvmPatterns = codePatterns{
		function: regexp.MustCompile(`^\s*((public|private|protected|internal|static|final|abstract|synchronized|override|suspend|open)\s+)+[\w<>\[\],?\s]*\w+\s*\(|\bfun\s+\w+|^\s*def\s+\w+`),
		class:    regexp.MustCompile(`\b(class|interface|enum|object)\s+\w+`),
		imports:  regexp.MustCompile(`^\s*import\s+`),
	}
)

// patternsByLanguage selects declaration patterns by language display name.
var patternsByLanguage = map[string]*codePatterns{
	"Python":     &pythonPatterns,
	"Go":         &goPatterns,
	"JavaScript": &jsPatterns,
	"TypeScript": &jsPatterns,
	"Vue":        &jsPatterns,
	"Svelte":     &jsPatterns,
	"Rust":       &rustPatterns,
	"Java":       &jvmPatterns,
	"Kotlin":     &jvmPatterns,
	"Scala":      &jvmPatterns,
}

// decisionPoint matches branch keywords and short-circuit operators.
var decisionPoint = regexp.MustCompile(`\b(if|elif|for|while|case|catch|except|match)\b|&&|\|\||\band\b|\bor\b|\?\s*[^:?]+:`)

// fileStats is what one source file contributes to the code analysis.
type fileStats struct {
	lines      int
	functions  int
	classes    int
	imports    int
	complexity int
	importRefs []string
	truncated  bool
	binary     bool
}

// maxLineBytes bounds a single line; longer lines end the file read.
const maxLineBytes = 1 << 20

// analyzeSource reads at most maxLines lines of r. Declarations are only
// counted when withCode is set and the language has patterns.
func analyzeSource(r io.Reader, language string, maxLines int, withCode bool) fileStats {
	var stats fileStats
	br := bufio.NewReader(r)
	if head, _ := br.Peek(512); bytes.IndexByte(head, 0) >= 0 {
		stats.binary = true
		return stats
	}

	patterns := patternsByLanguage[language]
	if !withCode {
		patterns = nil
	}
	if patterns != nil {
		stats.complexity = 1
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	inGoImportBlock := false
	for sc.Scan() {
		if maxLines > 0 && stats.lines >= maxLines {
			stats.truncated = true
			break
		}
		stats.lines++
		if patterns == nil {
			continue
		}

		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if patterns == &goPatterns {
			switch {
			case strings.HasPrefix(trimmed, "import ("):
				inGoImportBlock = true
				continue
			case inGoImportBlock && trimmed == ")":
				inGoImportBlock = false
				continue
			case !inGoImportBlock && !strings.HasPrefix(trimmed, "import "):
				// Only import lines may carry a bare quoted path
			default:
				if patterns.imports.MatchString(trimmed) {
					stats.imports++
					stats.importRefs = appendImport(stats.importRefs, patterns.importPath, trimmed)
				}
				continue
			}
		} else if patterns.imports.MatchString(line) {
			stats.imports++
			stats.importRefs = appendImport(stats.importRefs, patterns.importPath, line)
			continue
		}

		if patterns.function.MatchString(line) {
			stats.functions++
		}
		if patterns.class.MatchString(line) {
			stats.classes++
		}
		stats.complexity += len(decisionPoint.FindAllStringIndex(line, -1))
	}
	if sc.Err() != nil {
		stats.truncated = true
	}
	return stats
}

func appendImport(refs []string, re *regexp.Regexp, line string) []string {
	if re == nil {
		return refs
	}
	if m := re.FindStringSubmatch(line); len(m) > 1 && m[1] != "" {
		return append(refs, m[1])
	}
	return refs
}
