// Package scanner is the default filesystem scanner. It walks a repository,
// detects languages and frameworks, parses dependency manifests and collects
// source-level counts within the limits of the analysis options.
package scanner

import (
	"cmp"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// maxManifestBytes bounds how much of a manifest is parsed.
const maxManifestBytes = 4 << 20

// Scanner implements contract.Scanner on the local filesystem.
type Scanner struct {
	logger *zap.Logger
}

var _ contract.Scanner = &Scanner{} // Compile-time check

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for skipped files and manifests.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// walkState accumulates one scan.
type walkState struct {
	opts            schema.AnalysisOptions
	withCode        bool
	analysis        *schema.RepositoryAnalysis
	langFiles       map[string]int
	dirFiles        map[string]int // Slash path relative to root ("." for root) to direct file count
	dirs            []string
	deps            manifestDeps
	imports         []string
	complexityFiles int
}

// Scan walks root and returns its structural analysis. Identity fields (ID,
// fingerprint, metadata) are left for the caller to fill in.
func (s *Scanner) Scan(ctx context.Context, root string, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	st := &walkState{
		opts:     opts,
		withCode: opts.Mode != schema.QuickMode,
		analysis: &schema.RepositoryAnalysis{
			Name: filepath.Base(root),
			Path: root,
			Structure: schema.Structure{
				FileTypes: make(map[string]int),
			},
			CodeAnalysis: schema.CodeAnalysis{
				LanguageLines: make(map[string]int),
			},
		},
		langFiles: make(map[string]int),
		dirFiles:  map[string]int{".": 0},
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			s.logger.Debug("skipping unreadable entry", zap.String("path", p), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if skipDir(d.Name()) {
				return fs.SkipDir
			}
			st.analysis.DirectoryCount++
			st.dirs = append(st.dirs, rel)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if st.opts.MaxFiles > 0 && st.analysis.FileCount >= st.opts.MaxFiles {
			st.analysis.Metadata.Truncated = true
			return fs.SkipAll
		}
		s.visitFile(st, p, rel, d)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	s.finish(st)
	return st.analysis, nil
}

// skipDir reports whether a directory is never scanned.
func skipDir(name string) bool {
	if _, ok := ignoredDirs[name]; ok {
		return true
	}
	return strings.HasPrefix(name, ".") && name != ".github"
}

// visitFile records one regular file.
func (s *Scanner) visitFile(st *walkState, p, rel string, d fs.DirEntry) {
	a := st.analysis
	a.FileCount++
	st.dirFiles[path.Dir(rel)]++

	var size int64
	if info, err := d.Info(); err == nil {
		size = info.Size()
	}
	a.TotalSize += size

	ext := strings.ToLower(filepath.Ext(d.Name()))
	if ext != "" {
		a.Structure.FileTypes[ext]++
	}

	if rule, ok := keyFileRuleFor(rel); ok {
		a.Structure.KeyFiles = append(a.Structure.KeyFiles, schema.KeyFile{Path: rel, Importance: rule.importance, Reason: rule.reason})
	}

	if parse, ok := manifestParsers[strings.ToLower(d.Name())]; ok {
		s.readManifest(st, p, rel, parse)
	}

	language, ok := languageByExt[ext]
	if !ok {
		return
	}
	st.langFiles[language]++

	f, err := os.Open(p)
	if err != nil {
		s.logger.Debug("skipping unreadable file", zap.String("path", rel), zap.Error(err))
		return
	}
	defer func() { _ = f.Close() }()

	stats := analyzeSource(f, language, st.opts.MaxLinesPerFile, st.withCode)
	if stats.binary {
		return
	}
	ca := &a.CodeAnalysis
	ca.TotalLines += stats.lines
	ca.LanguageLines[language] += stats.lines
	ca.FunctionCount += stats.functions
	ca.ClassCount += stats.classes
	ca.ImportCount += stats.imports
	st.imports = append(st.imports, stats.importRefs...)

	if stats.complexity > 0 {
		st.complexityFiles++
		ca.Complexity.Total += stats.complexity
		if stats.complexity > ca.Complexity.MaxFileScore {
			ca.Complexity.MaxFileScore = stats.complexity
			ca.Complexity.MaxFile = rel
		}
	}
}

// readManifest merges the dependencies of one manifest. Invalid manifests are skipped.
func (s *Scanner) readManifest(st *walkState, p, rel string, parse manifestParser) {
	f, err := os.Open(p)
	if err != nil {
		s.logger.Debug("skipping unreadable manifest", zap.String("path", rel), zap.Error(err))
		return
	}
	defer func() { _ = f.Close() }()

	data, err := readLimited(f, maxManifestBytes)
	if err != nil {
		s.logger.Debug("skipping unreadable manifest", zap.String("path", rel), zap.Error(err))
		return
	}
	deps, err := parse(data)
	if err != nil {
		s.logger.Warn("skipping invalid manifest", zap.String("path", rel), zap.Error(err))
		return
	}
	st.deps.production = append(st.deps.production, deps.production...)
	st.deps.development = append(st.deps.development, deps.development...)
}

// finish derives languages, frameworks, key files and the tree from the walk.
func (s *Scanner) finish(st *walkState) {
	a := st.analysis

	languages := make([]string, 0, len(st.langFiles))
	for lang := range st.langFiles {
		languages = append(languages, lang)
	}
	slices.SortFunc(languages, func(x, y string) int {
		if c := cmp.Compare(st.langFiles[y], st.langFiles[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	a.Languages = languages

	a.Dependencies.Production = schema.NormalizeSet(st.deps.production)
	a.Dependencies.Development = schema.NormalizeSet(st.deps.development)

	var frameworks []string
	for _, dep := range slices.Concat(a.Dependencies.Production, a.Dependencies.Development) {
		if fw, ok := frameworkOf(dep); ok {
			frameworks = append(frameworks, fw)
		}
	}
	a.Dependencies.Frameworks = schema.NormalizeSet(frameworks)
	for _, ref := range st.imports {
		if fw, ok := frameworkOf(ref); ok {
			frameworks = append(frameworks, fw)
		}
	}
	a.Frameworks = schema.NormalizeSet(frameworks)

	if st.complexityFiles > 0 {
		a.CodeAnalysis.Complexity.AveragePerFile = float64(a.CodeAnalysis.Complexity.Total) / float64(st.complexityFiles)
	}

	slices.SortStableFunc(a.Structure.KeyFiles, func(x, y schema.KeyFile) int {
		if c := cmp.Compare(y.Importance, x.Importance); c != 0 {
			return c
		}
		return cmp.Compare(x.Path, y.Path)
	})

	if st.opts.IncludeTree {
		a.Structure.Tree = buildTree(a.Name, st.dirs, st.dirFiles)
	}
}

// readLimited reads r and fails when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errors.New("manifest too large")
	}
	return data, nil
}
