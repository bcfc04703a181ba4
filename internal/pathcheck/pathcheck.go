// Package pathcheck validates repository paths before they are analyzed.
package pathcheck

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

// Validator resolves a path to its absolute, symlink-free form and checks that
// it is a readable directory inside the allowed roots.
type Validator struct {
	roots []string
}

var _ contract.PathValidator = &Validator{} // Compile-time check

// New creates a Validator. An empty roots list allows any directory.
func New(roots []string) *Validator {
	v := &Validator{}
	for _, root := range roots {
		if root == "" {
			continue
		}
		if resolved, err := resolve(root); err == nil {
			root = resolved
		}
		v.roots = append(v.roots, root)
	}
	return v
}

// Validate implements contract.PathValidator.
func (v *Validator) Validate(ctx context.Context, path string) (contract.PathInfo, error) {
	if err := ctx.Err(); err != nil {
		return contract.PathInfo{}, contract.Wrap(contract.KindOf(err), path, "validation interrupted", err)
	}
	if strings.TrimSpace(path) == "" {
		return contract.PathInfo{}, contract.NewError(schema.PathInvalid, path, "path is empty")
	}
	if strings.ContainsRune(path, 0) {
		return contract.PathInfo{}, contract.NewError(schema.PathInvalid, path, "path contains a NUL byte")
	}

	resolved, err := resolve(path)
	if err != nil {
		return contract.PathInfo{}, classify(path, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return contract.PathInfo{}, classify(path, err)
	}
	if !info.IsDir() {
		return contract.PathInfo{}, contract.NewError(schema.PathInvalid, path, "path is not a directory")
	}
	if !v.allowed(resolved) {
		return contract.PathInfo{}, contract.NewError(schema.PathInvalid, path, "path is outside the allowed roots")
	}
	dir, err := os.Open(resolved)
	if err != nil {
		return contract.PathInfo{}, classify(path, err)
	}
	_, err = dir.Readdirnames(1)
	_ = dir.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return contract.PathInfo{}, classify(path, err)
	}

	_, gitErr := os.Stat(filepath.Join(resolved, ".git"))
	return contract.PathInfo{
		Path:      resolved,
		Name:      filepath.Base(resolved),
		IsGitRepo: gitErr == nil,
		ModTime:   info.ModTime(),
	}, nil
}

// allowed reports whether path is one of the roots or below one.
func (v *Validator) allowed(path string) bool {
	if len(v.roots) == 0 {
		return true
	}
	for _, root := range v.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// classify maps file system errors to error kinds.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return contract.Wrap(schema.PathNotFound, path, "path does not exist", err)
	case errors.Is(err, fs.ErrPermission):
		return contract.Wrap(schema.PermissionDenied, path, "path is not readable", err)
	default:
		return contract.Wrap(schema.PathInvalid, path, "path cannot be used", err)
	}
}
