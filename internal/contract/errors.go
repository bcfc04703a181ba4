package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/repolens/schema"
)

// AnalysisError is the typed error surfaced by every analysis operation.
// It carries the failure kind and remediation hints for the caller.
type AnalysisError struct {
	Kind        schema.ErrorKind `json:"kind"`
	Message     string           `json:"message"`
	Path        string           `json:"path,omitempty"`
	Remediation []string         `json:"remediation,omitempty"`
	cause       error            // Underlying error (not exported to JSON)
}

// NewError creates an AnalysisError with the default remediation for its kind.
func NewError(kind schema.ErrorKind, path, message string) *AnalysisError {
	return &AnalysisError{
		Kind:        kind,
		Message:     message,
		Path:        path,
		Remediation: GetRemediation(kind),
	}
}

// Wrap creates an AnalysisError around an underlying cause.
func Wrap(kind schema.ErrorKind, path, message string, cause error) *AnalysisError {
	e := NewError(kind, path, message)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Kind))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// Is matches any AnalysisError with the same kind.
func (e *AnalysisError) Is(target error) bool {
	var other *AnalysisError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// MemberError converts the error into its serializable batch form.
func (e *AnalysisError) MemberError() *schema.MemberError {
	return &schema.MemberError{
		Kind:        e.Kind,
		Message:     e.Error(),
		Remediation: append([]string(nil), e.Remediation...),
	}
}

// KindOf returns the kind of err. Context errors map to ScanCancelled and
// ScanTimeout; anything else unknown maps to ScanFailed.
func KindOf(err error) schema.ErrorKind {
	if err == nil {
		return ""
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return schema.ScanTimeout
	case errors.Is(err, context.Canceled):
		return schema.ScanCancelled
	}
	return schema.ScanFailed
}

// IsKind reports whether err is an AnalysisError of the given kind.
func IsKind(err error, kind schema.ErrorKind) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Kind == kind
}

// AsAnalysisError returns err as an AnalysisError, wrapping it with KindOf when needed.
func AsAnalysisError(err error, path string) *AnalysisError {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	kind := KindOf(err)
	return Wrap(kind, path, fmt.Sprintf("analysis %s", strings.ToLower(string(kind))), err)
}

// ErrorRemediation maps error kinds to suggested fixes.
var ErrorRemediation = map[schema.ErrorKind][]string{
	schema.InvalidInput: {
		"Check the analysis options: mode must be quick, standard or comprehensive",
		"Formats must be a subset of json, markdown, html",
	},
	schema.PathInvalid: {
		"Pass an absolute or relative path to a directory",
		"Check that the path is inside one of the configured allowed-roots",
	},
	schema.PathNotFound: {
		"Verify that the repository path exists",
		"Clone the repository locally before analyzing it",
	},
	schema.PermissionDenied: {
		"Grant read permission on the repository directory",
	},
	schema.ScanTimeout: {
		"Increase --scan-timeout",
		"Use --mode quick or lower --max-files",
	},
	schema.ScanCancelled: {
		"Re-submit the analysis when ready",
	},
	schema.ScanFailed: {
		"Run again with --log-level debug for details",
	},
	schema.CacheReservationConflict: {
		"Retry the request; another analysis of the same input is in flight",
	},
	schema.IndexInconsistency: {
		"Run 'repolens index clear' and re-analyze the affected repositories",
	},
	schema.StorageFailed: {
		"Run 'repolens index status' to check the index backend",
		"Verify --index-db-connect or use --index-backend none",
	},
	schema.RepositoryNotFound: {
		"Run 'repolens list' to see indexed repository ids",
	},
}

// GetRemediation returns the suggested fixes for a kind.
func GetRemediation(kind schema.ErrorKind) []string {
	if fixes, ok := ErrorRemediation[kind]; ok {
		return append([]string(nil), fixes...)
	}
	return nil
}
