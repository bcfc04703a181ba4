package contract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/repolens/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Color variables for console output.
var (
	StrongColor    = color.New(color.FgGreen, color.Bold) // StrongColor marks near-duplicates and strong synergy.
	RelatedColor   = color.New(color.FgCyan, color.Bold)  // RelatedColor marks a clear relationship.
	WeakColor      = color.New(color.FgYellow)            // WeakColor marks a faint relationship.
	UnrelatedColor = color.New(color.FgHiBlack)           // UnrelatedColor marks noise.

	CompletedColor = color.New(color.FgGreen)
	FailedColor    = color.New(color.FgRed, color.Bold)
	ProgressColor  = color.New(color.FgYellow)
)

// GetColorLabel returns a colored relationship label for console output (table).
func GetColorLabel(score float64) string {
	text := schema.GetPlainLabel(score)

	switch text {
	case schema.StrongLabel:
		return StrongColor.Sprint(text)
	case schema.RelatedLabel:
		return RelatedColor.Sprint(text)
	case schema.WeakLabel:
		return WeakColor.Sprint(text)
	default:
		return UnrelatedColor.Sprint(text)
	}
}

// GetColorStatus returns a colored member status for console output.
func GetColorStatus(status schema.MemberStatus) string {
	switch status {
	case schema.CompletedStatus:
		return CompletedColor.Sprint(status)
	case schema.FailedStatus:
		return FailedColor.Sprint(status)
	case schema.InProgressStatus:
		return ProgressColor.Sprint(status)
	default:
		return string(status)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// ParseLogLevel converts a level name into a zap level.
func ParseLogLevel(level string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error", level)
	}
	return lvl, nil
}

// NewLogger builds a console logger writing to w at the given level.
// Logs never go to stdout so they cannot corrupt command output or the MCP stream.
func NewLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// GetIndexDBFilePath returns the path to the SQLite DB file for the repository index.
func GetIndexDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repolens_index.db"
	}
	return filepath.Join(homeDir, ".repolens_index.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for the "..." prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
