package outwriter

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterHelpersCreateFormatters(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{name: "precision 2", precision: 2, value: 3.14159, expected: "3.14"},
		{name: "precision 1", precision: 1, value: 0.75, expected: "0.8"},
		{name: "precision 4", precision: 4, value: 3.14159, expected: "3.1416"},
		{name: "negative value", precision: 2, value: -42.567, expected: "-42.57"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fmtFloat := createFormatters(tt.precision)
			assert.Equal(t, tt.expected, fmtFloat(tt.value))
		})
	}
}

func TestWriterHelpersWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name: "simple object",
			data: map[string]any{"name": "test", "value": 42},
			expected: `{
  "name": "test",
  "value": 42
}
`,
		},
		{
			name: "array",
			data: []string{"a", "b"},
			expected: `[
  "a",
  "b"
]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, tt.data))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriterHelpersWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{
			name:     "simple csv",
			header:   []string{"name", "languages"},
			rows:     [][]string{{"alpha", "Go|Python"}, {"beta", "Rust"}},
			expected: "name,languages\nalpha,Go|Python\nbeta,Rust\n",
		},
		{
			name:     "empty rows",
			header:   []string{"col1", "col2"},
			rows:     nil,
			expected: "col1,col2\n",
		},
		{
			name:     "values with commas",
			header:   []string{"name", "detail"},
			rows:     [][]string{{"gamma", "lang: Go, Rust"}},
			expected: "name,detail\ngamma,\"lang: Go, Rust\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCSVWithHeader(&buf, tt.header, tt.rows))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"Name", "Files"}, [][]string{{"alpha", "12"}, {"beta", "3"}}))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "12")
}

func TestJoinOrDash(t *testing.T) {
	tests := []struct {
		name     string
		items    []string
		limit    int
		expected string
	}{
		{"empty", nil, 3, "-"},
		{"under limit", []string{"Go", "Python"}, 3, "Go, Python"},
		{"over limit", []string{"a", "b", "c", "d"}, 2, "a, b (+2)"},
		{"no limit", []string{"a", "b", "c", "d"}, 0, "a, b, c, d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, joinOrDash(tt.items, tt.limit))
		})
	}
}

func TestWriteWithFileStdout(t *testing.T) {
	called := false
	err := writeWithFile("", func(_ io.Writer) error {
		called = true
		return nil
	}, "Test message")

	require.NoError(t, err)
	assert.True(t, called, "Writer function should have been called")
}

func TestWriteWithFileActualFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.txt")

	err := writeWithFile(tmpFile, func(w io.Writer) error {
		_, err := w.Write([]byte("test content"))
		return err
	}, "Test message")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "test content", string(content))
}

func TestWriteWithFileError(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.txt")

	err := writeWithFile(tmpFile, func(_ io.Writer) error {
		return assert.AnError
	}, "Test message")
	require.Error(t, err)
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFileInvalidPath(t *testing.T) {
	err := writeWithFile("/nonexistent/path/file.txt", func(_ io.Writer) error {
		return nil
	}, "Test message")
	require.Error(t, err)
}

func TestWriteJSONIntegration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.json")

	err := writeWithFile(tmpFile, func(w io.Writer) error {
		return writeJSON(w, map[string]any{"name": "integration test", "count": 123})
	}, "Wrote JSON")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(content, &result))
	assert.Equal(t, "integration test", result["name"])
	assert.Equal(t, float64(123), result["count"]) // JSON numbers are float64
}

func TestWriteCSVIntegration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test.csv")

	err := writeWithFile(tmpFile, func(w io.Writer) error {
		return writeCSVWithHeader(w, []string{"name", "score"}, [][]string{{"alpha", "0.95"}, {"beta", "0.87"}})
	}, "Wrote CSV")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(t, lines, 3) // header + 2 rows
	assert.Equal(t, "name,score", lines[0])
	assert.Equal(t, "alpha,0.95", lines[1])
}
