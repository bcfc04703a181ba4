package contract

import (
	"context"
	"io"

	"github.com/huangsam/repolens/schema"
	"github.com/stretchr/testify/mock"
)

// MockScanner is a mock implementation of Scanner for testing.
type MockScanner struct {
	mock.Mock
}

var _ Scanner = &MockScanner{} // Compile-time check

// Scan implements the Scanner interface.
func (m *MockScanner) Scan(ctx context.Context, path string, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, error) {
	args := m.Called(ctx, path, opts)
	analysis, _ := args.Get(0).(*schema.RepositoryAnalysis)
	return analysis, args.Error(1)
}

// MockPathValidator is a mock implementation of PathValidator for testing.
type MockPathValidator struct {
	mock.Mock
}

var _ PathValidator = &MockPathValidator{} // Compile-time check

// Validate implements the PathValidator interface.
func (m *MockPathValidator) Validate(ctx context.Context, path string) (PathInfo, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(PathInfo), args.Error(1)
}

// MockInsightProvider is a mock implementation of InsightProvider for testing.
type MockInsightProvider struct {
	mock.Mock
}

var _ InsightProvider = &MockInsightProvider{} // Compile-time check

// Name implements the InsightProvider interface.
func (m *MockInsightProvider) Name() string {
	return m.Called().String(0)
}

// Generate implements the InsightProvider interface.
func (m *MockInsightProvider) Generate(ctx context.Context, analysis *schema.RepositoryAnalysis) (*schema.Insights, error) {
	args := m.Called(ctx, analysis)
	insights, _ := args.Get(0).(*schema.Insights)
	return insights, args.Error(1)
}

// MockExportRenderer is a mock implementation of ExportRenderer for testing.
type MockExportRenderer struct {
	mock.Mock
}

var _ ExportRenderer = &MockExportRenderer{} // Compile-time check

// Render implements the ExportRenderer interface.
func (m *MockExportRenderer) Render(w io.Writer, format schema.ExportFormat, payload any) error {
	return m.Called(w, format, payload).Error(0)
}

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	callArgs := []any{ctx, repoPath}
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	ret := m.Called(callArgs...)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// HeadRevision implements the GitClient interface.
func (m *MockGitClient) HeadRevision(ctx context.Context, repoPath string) (string, error) {
	args := m.Called(ctx, repoPath)
	return args.String(0), args.Error(1)
}

// WorktreeStatus implements the GitClient interface.
func (m *MockGitClient) WorktreeStatus(ctx context.Context, repoPath string) ([]byte, error) {
	args := m.Called(ctx, repoPath)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

// MockIndexStore is a mock implementation of IndexStore for testing.
type MockIndexStore struct {
	mock.Mock
}

var _ IndexStore = &MockIndexStore{} // Compile-time check

// Save implements the IndexStore interface.
func (m *MockIndexStore) Save(record schema.RepositoryRecord) error {
	return m.Called(record).Error(0)
}

// Delete implements the IndexStore interface.
func (m *MockIndexStore) Delete(repoID string) error {
	return m.Called(repoID).Error(0)
}

// LoadAll implements the IndexStore interface.
func (m *MockIndexStore) LoadAll() ([]schema.RepositoryRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.RepositoryRecord)
	return records, args.Error(1)
}

// LoadFingerprints implements the IndexStore interface.
func (m *MockIndexStore) LoadFingerprints() ([]schema.FingerprintRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.FingerprintRecord)
	return records, args.Error(1)
}

// Clear implements the IndexStore interface.
func (m *MockIndexStore) Clear() error {
	return m.Called().Error(0)
}

// GetStatus implements the IndexStore interface.
func (m *MockIndexStore) GetStatus() (schema.IndexStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.IndexStatus), args.Error(1)
}

// Close implements the IndexStore interface.
func (m *MockIndexStore) Close() error {
	return m.Called().Error(0)
}
