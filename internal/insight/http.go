package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/schema"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultBaseBackoff = 500 * time.Millisecond
	maxResponseBytes   = 1 << 20
	maxPromptDeps      = 40
	maxPromptKeyFiles  = 10
)

const systemPrompt = `You review software repositories. Reply with a single JSON object with the keys ` +
	`"summary" (two or three sentences), "highlights" (array of short strings) and ` +
	`"recommendations" (array of short strings). Do not add any other text.`

// HTTPProvider asks an OpenAI-compatible chat completion endpoint for insights.
type HTTPProvider struct {
	endpoint    string
	model       string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger
}

var _ contract.InsightProvider = &HTTPProvider{} // Compile-time check

// NewHTTPProvider builds a provider from validated settings.
func NewHTTPProvider(cfg contract.InsightConfig, logger *zap.Logger) *HTTPProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = contract.DefaultInsightTimeout
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = contract.DefaultInsightRate
	}
	return &HTTPProvider{
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:       model,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: defaultBaseBackoff,
		logger:      logger,
	}
}

// Name returns the registry key.
func (p *HTTPProvider) Name() string { return HTTPName }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// narrative is the JSON object the model is asked to return.
type narrative struct {
	Summary         string   `json:"summary"`
	Highlights      []string `json:"highlights"`
	Recommendations []string `json:"recommendations"`
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Generate sends one chat completion per attempt and parses the reply.
func (p *HTTPProvider) Generate(ctx context.Context, a *schema.RepositoryAnalysis) (*schema.Insights, error) {
	if a == nil {
		return nil, fmt.Errorf("no analysis to describe")
	}
	prompt, err := buildPrompt(a)
	if err != nil {
		return nil, err
	}
	req := chatRequest{
		Model:       p.model,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := p.doRequest(ctx, req)
		if err == nil {
			return toInsights(resp)
		}
		lastErr = err
		var retryable *retryableError
		if !errors.As(err, &retryable) || ctx.Err() != nil {
			return nil, err
		}
		p.logger.Debug("insight request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (p *HTTPProvider) doRequest(ctx context.Context, req chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("insight request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{err: errors.New("rate limited (429)")}
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("empty response from API")
	}
	return &out, nil
}

// toInsights accepts either the requested JSON object or plain prose.
func toInsights(resp *chatResponse) (*schema.Insights, error) {
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(strings.TrimSuffix(content, "```"), "```json")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty completion")
	}

	insights := &schema.Insights{
		Available: true,
		Provider:  HTTPName,
		Usage: schema.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}
	var n narrative
	if err := json.Unmarshal([]byte(content), &n); err == nil && n.Summary != "" {
		insights.Summary = n.Summary
		insights.Highlights = n.Highlights
		insights.Recommendations = n.Recommendations
	} else {
		insights.Summary = content
	}
	if insights.Usage.Total == 0 {
		insights.Usage.Total = insights.Usage.Prompt + insights.Usage.Completion
	}
	return insights, nil
}

// buildPrompt condenses the analysis into the user message.
func buildPrompt(a *schema.RepositoryAnalysis) (string, error) {
	keyFiles := make([]string, 0, maxPromptKeyFiles)
	for _, kf := range a.Structure.KeyFiles {
		if len(keyFiles) == maxPromptKeyFiles {
			break
		}
		keyFiles = append(keyFiles, kf.Path)
	}
	facts := struct {
		Name          string         `json:"name"`
		Languages     []string       `json:"languages"`
		Frameworks    []string       `json:"frameworks"`
		Dependencies  []string       `json:"dependencies"`
		FileCount     int            `json:"file_count"`
		TotalLines    int            `json:"total_lines"`
		LanguageLines map[string]int `json:"language_lines"`
		Functions     int            `json:"functions"`
		Classes       int            `json:"classes"`
		AvgComplexity float64        `json:"average_complexity"`
		KeyFiles      []string       `json:"key_files"`
	}{
		Name:          a.Name,
		Languages:     a.Languages,
		Frameworks:    a.Frameworks,
		Dependencies:  a.Dependencies.Production[:min(len(a.Dependencies.Production), maxPromptDeps)],
		FileCount:     a.FileCount,
		TotalLines:    a.CodeAnalysis.TotalLines,
		LanguageLines: a.CodeAnalysis.LanguageLines,
		Functions:     a.CodeAnalysis.FunctionCount,
		Classes:       a.CodeAnalysis.ClassCount,
		AvgComplexity: a.CodeAnalysis.Complexity.AveragePerFile,
		KeyFiles:      keyFiles,
	}
	data, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis: %w", err)
	}
	return "Describe this repository:\n" + string(data), nil
}
