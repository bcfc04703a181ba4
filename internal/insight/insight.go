// Package insight has the narrative providers attached to an analysis when
// LLM analysis is requested. The summary provider works offline; the http
// provider talks to an OpenAI-compatible chat completion endpoint.
package insight

import (
	"go.uber.org/zap"

	"github.com/huangsam/repolens/internal/contract"
)

// Provider names as accepted by the llm-provider setting.
const (
	SummaryName = "summary"
	HTTPName    = "http"
)

// Providers returns every provider that cfg can support. The http provider
// is only included when a base URL is configured.
func Providers(cfg contract.InsightConfig, logger *zap.Logger) []contract.InsightProvider {
	providers := []contract.InsightProvider{NewSummaryProvider()}
	if cfg.BaseURL == "" {
		return providers
	}
	return append(providers, NewHTTPProvider(cfg, logger))
}
