package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huangsam/repolens/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the repolens MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents analyze, search and relate
repositories via standard tools.

Logs go to stderr so stdout stays reserved for the protocol. With --metrics-addr
a Prometheus /metrics endpoint is served alongside.

Examples:
  repolens mcp
  repolens mcp --metrics-addr :9090 --log-level info`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if cfg.MetricsAddr != "" {
			stop := serveMetrics(cfg.MetricsAddr)
			defer stop()
		}
		return mcp.StartMCPServer(rootCtx, cfg, orchestrator)
	},
}

// serveMetrics exposes the orchestrator registry until the returned stop function runs.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
