package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	contextutils "satprep/internal/utils"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthCommand probes a running server's /health endpoint
func HealthCommand(_ *Env) *cobra.Command {
	var baseURL string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server's health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{
				Transport: otelhttp.NewTransport(http.DefaultTransport),
				Timeout:   timeout,
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
			if err != nil {
				return contextutils.WrapError(contextutils.ErrInvalidInput, err.Error())
			}

			resp, err := client.Do(req)
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "health check failed: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "unreadable health response: %v", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", resp.Status, body["status"])
			if resp.StatusCode != http.StatusOK {
				return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "server reported %s", resp.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}
