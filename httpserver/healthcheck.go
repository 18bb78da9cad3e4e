package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// allowedEndpoints is the YAML allowlist shape: a flat list of host
// names the enclave is expected to reach.
type allowedEndpoints struct {
	Endpoints []string `yaml:"endpoints"`
}

// HandleHealthCheck reports the enclave's public key, the
// reachability of every allowlisted endpoint, and the configuration
// status.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthCheckResponse{
		PK:              h.keypair.PublicKeyHex(),
		EndpointsStatus: h.probeEndpoints(r.Context()),
		ConfigStatus:    h.configStatus(),
	})
}

// HandleConfig echoes the non-sensitive configuration for debugging.
// Variable names and presence only; values never leave the process.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{ConfigStatus: h.configStatus()}
	if err := h.validateConfig(); err != nil {
		resp.ValidationError = err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) validateConfig() error {
	for _, key := range h.cfg.RequiredVars {
		if !h.env.Has(key) {
			return fmt.Errorf("required variable %s is not configured", key)
		}
	}
	return nil
}

func (h *Handler) configStatus() ConfigStatus {
	required := make(map[string]bool, len(h.cfg.RequiredVars))
	for _, key := range h.cfg.RequiredVars {
		required[key] = h.env.Has(key)
	}

	return ConfigStatus{
		ConfigValid: h.validateConfig() == nil,
		ConfigInfo: ConfigInfo{
			BundlePath:     h.cfg.BundlePath,
			RuntimePath:    h.cfg.RuntimePath,
			RequiredVars:   required,
			ConfiguredVars: h.env.Keys(),
		},
	}
}

// probeEndpoints checks connectivity to every allowlisted host. AWS
// hosts expose a /ping route whose body must say "healthy"; everything
// else just needs a 2xx. Probe failures mark the endpoint unreachable,
// they never fail the health check itself.
func (h *Handler) probeEndpoints(ctx context.Context) map[string]bool {
	status := make(map[string]bool)
	if h.cfg.AllowedEndpointsFile == "" {
		return status
	}

	raw, err := os.ReadFile(h.cfg.AllowedEndpointsFile)
	if err != nil {
		h.log.Info("Failed to read allowed endpoints file", "file", h.cfg.AllowedEndpointsFile, "err", err)
		return status
	}

	var allowed allowedEndpoints
	if err := yaml.Unmarshal(raw, &allowed); err != nil {
		h.log.Info("Failed to parse allowed endpoints file", "file", h.cfg.AllowedEndpointsFile, "err", err)
		return status
	}

	client := &http.Client{Timeout: 5 * time.Second}
	for _, endpoint := range allowed.Endpoints {
		status[endpoint] = h.probeEndpoint(ctx, client, endpoint)
		h.log.Info("Checked endpoint", "endpoint", endpoint, "reachable", status[endpoint])
	}
	return status
}

func (h *Handler) probeEndpoint(ctx context.Context, client *http.Client, endpoint string) bool {
	isAWS := strings.Contains(endpoint, ".amazonaws.com")

	url := "https://" + endpoint
	if isAWS {
		url += "/ping"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		h.log.Info("Failed to connect to endpoint", "endpoint", endpoint, "err", err)
		return false
	}
	defer resp.Body.Close()

	if isAWS {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		return strings.Contains(strings.ToLower(string(body)), "healthy")
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
