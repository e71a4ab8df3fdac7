package config

import "strings"

// applyLocalDefaults makes a bare `go run ./cmd/zipsight` usable: local
// runs fall back to the in-process fake provider when no Gemini key is
// configured, and the S3 backend points at a dev minio without TLS.
func applyLocalDefaults(cfg *Config) {
	if !strings.EqualFold(strings.TrimSpace(cfg.Env), "local") {
		return
	}
	if strings.EqualFold(strings.TrimSpace(cfg.LLM.Provider), "gemini") && strings.TrimSpace(cfg.LLM.APIKey) == "" {
		cfg.LLM.Provider = "fake"
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Backend), "s3") {
		if strings.TrimSpace(cfg.Storage.S3.Endpoint) == "" {
			cfg.Storage.S3.Endpoint = "minio:9000"
		}
		cfg.Storage.S3.UseSSL = false
	}
}
