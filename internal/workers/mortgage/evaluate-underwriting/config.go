// internal/workers/mortgage/evaluate-underwriting/config.go
package evaluateunderwriting

import (
	"time"

	"mortgage-workflow/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// RulesVersion pins the rule set when the job does not name one; empty uses the registry default.
	RulesVersion string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		RulesVersion: cfg.Underwriting.DefaultVersion,
	}
}
