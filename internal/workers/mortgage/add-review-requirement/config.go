// internal/workers/mortgage/add-review-requirement/config.go
package addreviewrequirement

import (
	"time"

	"mortgage-workflow/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
