// internal/workers/mortgage/attempt-transition/config.go
package attempttransition

import (
	"time"

	"mortgage-workflow/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// DefaultTriggeredBy is recorded when the process does not name an actor.
	DefaultTriggeredBy string
}

func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout:            config.GetDuration(wc.Timeout),
		DefaultTriggeredBy: "camunda",
	}
}
