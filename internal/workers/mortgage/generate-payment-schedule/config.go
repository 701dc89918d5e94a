// internal/workers/mortgage/generate-payment-schedule/config.go
package generatepaymentschedule

import (
	"time"

	"mortgage-workflow/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// GracePeriodDays applies when the job leaves gracePeriodDays unset.
	GracePeriodDays int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:         config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		GracePeriodDays: cfg.Schedule.GracePeriodDays,
	}
}
