// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Lock          LockConfig              `mapstructure:"lock"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Lifecycle     LifecycleConfig         `mapstructure:"lifecycle"`
	Underwriting  UnderwritingConfig      `mapstructure:"underwriting"`
	Schedule      ScheduleConfig          `mapstructure:"schedule"`
	Ledger        LedgerConfig            `mapstructure:"ledger"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	AuditIndex  string   `mapstructure:"audit_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects the persistence backend. "memory" is meant for local runs and tests.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // postgres | memory
}

// LockConfig controls the per-application writer lock.
type LockConfig struct {
	Backend    string `mapstructure:"backend"` // redis | local
	TTL        int    `mapstructure:"ttl"`     // milliseconds
	WaitFor    int    `mapstructure:"wait_for"`
	RetryEvery int    `mapstructure:"retry_every"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LifecycleConfig holds settings for the transition engine and its integrity auditor.
type LifecycleConfig struct {
	AuditorInterval int  `mapstructure:"auditor_interval"` // milliseconds, 0 disables the loop
	AuditorPageSize int  `mapstructure:"auditor_page_size"`
	PublishEvents   bool `mapstructure:"publish_events"`
}

// UnderwritingConfig points at the versioned rule-set registry.
type UnderwritingConfig struct {
	RegistryPath   string `mapstructure:"registry_path"`
	DefaultVersion string `mapstructure:"default_version"`
}

// ScheduleConfig holds defaults for schedule generation.
type ScheduleConfig struct {
	InstallmentFee  string `mapstructure:"installment_fee"` // decimal string
	GracePeriodDays int    `mapstructure:"grace_period_days"`
}

// LedgerConfig holds the payment application policy.
type LedgerConfig struct {
	StrictOverpayment bool   `mapstructure:"strict_overpayment"`
	LateFeeFlat       string `mapstructure:"late_fee_flat"`    // decimal string
	LateFeePercent    string `mapstructure:"late_fee_percent"` // percent of amount remaining
	OverdueSweep      int    `mapstructure:"overdue_sweep"`    // milliseconds, 0 disables the loop
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NotificationConfig configures publication of lifecycle events for downstream consumers.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// ServerConfig holds the health/metrics listener.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}
