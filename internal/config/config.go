package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig contains connection settings for the Redis broker used
// by the task queue and the health checks.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"   validate:"gte=0"`
}

// TaskConfig contains settings for the background worker and the
// message processing task.
type TaskConfig struct {
	// Concurrency is the number of concurrent workers the queue server runs.
	Concurrency int `mapstructure:"concurrency" validate:"required,gt=0"`

	// Queue is the queue name tasks are enqueued to.
	Queue string `mapstructure:"queue" validate:"required"`

	// MaxRetry bounds how often the queue library retries a failed task.
	MaxRetry int `mapstructure:"max_retry" validate:"gte=0"`

	// ProcessingDelaySeconds is the simulated work duration of the
	// message processing task.
	ProcessingDelaySeconds int `mapstructure:"processing_delay_seconds" validate:"gte=0"`

	// PeriodicInterval is the cron spec for the periodic system message
	// task (e.g. "@every 1m"). Empty disables the scheduler.
	PeriodicInterval string `mapstructure:"periodic_interval"`
}
