// Package config provides structures and utilities for loading the feedmart
// service configuration from embedded YAML, a .env file, and environment
// variable overrides.
package config

// EmbeddedConfig holds the raw bytes of the configuration file, typically
// supplied from an embedded source in main.go.
type EmbeddedConfig []byte

// PipelineConfig holds the chunk-oriented pipeline tuning knobs.
type PipelineConfig struct {
	// ChunkSize is the number of records per transaction boundary.
	ChunkSize int `yaml:"chunk_size"`
	// WorkerCount is the number of concurrent chunk workers per run.
	WorkerCount int `yaml:"worker_count"`
	// RetryLimit is the maximum number of attempts for a retryable operation.
	RetryLimit int `yaml:"retry_limit"`
	// SkipLimit is the maximum number of skippable failures per run. -1 means unbounded.
	SkipLimit int `yaml:"skip_limit"`
	// IDBlockSize is the number of fact identifiers reserved from the durable
	// sequence per allocation round-trip.
	IDBlockSize int `yaml:"id_block_size"`
}

// RegistryConfig holds job registry and submission settings.
type RegistryConfig struct {
	// MaxJobs is the registry size at which the oldest finished entries are evicted.
	MaxJobs int `yaml:"max_jobs"`
	// QueueCapacity is the capacity of the bounded run submission queue.
	QueueCapacity int `yaml:"queue_capacity"`
	// RunWorkers is the number of runs executed concurrently.
	RunWorkers int `yaml:"run_workers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// PoolConfig holds connection pool settings for a database connection.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes" mapstructure:"conn_max_lifetime_minutes"`
}

// DatabaseConfig describes a single named database connection.
type DatabaseConfig struct {
	Type     string     `yaml:"type" mapstructure:"type"`
	Host     string     `yaml:"host" mapstructure:"host"`
	Port     int        `yaml:"port" mapstructure:"port"`
	Database string     `yaml:"database" mapstructure:"database"`
	User     string     `yaml:"user" mapstructure:"user"`
	Password string     `yaml:"password" mapstructure:"password"`
	Sslmode  string     `yaml:"sslmode" mapstructure:"sslmode"`
	Pool     PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// WarehouseDBRef is the name of the database connection used by the warehouse repository.
	WarehouseDBRef string `yaml:"warehouse_db_ref"`
}

// FeedmartConfig holds all configuration under the "feedmart" top-level key.
type FeedmartConfig struct {
	Pipeline       PipelineConfig       `yaml:"pipeline"`
	Registry       RegistryConfig       `yaml:"registry"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// Databases holds raw per-connection settings keyed by connection name.
	// Entries are decoded into DatabaseConfig on demand; see DatabaseConfigFor.
	Databases map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire service configuration.
type Config struct {
	Feedmart FeedmartConfig `yaml:"feedmart"`
}

// NewConfig returns a new Config populated with default values.
func NewConfig() *Config {
	return &Config{
		Feedmart: FeedmartConfig{
			Pipeline: PipelineConfig{
				ChunkSize:   200,
				WorkerCount: 4,
				RetryLimit:  3,
				SkipLimit:   -1,
				IDBlockSize: 1000,
			},
			Registry: RegistryConfig{
				MaxJobs:       100,
				QueueCapacity: 8,
				RunWorkers:    2,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Infrastructure: InfrastructureConfig{
				WarehouseDBRef: "warehouse",
			},
			Databases: map[string]interface{}{},
		},
	}
}

// DatabaseConfigFor decodes the named raw connection entry into a typed
// DatabaseConfig.
func (c *Config) DatabaseConfigFor(name string) (DatabaseConfig, error) {
	var dbCfg DatabaseConfig
	raw, ok := c.Feedmart.Databases[name]
	if !ok {
		return dbCfg, &MissingDatabaseError{Name: name}
	}
	if err := bindDatabaseConfig(raw, &dbCfg); err != nil {
		return dbCfg, err
	}
	return dbCfg, nil
}

// MissingDatabaseError reports a database connection name with no configuration.
type MissingDatabaseError struct {
	Name string
}

func (e *MissingDatabaseError) Error() string {
	return "database configuration '" + e.Name + "' not found"
}
