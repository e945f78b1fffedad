package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig loads configuration in layers: code defaults, embedded YAML,
// then environment variable overrides. It is expected to be called once
// during startup.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also sets the global logger level from the loaded configuration.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Feedmart.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Feedmart.System.Logging.Level)

	return cfg, nil
}

// mergeConfig overlays non-zero values from source onto dest.
func mergeConfig(dest, source *Config) {
	mergePipelineConfig(&dest.Feedmart.Pipeline, &source.Feedmart.Pipeline)
	mergeRegistryConfig(&dest.Feedmart.Registry, &source.Feedmart.Registry)
	mergeSystemConfig(&dest.Feedmart.System, &source.Feedmart.System)

	if source.Feedmart.Infrastructure.WarehouseDBRef != "" {
		dest.Feedmart.Infrastructure.WarehouseDBRef = source.Feedmart.Infrastructure.WarehouseDBRef
	}

	if source.Feedmart.Databases != nil {
		if dest.Feedmart.Databases == nil {
			dest.Feedmart.Databases = make(map[string]interface{})
		}
		for key, value := range source.Feedmart.Databases {
			dest.Feedmart.Databases[key] = value
		}
	}
}

func mergePipelineConfig(dest, source *PipelineConfig) {
	if source.ChunkSize != 0 {
		dest.ChunkSize = source.ChunkSize
	}
	if source.WorkerCount != 0 {
		dest.WorkerCount = source.WorkerCount
	}
	if source.RetryLimit != 0 {
		dest.RetryLimit = source.RetryLimit
	}
	if source.SkipLimit != 0 {
		dest.SkipLimit = source.SkipLimit
	}
	if source.IDBlockSize != 0 {
		dest.IDBlockSize = source.IDBlockSize
	}
}

func mergeRegistryConfig(dest, source *RegistryConfig) {
	if source.MaxJobs != 0 {
		dest.MaxJobs = source.MaxJobs
	}
	if source.QueueCapacity != 0 {
		dest.QueueCapacity = source.QueueCapacity
	}
	if source.RunWorkers != 0 {
		dest.RunWorkers = source.RunWorkers
	}
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
}

// loadStructFromEnv recursively overrides struct fields from environment
// variables, deriving variable names from the "yaml" tags
// (e.g. FEEDMART_PIPELINE_CHUNK_SIZE).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return exception.NewBatchError(moduleName,
				"failed to set field '"+fieldType.Name+"' from env var '"+envVarName+"'", err, false, false)
		}
	}
	return nil
}

// setField converts the string value to the field's kind and assigns it.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
