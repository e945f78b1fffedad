package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// bindDatabaseConfig decodes a raw YAML map into a typed DatabaseConfig.
// The decoder keys on the `yaml` tag so that the same struct serves both
// direct YAML unmarshaling and map binding.
func bindDatabaseConfig(raw interface{}, target *DatabaseConfig) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   target,
		// WeaklyTypedInput allows converting strings to numbers, bools, etc.
		WeaklyTypedInput: true,
		TagName:          "yaml",
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to bind database configuration: %w", err)
	}

	return nil
}
