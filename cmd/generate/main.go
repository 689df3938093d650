package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"gopkg.in/yaml.v3"
)

const (
	configDir        = "./config"
	engineSchemaName = "backtest-engine-v1-config.json"
	engineSampleName = "backtest-engine-v1-config.yaml"
	strategiesDir    = "strategies"
)

func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}

func validatePaths(schemaPath string, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(schemaName string) error {
	if schemaName == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if filepath.Ext(schemaName) != ".json" {
		return fmt.Errorf("schema name %s must have .json extension", schemaName)
	}

	return nil
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// generateSchemaFile writes the engine config schema. It is always regenerated.
func generateSchemaFile(config engine.BacktestEngineV1Config, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	return writeFile(schemaPath, []byte(schemaJSON))
}

// generateSampleConfig writes config as YAML pointing at schemaName, unless the file exists.
func generateSampleConfig(config any, samplePath string, schemaName string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	return writeFile(samplePath, append([]byte(getSchemaReference(schemaName)), yamlBytes...))
}

// generateStrategyFiles writes a schema and a default config for every built-in strategy.
func generateStrategyFiles(registry *strategy.Registry, dir string) error {
	for _, name := range registry.Names() {
		def, err := registry.Get(name)
		if err != nil {
			return err
		}

		schema, err := def.Schema()
		if err != nil {
			return fmt.Errorf("failed to generate %s schema: %w", name, err)
		}

		schemaName := name + ".json"
		if err := writeFile(filepath.Join(dir, schemaName), []byte(schema)); err != nil {
			return err
		}

		defaults, err := registry.DefaultConfig(name)
		if err != nil {
			return err
		}

		if err := generateSampleConfig(defaults, filepath.Join(dir, name+".yaml"), schemaName); err != nil {
			return err
		}
	}

	return nil
}

func run(dir string) error {
	schemaPath := filepath.Join(dir, engineSchemaName)
	sampleConfigPath := filepath.Join(dir, engineSampleName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	if err := validateSchemaName(engineSchemaName); err != nil {
		return err
	}

	config := engine.EmptyConfig()

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	if err := generateSampleConfig(config, sampleConfigPath, engineSchemaName); err != nil {
		return err
	}

	return generateStrategyFiles(strategy.DefaultRegistry(), filepath.Join(dir, strategiesDir))
}

func main() {
	if err := run(configDir); err != nil {
		log.Fatalf("Failed to generate config files: %v", err)
	}

	log.Printf("Schemas successfully generated in %s", strings.TrimPrefix(configDir, "./"))
}
