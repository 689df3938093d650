package engine

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
)

// ResultFolder lays results out as <results>/<strategy>/<config>/[<start>_<end>]/<data>.
// A run without a config file uses "default" and one without a data file uses the configured symbol.
func ResultFolder(resultsFolder string, strategyName string, configPath string, dataPath string, config BacktestEngineV1Config) string {
	segments := []string{resultsFolder, strategyName, stem(configPath, "default")}

	if config.StartTime.IsSome() || config.EndTime.IsSome() {
		segments = append(segments, boundLabel(config.StartTime)+"_"+boundLabel(config.EndTime))
	}

	fallback := config.Symbol
	if fallback == "" {
		fallback = "data"
	}

	return filepath.Join(append(segments, stem(dataPath, fallback))...)
}

func stem(path string, fallback string) string {
	if path == "" {
		return fallback
	}

	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func boundLabel(bound optional.Option[time.Time]) string {
	if bound.IsNone() {
		return "all"
	}

	return bound.Unwrap().Format("20060102")
}

// nullable turns an optional value into a SQL argument, nil for None.
func nullable[T any](value optional.Option[T]) any {
	if value.IsNone() {
		return nil
	}

	return value.Unwrap()
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}

	return value
}
