package engine

import (
	"encoding/json"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/slippage"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1Config struct {
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting cash of the run,minimum=0"`
	Symbol         string                     `yaml:"symbol" json:"symbol,omitempty" jsonschema:"title=Symbol,description=Symbol used when the data has no symbol column"`
	Interval       datasource.Interval        `yaml:"interval" json:"interval,omitempty" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1w 1M" jsonschema:"title=Interval,description=Bar interval used to annualize analyzer metrics"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker,omitempty" validate:"omitempty,oneof=interactive_broker zero_commission" jsonschema:"title=Broker,description=Commission preset. Overrides the commission section when set"`
	Commission     commission_fee.Config      `yaml:"commission" json:"commission" jsonschema:"title=Commission,description=Commission model and rounding"`
	Slippage       slippage.Config            `yaml:"slippage" json:"slippage" jsonschema:"title=Slippage,description=Slippage model applied before commission"`
	Columns        datasource.ColumnMapping   `yaml:"columns" json:"columns" jsonschema:"title=Columns,description=Mapping of data columns onto bar fields"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
	// DecimalPrecision is the number of decimals order sizes are floored to when sizing by cash.
	DecimalPrecision         int    `yaml:"decimal_precision" json:"decimal_precision" validate:"gte=0,lte=8" jsonschema:"title=Decimal Precision,minimum=0,maximum=8"`
	ForceCloseOnFinish       bool   `yaml:"force_close_on_finish" json:"force_close_on_finish" jsonschema:"title=Force close on finish,description=Close the open position at the final close"`
	ExpireOpenOrdersOnFinish bool   `yaml:"expire_open_orders_on_finish" json:"expire_open_orders_on_finish" jsonschema:"title=Expire open orders on finish"`
	EngineVersion            string `yaml:"engine_version" json:"engine_version,omitempty" jsonschema:"title=Engine Version,description=Version or semver constraint the engine must satisfy"`
}

// yamlConfig mirrors BacktestEngineV1Config with plain pointers for the optional times.
type yamlConfig struct {
	InitialCapital           float64                  `yaml:"initial_capital"`
	Symbol                   string                   `yaml:"symbol"`
	Interval                 datasource.Interval      `yaml:"interval"`
	Broker                   commission_fee.Broker    `yaml:"broker"`
	Commission               commission_fee.Config    `yaml:"commission"`
	Slippage                 slippage.Config          `yaml:"slippage"`
	Columns                  datasource.ColumnMapping `yaml:"columns"`
	StartTime                *time.Time               `yaml:"start_time,omitempty"`
	EndTime                  *time.Time               `yaml:"end_time,omitempty"`
	DecimalPrecision         int                      `yaml:"decimal_precision"`
	ForceCloseOnFinish       bool                     `yaml:"force_close_on_finish"`
	ExpireOpenOrdersOnFinish bool                     `yaml:"expire_open_orders_on_finish"`
	EngineVersion            string                   `yaml:"engine_version,omitempty"`
}

func optionalTime(value optional.Option[time.Time]) *time.Time {
	if value.IsNone() {
		return nil
	}

	t := value.Unwrap()

	return &t
}

// MarshalYAML writes the optional times as plain timestamps.
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	return yamlConfig{
		InitialCapital:           c.InitialCapital,
		Symbol:                   c.Symbol,
		Interval:                 c.Interval,
		Broker:                   c.Broker,
		Commission:               c.Commission,
		Slippage:                 c.Slippage,
		Columns:                  c.Columns,
		StartTime:                optionalTime(c.StartTime),
		EndTime:                  optionalTime(c.EndTime),
		DecimalPrecision:         c.DecimalPrecision,
		ForceCloseOnFinish:       c.ForceCloseOnFinish,
		ExpireOpenOrdersOnFinish: c.ExpireOpenOrdersOnFinish,
		EngineVersion:            c.EngineVersion,
	}, nil
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
// Missing keys keep the values of EmptyConfig.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	defaults := EmptyConfig()
	config := yamlConfig{
		InitialCapital:           defaults.InitialCapital,
		Symbol:                   defaults.Symbol,
		Interval:                 defaults.Interval,
		Broker:                   defaults.Broker,
		Commission:               defaults.Commission,
		Slippage:                 defaults.Slippage,
		Columns:                  defaults.Columns,
		StartTime:                nil,
		EndTime:                  nil,
		DecimalPrecision:         defaults.DecimalPrecision,
		ForceCloseOnFinish:       defaults.ForceCloseOnFinish,
		ExpireOpenOrdersOnFinish: defaults.ExpireOpenOrdersOnFinish,
		EngineVersion:            defaults.EngineVersion,
	}

	if err := value.Decode(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.Symbol = config.Symbol
	c.Interval = config.Interval
	c.Broker = config.Broker
	c.Commission = config.Commission
	c.Slippage = config.Slippage
	c.Columns = config.Columns
	c.DecimalPrecision = config.DecimalPrecision
	c.ForceCloseOnFinish = config.ForceCloseOnFinish
	c.ExpireOpenOrdersOnFinish = config.ExpireOpenOrdersOnFinish
	c.EngineVersion = config.EngineVersion
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// ParseConfig decodes and validates a YAML engine configuration.
func ParseConfig(content []byte) (BacktestEngineV1Config, error) {
	config := EmptyConfig()

	if err := yaml.Unmarshal(content, &config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

// Validate checks field constraints, the time window and the engine version pin.
func (c *BacktestEngineV1Config) Validate() error {
	numbers := map[string]float64{
		"initial_capital": c.InitialCapital,
		"commission.rate": c.Commission.Rate,
		"slippage.rate":   c.Slippage.Rate,
	}

	for _, name := range slices.Sorted(maps.Keys(numbers)) {
		if v := numbers[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "%s must be finite, got %v", name, v)
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_time %s is before start_time %s",
			c.EndTime.Unwrap().Format(time.RFC3339), c.StartTime.Unwrap().Format(time.RFC3339))
	}

	if c.EngineVersion != "" {
		if err := version.CheckVersionCompatibility(version.GetVersion(), c.EngineVersion); err != nil {
			return err
		}
	}

	return nil
}

// CommissionConfig merges the broker preset into the commission section.
func (c *BacktestEngineV1Config) CommissionConfig() commission_fee.Config {
	config := c.Commission
	if c.Broker != "" {
		config.Broker = c.Broker
	}

	return config
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			if strings.Contains(t.String(), "datasource.Interval") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: datasource.AllIntervals,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time, broker commission_fee.Broker) BacktestEngineV1Config {
	config := EmptyConfig()
	config.InitialCapital = 10000
	config.Broker = broker
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 0,
		Symbol:         "",
		Interval:       datasource.Interval1d,
		Broker:         "",
		Commission: commission_fee.Config{
			Broker:   "",
			Type:     commission_fee.TypePercentage,
			Rate:     0,
			Rounding: commission_fee.Rounding{Mode: commission_fee.RoundingNone, Places: 0},
		},
		Slippage: slippage.Config{
			Type:       slippage.TypeNone,
			Rate:       0,
			ClampToBar: true,
		},
		Columns:                  datasource.DefaultColumnMapping(),
		StartTime:                optional.None[time.Time](),
		EndTime:                  optional.None[time.Time](),
		DecimalPrecision:         0,
		ForceCloseOnFinish:       false,
		ExpireOpenOrdersOnFinish: false,
		EngineVersion:            "",
	}
}
