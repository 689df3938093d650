// Package strategy holds the built-in strategies and the registry the CLI resolves them from.
package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Factory builds a strategy from its YAML configuration. An empty config selects the defaults.
type Factory func(config []byte) (runtime.Strategy, error)

// Definition describes a strategy that can be created by name.
type Definition struct {
	Name        string
	Description string
	New         Factory
	// Schema returns the JSON schema of the strategy configuration.
	Schema func() (string, error)
	// Defaults returns the configuration used when none is given.
	Defaults func() any
}

// Registry maps strategy names to their definitions.
type Registry struct {
	definitions map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// DefaultRegistry creates a registry holding every built-in strategy.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, def := range []Definition{
		smaCloseCrossDefinition(),
		smaCrossoverDefinition(),
		smaLimitGuardDefinition(),
	} {
		// built-in names are unique
		_ = r.Register(def)
	}

	return r
}

// Register adds a definition. Names must be unique.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.New == nil {
		return errors.New(errors.ErrCodeMissingParameter, "strategy definition needs a name and a factory")
	}

	if _, exists := r.definitions[def.Name]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy %s is already registered", def.Name)
	}

	r.definitions[def.Name] = def

	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, error) {
	def, ok := r.definitions[name]
	if !ok {
		return Definition{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	return def, nil
}

// New creates the strategy registered under name from its YAML config.
func (r *Registry) New(name string, config []byte) (runtime.Strategy, error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return def.New(config)
}

// DefaultConfig returns the default configuration of the strategy registered under name.
func (r *Registry) DefaultConfig(name string) (any, error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	if def.Defaults == nil {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s has no default config", name)
	}

	return def.Defaults(), nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.definitions))
}

// define builds a Definition whose factory decodes and validates a config of type T.
func define[T any](name string, description string, defaults func() T, build func(T) runtime.Strategy) Definition {
	return Definition{
		Name:        name,
		Description: description,
		New: func(content []byte) (runtime.Strategy, error) {
			config := defaults()
			if err := parseConfig(content, &config); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid %s config", name)
			}

			return build(config), nil
		},
		Schema: func() (string, error) {
			return ToJSONSchema(defaults())
		},
		Defaults: func() any {
			return defaults()
		},
	}
}

func parseConfig[T any](content []byte, config *T) error {
	if len(bytes.TrimSpace(content)) > 0 {
		if err := yaml.Unmarshal(content, config); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	return nil
}

// ToJSONSchema converts a config struct to a JSON schema keyed by its yaml field names.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.FieldNameTag = "yaml"
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// logOrder records terminal order statuses in the run log. Pending statuses are skipped.
func logOrder(ctx runtime.Context, order types.Order) error {
	if order.Status.IsPending() {
		return nil
	}

	fields := map[string]string{
		"order_id": fmt.Sprint(order.ID),
		"side":     string(order.Side),
		"status":   string(order.Status),
	}

	if order.Status != types.OrderStatusCompleted {
		fields["reason"] = order.Reason

		return ctx.Log(types.LogLevelWarn, "order not executed", fields)
	}

	executed := order.Executed.Unwrap()
	fields["price"] = fmt.Sprintf("%.2f", executed.Price)
	fields["size"] = fmt.Sprint(executed.Size)
	fields["value"] = fmt.Sprintf("%.2f", executed.Price*executed.Size)

	return ctx.Log(types.LogLevelInfo, "order executed", fields)
}

// logTrade records gross and net profit of closed trades.
func logTrade(ctx runtime.Context, trade types.Trade) error {
	if !trade.IsClosed() {
		return nil
	}

	return ctx.Log(types.LogLevelInfo, "trade closed", map[string]string{
		"trade_id":   fmt.Sprint(trade.ID),
		"pnl":        fmt.Sprintf("%.2f", trade.PnL),
		"pnl_net":    fmt.Sprintf("%.2f", trade.PnLNet),
		"commission": fmt.Sprintf("%.2f", trade.Commission),
	})
}

// orderSize returns the configured fixed size, or a share of the affordable size at price
// floored to the engine's size precision.
func orderSize(ctx runtime.Context, size float64, percent float64, price float64) float64 {
	if percent > 0 {
		return utils.RoundToDecimalPrecision(ctx.MaxAffordableSize(price)*percent, ctx.SizePrecision())
	}

	return size
}
