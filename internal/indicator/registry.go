package indicator

import (
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// IndicatorRegistry holds the indicators of one run in registration order.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	RegisterIndicatorAs(name string, indicator Indicator) error
	GetIndicator(name string) (Indicator, error)
	ListIndicators() []string
	RemoveIndicator(name string) error
	UpdateAll(bars datasource.BarSequence) error
}

// IndicatorRegistryV1 keeps indicators in a map for lookup and a slice for ordering.
type IndicatorRegistryV1 struct {
	indicators map[string]Indicator
	order      []string
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates a new indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[string]Indicator),
		order:      nil,
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator adds an indicator under its own name.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	return r.RegisterIndicatorAs(indicator.Name(), indicator)
}

// RegisterIndicatorAs adds an indicator under an alias such as "sma_fast".
func (r *IndicatorRegistryV1) RegisterIndicatorAs(name string, indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator
	r.order = append(r.order, name)

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *IndicatorRegistryV1) GetIndicator(name string) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns the registered names in registration order.
func (r *IndicatorRegistryV1) ListIndicators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return nil
}

// UpdateAll updates every indicator for the current cursor, in registration order.
func (r *IndicatorRegistryV1) UpdateAll(bars datasource.BarSequence) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if err := r.indicators[name].Update(bars); err != nil {
			return errors.Wrapf(errors.ErrCodeUnknown, err, "failed to update indicator %s", name)
		}
	}

	return nil
}
