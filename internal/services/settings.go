package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order_engine/internal/config"
	"order_engine/internal/models"
	"order_engine/internal/pricing"
	"order_engine/internal/repository"
)

// OrderSettings is the validated, per-operation view of the store's
// settings-driven configuration.
type OrderSettings struct {
	RateLimitEnabled   bool
	AnonymousMaxOrders int
	AnonymousWindow    time.Duration
	PricesIncludeTax   bool
	TaxRates           []pricing.Rate
}

func (s OrderSettings) Validate() error {
	if s.RateLimitEnabled {
		if s.AnonymousMaxOrders <= 0 {
			return fmt.Errorf("anonymous max orders must be positive, got %d", s.AnonymousMaxOrders)
		}
		if s.AnonymousWindow <= 0 {
			return fmt.Errorf("anonymous window must be positive, got %s", s.AnonymousWindow)
		}
	}
	for _, r := range s.TaxRates {
		if r.Percent.IsNegative() {
			return fmt.Errorf("tax rate %q must not be negative", r.Name)
		}
	}
	return nil
}

type SettingsLoader interface {
	Load(ctx context.Context) (OrderSettings, error)
}

type settingsLoader struct {
	financialRepo repository.FinancialRepository
	defaults      config.OrderDefaults
}

func NewSettingsLoader(financialRepo repository.FinancialRepository, defaults config.OrderDefaults) SettingsLoader {
	return &settingsLoader{financialRepo: financialRepo, defaults: defaults}
}

// Load reads the store settings row (falling back to env defaults) and the
// enabled tax rates.
func (l *settingsLoader) Load(ctx context.Context) (OrderSettings, error) {
	settings := OrderSettings{
		RateLimitEnabled:   true,
		AnonymousMaxOrders: l.defaults.AnonymousMaxOrders,
		AnonymousWindow:    time.Duration(l.defaults.AnonymousWindowHours) * time.Hour,
		PricesIncludeTax:   l.defaults.PricesIncludeTax,
	}

	stored, err := l.financialRepo.GetSettings(ctx)
	switch {
	case err == nil:
		settings.RateLimitEnabled = stored.RateLimitEnabled
		if stored.AnonymousMaxOrders > 0 {
			settings.AnonymousMaxOrders = stored.AnonymousMaxOrders
		}
		if stored.AnonymousWindowHours > 0 {
			settings.AnonymousWindow = time.Duration(stored.AnonymousWindowHours) * time.Hour
		}
		settings.PricesIncludeTax = stored.PricesIncludeTax
	case errors.Is(err, repository.ErrNotFound):
	default:
		return OrderSettings{}, fmt.Errorf("failed to get store settings: %w", err)
	}

	rates, err := l.financialRepo.GetEnabledTaxRates(ctx)
	if err != nil {
		return OrderSettings{}, fmt.Errorf("failed to get tax rates: %w", err)
	}
	settings.TaxRates = toPricingRates(rates)

	if err := settings.Validate(); err != nil {
		return OrderSettings{}, fmt.Errorf("invalid store settings: %w", err)
	}
	return settings, nil
}

func toPricingRates(rates []models.TaxRate) []pricing.Rate {
	out := make([]pricing.Rate, 0, len(rates))
	for _, r := range rates {
		out = append(out, pricing.Rate{
			ID:        r.ID,
			Name:      r.Name,
			Percent:   r.Rate,
			AppliesTo: r.AppliesTo,
			SortOrder: r.SortOrder,
		})
	}
	return out
}
