package backend

import (
	"fmt"

	"fundcountdown/internal/cache"
	"fundcountdown/internal/config"
	"fundcountdown/internal/core"
	"fundcountdown/internal/log"
	"fundcountdown/internal/services"
)

// NewFundService wires a FundService over res with a report cache sized from
// cfg. The returned LRU must be registered with a cache.Manager by the caller.
func NewFundService(cfg *config.Config, res *Result, logger *log.Logger) (*services.FundService, *cache.LRU[int64, core.FundReport], error) {
	expenseCur, err := core.ParseCurrency(cfg.DefaultExpenseCurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("default expense currency: %w", err)
	}
	inputCur, err := core.ParseCurrency(cfg.DefaultInputCurrency)
	if err != nil {
		return nil, nil, fmt.Errorf("default input currency: %w", err)
	}

	reports := cache.NewLRU[int64, core.FundReport](cfg.CacheSize, cfg.CacheTTL)
	svc := services.NewFundService(res.Store,
		services.WithReportCache(reports),
		services.WithPublisher(res.Publisher()),
		services.WithLogger(logger),
		services.WithDefaultCurrencies(expenseCur, inputCur),
	)
	return svc, reports, nil
}
