package grounding

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"nexus/internal/types"
)

// UnknownCountryError is returned for names with no known country code.
type UnknownCountryError struct{ Name string }

func (e *UnknownCountryError) Error() string { return fmt.Sprintf("grounding: unknown country %q", e.Name) }

// Source supplies auxiliary factual data. Implementations never fail the
// whole call because one upstream failed; partial results carry Incomplete.
type Source interface {
	Grounding(ctx context.Context, region string) (*types.GroundingData, error)
	EconomicData(ctx context.Context, country string) (types.EconomicData, error)
}

// Fetcher combines the World Bank and Comtrade clients and caches complete
// results for CacheTTL.
type Fetcher struct {
	WorldBank *WorldBank
	Comtrade  *Comtrade
	Logger    *log.Logger

	grounding *expirable.LRU[string, *types.GroundingData]
	economic  *expirable.LRU[string, types.EconomicData]
}

const (
	CacheTTL   = 24 * time.Hour
	cacheSize  = 256
	topExports = 5
)

func NewFetcher(wb *WorldBank, ct *Comtrade, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{
		WorldBank: wb,
		Comtrade:  ct,
		Logger:    logger,
		grounding: expirable.NewLRU[string, *types.GroundingData](cacheSize, nil, CacheTTL),
		economic:  expirable.NewLRU[string, types.EconomicData](cacheSize, nil, CacheTTL),
	}
}

// Grounding fetches GDP and top exports for the country named by region.
func (f *Fetcher) Grounding(ctx context.Context, region string) (*types.GroundingData, error) {
	name := CountryFromRegion(region)
	c, ok := lookupCountry(name)
	if !ok {
		return nil, &UnknownCountryError{Name: name}
	}
	if g, ok := f.grounding.Get(c.iso3); ok {
		return g, nil
	}

	out := &types.GroundingData{Country: c.iso3}
	var gdpErr, exportErr error
	var g errgroup.Group
	g.Go(func() error {
		out.GDP, gdpErr = f.WorldBank.Latest(ctx, c.iso3, IndicatorGDP)
		return nil
	})
	g.Go(func() error {
		if f.Comtrade == nil {
			return nil
		}
		out.TopExports, exportErr = f.Comtrade.TopExports(ctx, c.m49, topExports)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for src, err := range map[string]error{"gdp": gdpErr, "exports": exportErr} {
		if err != nil {
			f.Logger.Printf("grounding %s for %s failed: %v", src, c.iso3, err)
			out.Incomplete = true
		}
	}
	if !out.Incomplete {
		f.grounding.Add(c.iso3, out)
	}
	return out, nil
}

// EconomicData fetches the latest GDP, population, inflation and FDI figures.
// Each indicator is fetched independently and settles on its own.
func (f *Fetcher) EconomicData(ctx context.Context, country string) (types.EconomicData, error) {
	c, ok := lookupCountry(country)
	if !ok {
		return types.EconomicData{}, &UnknownCountryError{Name: country}
	}
	if e, ok := f.economic.Get(c.iso3); ok {
		return e, nil
	}

	indicators := []string{IndicatorGDP, IndicatorPopulation, IndicatorInflation, IndicatorFDI}
	values := make([]*types.Indicator, len(indicators))
	errs := make([]error, len(indicators))
	var g errgroup.Group
	for i, ind := range indicators {
		g.Go(func() error {
			values[i], errs[i] = f.WorldBank.Latest(ctx, c.iso3, ind)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return types.EconomicData{}, err
	}

	out := types.EconomicData{GDP: values[0], Population: values[1], Inflation: values[2], FDI: values[3]}
	for i, err := range errs {
		if err != nil {
			f.Logger.Printf("economic data %s for %s failed: %v", indicators[i], c.iso3, err)
			out.Incomplete = true
		}
	}
	if !out.Incomplete {
		f.economic.Add(c.iso3, out)
	}
	return out, nil
}

// Static is an offline Source that never has data.
type Static struct{}

func (Static) Grounding(context.Context, string) (*types.GroundingData, error) { return nil, nil }

func (Static) EconomicData(context.Context, string) (types.EconomicData, error) {
	return types.EconomicData{}, nil
}
