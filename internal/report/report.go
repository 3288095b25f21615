// Package report computes the fixed aggregate battery over a countries
// snapshot and renders it for humans or machines.
package report

import (
	"context"
	"errors"
	"fmt"

	"countryreport/internal/domain"
)

// Row limits of the ranked sections.
const (
	TopAreaLimit    = 10
	TopDensityLimit = 5
)

// ErrNoSnapshot is returned when the countries table was never loaded.
var ErrNoSnapshot = errors.New("no countries snapshot loaded")

// Querier is the read-only side of domain.CountryStore.
type Querier interface {
	HasSnapshot(ctx context.Context) (bool, error)
	CountAll(ctx context.Context) (int, error)
	AveragePopulationByRegion(ctx context.Context) ([]domain.RegionAverage, error)
	RegionWithMostCountries(ctx context.Context) (*domain.RegionCount, error)
	TopByArea(ctx context.Context, limit int) ([]domain.Country, error)
	TopByDensity(ctx context.Context, limit int) ([]domain.CountryDensity, error)
	LargestByRegion(ctx context.Context) ([]domain.Country, error)
}

// RegionShare is a region average plus its share of the total row count.
type RegionShare struct {
	domain.RegionAverage
	Percent float64 `json:"percent"`
}

// Report holds every aggregate of one snapshot.
type Report struct {
	Total           int                     `json:"total"`
	Regions         []RegionShare           `json:"regions"`
	MostCountries   *domain.RegionCount     `json:"mostCountries,omitempty"`
	TopByArea       []domain.Country        `json:"topByArea"`
	TopByDensity    []domain.CountryDensity `json:"topByDensity"`
	LargestByRegion []domain.Country        `json:"largestByRegion"`
}

// Build runs all aggregate queries. Nothing is returned unless all of them succeed.
func Build(ctx context.Context, q Querier) (*Report, error) {
	ok, err := q.HasSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSnapshot
	}

	rep := &Report{}
	if rep.Total, err = q.CountAll(ctx); err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}

	avgs, err := q.AveragePopulationByRegion(ctx)
	if err != nil {
		return nil, fmt.Errorf("average by region: %w", err)
	}
	rep.Regions = make([]RegionShare, len(avgs))
	for i, a := range avgs {
		rep.Regions[i] = RegionShare{RegionAverage: a, Percent: share(a.Count, rep.Total)}
	}

	if rep.MostCountries, err = q.RegionWithMostCountries(ctx); err != nil {
		return nil, fmt.Errorf("most countries: %w", err)
	}
	if rep.TopByArea, err = q.TopByArea(ctx, TopAreaLimit); err != nil {
		return nil, fmt.Errorf("top by area: %w", err)
	}
	if rep.TopByDensity, err = q.TopByDensity(ctx, TopDensityLimit); err != nil {
		return nil, fmt.Errorf("top by density: %w", err)
	}
	if rep.LargestByRegion, err = q.LargestByRegion(ctx); err != nil {
		return nil, fmt.Errorf("largest by region: %w", err)
	}
	return rep, nil
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
