package domain

import "context"

// Defaults applied when a source record lacks a field.
const (
	UnknownName   = "Unknown"
	UnknownRegion = "Unknown"
)

// Country is one normalized row of the countries snapshot.
type Country struct {
	Name       string  `json:"name"`
	Population int64   `json:"population"`
	Area       float64 `json:"area"`   // km²
	Region     string  `json:"region"` // may be "" when the source sends an empty string
}

// RegionAverage is one row of the average-population-by-region aggregate.
type RegionAverage struct {
	Region        string `json:"region"`
	Count         int    `json:"count"`
	AvgPopulation int64  `json:"avgPopulation"` // rounded to the nearest integer
}

// RegionCount pairs a region with its number of countries.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// CountryDensity is a country with its population density in people/km².
type CountryDensity struct {
	Country
	Density float64 `json:"density"` // rounded to 2 decimals
}

// CountryStore owns the countries snapshot table.
// ReplaceAll is the only mutating operation; everything else is read-only.
type CountryStore interface {
	ReplaceAll(ctx context.Context, countries []Country) (int, error)
	HasSnapshot(ctx context.Context) (bool, error)
	CountAll(ctx context.Context) (int, error)
	AveragePopulationByRegion(ctx context.Context) ([]RegionAverage, error)
	RegionWithMostCountries(ctx context.Context) (*RegionCount, error)
	TopByArea(ctx context.Context, limit int) ([]Country, error)
	TopByDensity(ctx context.Context, limit int) ([]CountryDensity, error)
	LargestByRegion(ctx context.Context) ([]Country, error)
}
