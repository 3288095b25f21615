package etl

import (
	"math"
	"strconv"

	"github.com/tidwall/gjson"

	"countryreport/internal/domain"
)

// Normalize projects a raw source record onto a Country.
// Absent, null or wrongly typed fields fall through to the defaults;
// present empty strings are kept as they are.
func Normalize(rec Record) domain.Country {
	obj := gjson.ParseBytes(rec.Raw)

	c := domain.Country{
		Name:   domain.UnknownName,
		Region: domain.UnknownRegion,
	}

	if v := obj.Get("name.common"); v.Type == gjson.String {
		c.Name = v.Str
	}
	if n, ok := populationValue(obj.Get("population")); ok {
		c.Population = n
	}
	if v := obj.Get("area"); v.Type == gjson.Number && v.Num >= 0 && !math.IsInf(v.Num, 0) {
		c.Area = v.Num
	}
	if v := obj.Get("region"); v.Type == gjson.String {
		c.Region = v.Str
	}
	return c
}

// populationValue accepts non-negative numbers that fit in an int64.
// Fractions are truncated; anything out of range falls back to the default.
func populationValue(v gjson.Result) (int64, bool) {
	if v.Type != gjson.Number || v.Num < 0 {
		return 0, false
	}
	if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
		return n, true
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if v.Num >= math.MaxInt64 {
		return 0, false
	}
	return int64(v.Num), true
}

// NormalizeAll maps Normalize over a batch, preserving order and length.
func NormalizeAll(records []Record) []domain.Country {
	out := make([]domain.Country, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}
