package storage

import (
	"context"
	"database/sql"
	"math"

	"countryreport/internal/domain"
)

// CountryStore implements domain.CountryStore on top of DB.
type CountryStore struct {
	db *DB
}

// NewCountryStore creates a new CountryStore.
func NewCountryStore(db *DB) *CountryStore {
	return &CountryStore{db: db}
}

// ── Snapshot replace ───────────────────────────────────────

// ReplaceAll swaps the table contents for countries in one transaction:
// create if absent, delete every row, insert the snapshot, commit.
// On any error the transaction is rolled back and the previous snapshot stays.
func (s *CountryStore) ReplaceAll(ctx context.Context, countries []domain.Country) (written int, err error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("begin", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, s.db.dialect.createCountries); err != nil {
		return 0, storeErr("create table", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM countries`); err != nil {
		return 0, storeErr("clear", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.db.dialect.rebind(
		`INSERT INTO countries (name, population, area, region) VALUES (?, ?, ?, ?)`,
	))
	if err != nil {
		return 0, storeErr("prepare insert", err)
	}
	defer stmt.Close()

	for _, c := range countries {
		if _, err = stmt.ExecContext(ctx, c.Name, c.Population, c.Area, c.Region); err != nil {
			return written, storeErr("insert", err)
		}
		written++
	}

	if err = tx.Commit(); err != nil {
		return 0, storeErr("commit", err)
	}
	return written, nil
}

// ── Read-only aggregates ───────────────────────────────────

// HasSnapshot reports whether the countries table exists.
func (s *CountryStore) HasSnapshot(ctx context.Context) (bool, error) {
	ok, err := s.db.tableExists(ctx, "countries")
	if err != nil {
		return false, storeErr("inspect schema", err)
	}
	return ok, nil
}

// CountAll returns the number of rows, regions included or not.
func (s *CountryStore) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM countries`).Scan(&n); err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

// AveragePopulationByRegion groups non-empty regions, highest mean first.
func (s *CountryStore) AveragePopulationByRegion(ctx context.Context) ([]domain.RegionAverage, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT region, COUNT(*) AS cnt, ROUND(AVG(population)) AS avg_pop
		 FROM countries
		 WHERE region != ''
		 GROUP BY region
		 ORDER BY avg_pop DESC, region ASC`)
	if err != nil {
		return nil, storeErr("average by region", err)
	}
	defer rows.Close()

	var out []domain.RegionAverage
	for rows.Next() {
		var r domain.RegionAverage
		var avg float64
		if err := rows.Scan(&r.Region, &r.Count, &avg); err != nil {
			return nil, storeErr("scan average by region", err)
		}
		r.AvgPopulation = int64(math.Round(avg))
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("average by region", err)
	}
	return out, nil
}

// RegionWithMostCountries returns the non-empty region with the most rows,
// or nil when there is none. Ties resolve to the alphabetically first region.
func (s *CountryStore) RegionWithMostCountries(ctx context.Context) (*domain.RegionCount, error) {
	var r domain.RegionCount
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT region, COUNT(*) AS cnt
		 FROM countries
		 WHERE region != ''
		 GROUP BY region
		 ORDER BY cnt DESC, region ASC
		 LIMIT 1`).Scan(&r.Region, &r.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("region with most countries", err)
	}
	return &r, nil
}

// TopByArea returns up to limit countries with a positive area, largest first.
func (s *CountryStore) TopByArea(ctx context.Context, limit int) ([]domain.Country, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.dialect.rebind(
		`SELECT name, population, area, region
		 FROM countries
		 WHERE area > 0
		 ORDER BY area DESC, name ASC
		 LIMIT ?`), limit)
	if err != nil {
		return nil, storeErr("top by area", err)
	}
	defer rows.Close()
	return scanCountries(rows, "top by area")
}

// TopByDensity returns up to limit countries with a positive area, densest first.
func (s *CountryStore) TopByDensity(ctx context.Context, limit int) ([]domain.CountryDensity, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.dialect.rebind(
		`SELECT name, population, area, region
		 FROM countries
		 WHERE area > 0
		 ORDER BY population * 1.0 / area DESC, name ASC
		 LIMIT ?`), limit)
	if err != nil {
		return nil, storeErr("top by density", err)
	}
	defer rows.Close()

	countries, err := scanCountries(rows, "top by density")
	if err != nil {
		return nil, err
	}
	out := make([]domain.CountryDensity, len(countries))
	for i, c := range countries {
		out[i] = domain.CountryDensity{Country: c, Density: roundTo2(float64(c.Population) / c.Area)}
	}
	return out, nil
}

// LargestByRegion returns, for each non-empty region, the row holding the
// maximum area (ties: first name alphabetically), ordered by region.
func (s *CountryStore) LargestByRegion(ctx context.Context) ([]domain.Country, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT name, population, area, region FROM (
			SELECT name, population, area, region,
			       ROW_NUMBER() OVER (PARTITION BY region ORDER BY area DESC, name ASC) AS rn
			FROM countries
			WHERE region != ''
		 ) ranked
		 WHERE rn = 1
		 ORDER BY region ASC`)
	if err != nil {
		return nil, storeErr("largest by region", err)
	}
	defer rows.Close()
	return scanCountries(rows, "largest by region")
}

func scanCountries(rows *sql.Rows, op string) ([]domain.Country, error) {
	var out []domain.Country
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.Name, &c.Population, &c.Area, &c.Region); err != nil {
			return nil, storeErr("scan "+op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
