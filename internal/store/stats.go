package store

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/kalimax-triage/internal"
)

// StatusCounts returns, per table, the number of rows in each curation status.
func (s *Store) StatusCounts(ctx context.Context) (map[internal.Table]map[string]int, error) {
	out := make(map[internal.Table]map[string]int, len(internal.Tables))
	for _, table := range internal.Tables {
		counts, err := s.groupCount(ctx,
			fmt.Sprintf(`SELECT COALESCE(curation_status, ''), COUNT(*) FROM %s GROUP BY 1`, table))
		if err != nil {
			return nil, err
		}
		out[table] = counts
	}
	return out, nil
}

// PriorityCounts returns the number of rows per stored priority level across
// all tables. Rows without a priority are not counted.
func (s *Store) PriorityCounts(ctx context.Context) (map[internal.PriorityLevel]int, error) {
	out := make(map[internal.PriorityLevel]int)
	for _, table := range internal.Tables {
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT priority_level, COUNT(*) FROM %s WHERE priority_level IS NOT NULL GROUP BY priority_level`, table))
		if err != nil {
			return nil, fmt.Errorf("%w: priority counts: %v", internal.ErrStoreUnavailable, err)
		}
		for rows.Next() {
			var level, n int
			if err := rows.Scan(&level, &n); err != nil {
				rows.Close()
				return nil, err
			}
			out[internal.PriorityLevel(level)] += n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RegionCounts returns the number of expressions per stored region.
func (s *Store) RegionCounts(ctx context.Context) (map[string]int, error) {
	return s.groupCount(ctx,
		`SELECT region, COUNT(*) FROM expressions WHERE region IS NOT NULL AND region != '' GROUP BY region`)
}

// RecentActivity returns the number of rows updated per day (YYYY-MM-DD)
// since the given time, across all tables.
func (s *Store) RecentActivity(ctx context.Context, since time.Time) (map[string]int, error) {
	day := since.UTC().Format("2006-01-02")
	out := make(map[string]int)
	for _, table := range internal.Tables {
		counts, err := s.groupCount(ctx, fmt.Sprintf(`
			SELECT substr(updated_at, 1, 10) AS day, COUNT(*)
			FROM %s
			WHERE updated_at IS NOT NULL AND substr(updated_at, 1, 10) >= ?
			GROUP BY day`, table), day)
		if err != nil {
			return nil, err
		}
		for k, v := range counts {
			out[k] += v
		}
	}
	return out, nil
}

func (s *Store) groupCount(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internal.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
