package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/findme/internal/model"
)

// AnalyticsMonths is the number of calendar months covered by the monthly
// rollups, including the current one.
const AnalyticsMonths = 6

// MonthCount is the number of records created in a calendar month.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

// StatusCount is the number of items with a status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Analytics is the admin dashboard rollup.
type Analytics struct {
	TotalUsers        int64         `json:"totalUsers"`
	TotalPosts        int64         `json:"totalPosts"`
	FoundItems        int64         `json:"foundItems"`
	LostItems         int64         `json:"lostItems"`
	UserRegistrations []MonthCount  `json:"userRegistrations"`
	PostsPerMonth     []MonthCount  `json:"postsPerMonth"`
	FoundLostCounts   []StatusCount `json:"foundLostCounts"`
}

// sqliteTime is the layout of CURRENT_TIMESTAMP values.
const sqliteTime = "2006-01-02 15:04:05"

// ComputeAnalytics computes the dashboard rollup as of now. Monthly buckets
// cover the AnalyticsMonths calendar months ending with the month of now, in
// ascending order; months without records are absent. The queries run
// concurrently and nothing is cached.
func ComputeAnalytics(ctx context.Context, db *sql.DB, now time.Time) (*Analytics, error) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month()-(AnalyticsMonths-1), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	a := &Analytics{}
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int64, query string, args ...any) {
		g.Go(func() error {
			if err := db.QueryRowContext(gctx, query, args...).Scan(dst); err != nil {
				return fmt.Errorf("counting: %w", err)
			}
			return nil
		})
	}
	count(&a.TotalUsers, `SELECT COUNT(*) FROM users`)
	count(&a.TotalPosts, `SELECT COUNT(*) FROM items`)
	count(&a.FoundItems, `SELECT COUNT(*) FROM items WHERE status = ?`, model.ItemStatusFound)
	count(&a.LostItems, `SELECT COUNT(*) FROM items WHERE status = ?`, model.ItemStatusLost)

	g.Go(func() error {
		var err error
		a.UserRegistrations, err = monthlyCounts(gctx, db, "users", from, to)
		return err
	})
	g.Go(func() error {
		var err error
		a.PostsPerMonth, err = monthlyCounts(gctx, db, "items", from, to)
		return err
	})
	g.Go(func() error {
		var err error
		a.FoundLostCounts, err = statusCounts(gctx, db)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing analytics: %w", err)
	}
	return a, nil
}

// monthlyCounts groups the rows of table created in [from, to) by month.
// table is always a constant supplied by ComputeAnalytics.
func monthlyCounts(ctx context.Context, db *sql.DB, table string, from, to time.Time) ([]MonthCount, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', created_at) AS month, COUNT(*)
		 FROM `+table+`
		 WHERE created_at >= ? AND created_at < ?
		 GROUP BY month
		 ORDER BY month`,
		from.Format(sqliteTime), to.Format(sqliteTime),
	)
	if err != nil {
		return nil, fmt.Errorf("monthly %s: %w", table, err)
	}
	defer rows.Close()

	counts := []MonthCount{}
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("scanning monthly %s: %w", table, err)
		}
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}

func statusCounts(ctx context.Context, db *sql.DB) ([]StatusCount, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM items
		 WHERE status IN (?, ?)
		 GROUP BY status
		 ORDER BY status`,
		model.ItemStatusFound, model.ItemStatusLost,
	)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := []StatusCount{}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}
