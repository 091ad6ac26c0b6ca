package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/andresuchdata/demandcast/internal/provider/objectstore"
	"github.com/andresuchdata/demandcast/internal/provider/postgres"
	"github.com/andresuchdata/demandcast/pkg/logger"
)

// runBackfill copies daily order-line snapshots from the object store into
// the order_lines table so the Postgres sales provider can serve them.
func runBackfill(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := objectstore.NewSnapshotStore(objectstore.Config{
		Endpoint:  c.String("endpoint"),
		AccessKey: c.String("access-key"),
		SecretKey: c.String("secret-key"),
		Bucket:    c.String("bucket"),
		Prefix:    c.String("prefix"),
		UseSSL:    c.Bool("ssl"),
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	from := now.AddDate(0, 0, -90)
	to := now
	if raw := c.String("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if raw := c.String("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	dates, err := store.ListSnapshotDates(c.Context, from, to)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		logger.Log.Info().Msg("no snapshots in range, nothing to backfill")
		return nil
	}

	sales := postgres.NewSalesRepository(postgres.Wrap(db))
	totalLines := 0

	for _, date := range dates {
		byProduct, err := store.ReadSnapshot(c.Context, date)
		if err != nil {
			return fmt.Errorf("failed to read snapshot %s: %w", date.Format("2006-01-02"), err)
		}

		for productID, lines := range byProduct {
			grouped := sumByDay(lines)
			if err := sales.InsertOrderLines(c.Context, productID, grouped); err != nil {
				return fmt.Errorf("failed to backfill product %d for %s: %w",
					productID, date.Format("2006-01-02"), err)
			}
			totalLines += len(grouped)
		}

		logger.Log.Info().
			Str("date", date.Format("2006-01-02")).
			Int("products", len(byProduct)).
			Msg("snapshot backfilled")
	}

	logger.Log.Info().Int("snapshots", len(dates)).Int("rows", totalLines).Msg("backfill completed")
	return nil
}

// sumByDay collapses duplicate same-day entries before upserting, since the
// order_lines table keys on (product, day).
func sumByDay(lines []domain.OrderLine) []domain.OrderLine {
	byDay := make(map[time.Time]domain.OrderLine)
	for _, line := range lines {
		day := line.Date.Truncate(24 * time.Hour)
		agg := byDay[day]
		agg.Date = day
		agg.Quantity += line.Quantity
		agg.Revenue += line.Revenue
		byDay[day] = agg
	}

	out := make([]domain.OrderLine, 0, len(byDay))
	for _, line := range byDay {
		out = append(out, line)
	}
	return out
}
