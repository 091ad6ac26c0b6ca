// cmd/demandcast/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/demandcast/internal/cache"
	"github.com/andresuchdata/demandcast/internal/config"
	"github.com/andresuchdata/demandcast/internal/orchestrator"
	"github.com/andresuchdata/demandcast/internal/provider/postgres"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

// openDB connects through the pgx stdlib driver; the CLI does not share the
// server's pooled connection.
func openDB(c *cli.Context) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newOrchestrator(db *sqlx.DB) *orchestrator.Orchestrator {
	cfg := config.Load()
	return orchestrator.New(orchestrator.Deps{
		Sales:       postgres.NewSalesRepository(postgres.Wrap(db)),
		Catalog:     postgres.NewCatalogRepository(db),
		Analytics:   postgres.NewAnalyticsRepository(db),
		Competitors: postgres.NewCompetitorRepository(db),
		History:     postgres.NewPriceHistoryRepository(db),
		Cache:       cache.NewNoopMarketCache(),
	}, cfg.Forecast, cfg.Pricing)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "demandcast",
		Usage: "Demand forecasting, inventory and pricing toolbox",
		Commands: []*cli.Command{
			{
				Name:  "forecast",
				Usage: "Forecast demand for one product",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{Name: "product-id", Required: true},
					&cli.IntFlag{Name: "horizon-days", Value: 0, Usage: "Forecast horizon (0 = configured default)"},
				},
				Action: runForecast,
			},
			{
				Name:  "price",
				Usage: "Compute a price recommendation for one product",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{Name: "product-id", Required: true},
				},
				Action: runPrice,
			},
			{
				Name:  "bulk-forecast",
				Usage: "Forecast demand for several products in one run",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64SliceFlag{Name: "product-id", Required: true, Usage: "Repeatable product id"},
					&cli.IntFlag{Name: "horizon-days", Value: 0, Usage: "Forecast horizon (0 = configured default)"},
				},
				Action: runBulkForecast,
			},
			{
				Name:  "bulk-price",
				Usage: "Compute price recommendations for several products in one run",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64SliceFlag{Name: "product-id", Required: true, Usage: "Repeatable product id"},
				},
				Action: runBulkPrice,
			},
			{
				Name:   "alerts",
				Usage:  "List reorder alerts across the catalog, critical first",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runAlerts,
			},
			{
				Name:  "backfill",
				Usage: "Backfill order lines from object-store CSV snapshots",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "endpoint", Required: true, EnvVars: []string{"OBJECTSTORE_ENDPOINT"}},
					&cli.StringFlag{Name: "access-key", Required: true, EnvVars: []string{"OBJECTSTORE_ACCESS_KEY"}},
					&cli.StringFlag{Name: "secret-key", Required: true, EnvVars: []string{"OBJECTSTORE_SECRET_KEY"}},
					&cli.StringFlag{Name: "bucket", Required: true, EnvVars: []string{"OBJECTSTORE_BUCKET"}},
					&cli.StringFlag{Name: "prefix", Value: "order_lines"},
					&cli.BoolFlag{Name: "ssl", Value: true},
					&cli.StringFlag{Name: "from", Usage: "Start date YYYY-MM-DD (default: 90 days ago)"},
					&cli.StringFlag{Name: "to", Usage: "End date YYYY-MM-DD, exclusive (default: today)"},
				},
				Action: runBackfill,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runForecast(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orch := newOrchestrator(db)
	horizon := c.Int("horizon-days")
	if horizon <= 0 {
		horizon = orch.DefaultHorizon()
	}

	result, err := orch.ForecastDemand(c.Context, c.Int64("product-id"), horizon)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runPrice(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := newOrchestrator(db).OptimizePrice(c.Context, c.Int64("product-id"))
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func runBulkForecast(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orch := newOrchestrator(db)
	horizon := c.Int("horizon-days")
	if horizon <= 0 {
		horizon = orch.DefaultHorizon()
	}

	items := orch.BulkForecast(c.Context, c.Int64Slice("product-id"), horizon)
	return printJSON(items)
}

func runBulkPrice(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	items := newOrchestrator(db).BulkOptimizePrice(c.Context, c.Int64Slice("product-id"))
	return printJSON(items)
}

func runAlerts(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	alerts, err := newOrchestrator(db).ListReorderAlerts(c.Context)
	if err != nil {
		return err
	}
	return printJSON(alerts)
}
