// Command analyze runs the settlement analysis pipeline from the command
// line: local spreadsheets in, analyzed workbook or P&L report out, plus a
// seeder that loads a master cost file straight into the database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/spreadsheet"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "analyze",
		Usage: "Analyze marketplace settlement files without the API server",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Analyze a settlement file and write the workbook",
				Flags: []cli.Flag{
					inputFlag(),
					masterFlag(),
					marketplaceFlag(),
					&cli.StringFlag{
						Name:  "output",
						Usage: "Path of the analyzed workbook",
						Value: "analyzed.xlsx",
					},
				},
				Action: runAnalysis,
			},
			{
				Name:  "report",
				Usage: "Print the monthly P&L report as JSON",
				Flags: []cli.Flag{
					inputFlag(),
					masterFlag(),
					marketplaceFlag(),
				},
				Action: runReport,
			},
			{
				Name:  "seed-master",
				Usage: "Load a master cost file into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
					masterFlag(),
					marketplaceFlag(),
				},
				Action: seedMaster,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func inputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "input",
		Usage:    "Settlement spreadsheet (csv or xlsx)",
		Required: true,
	}
}

func masterFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "master",
		Usage: "Master cost spreadsheet (csv or xlsx)",
	}
}

func marketplaceFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "marketplace",
		Usage:   "Marketplace profile (amazon or flipkart)",
		Value:   "amazon",
		EnvVars: []string{"MARKETPLACE"},
	}
}

func readFile(path string) ([]engine.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()
	return spreadsheet.ReadRecords(f, path)
}

func analyze(c *cli.Context) (*engine.Result, error) {
	rows, err := readFile(c.String("input"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no data rows", c.String("input"))
	}

	var masterRows []engine.RawRecord
	if path := c.String("master"); path != "" {
		masterRows, err = readFile(path)
		if err != nil {
			return nil, err
		}
	}

	eng := engine.New(engine.ProfileFor(c.String("marketplace")))
	return eng.Analyze(rows, masterRows), nil
}

func runAnalysis(c *cli.Context) error {
	result, err := analyze(c)
	if err != nil {
		return err
	}

	data, err := spreadsheet.WorkbookBytes(spreadsheet.ResultSheets(result))
	if err != nil {
		return err
	}

	output := c.String("output")
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("could not write %s: %w", output, err)
	}

	log.Printf("analyzed %d orders (%d negative, %d missing-cost rows) -> %s",
		len(result.Sheets.OrderSummary),
		len(result.Sheets.NegativeOrders),
		len(result.Sheets.MissingCostOrders),
		output)
	return nil
}

func runReport(c *cli.Context) error {
	result, err := analyze(c)
	if err != nil {
		return err
	}

	report := engine.MonthlyReport(result.Sheets.OrderSummary)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func seedMaster(c *cli.Context) error {
	path := c.String("master")
	if path == "" {
		return fmt.Errorf("a master file is required (use --master)")
	}
	marketplace := c.String("marketplace")

	rows, err := readFile(path)
	if err != nil {
		return err
	}

	eng := engine.New(engine.ProfileFor(marketplace))
	index, order := eng.BuildMasterIndex(rows)
	if len(order) == 0 {
		return fmt.Errorf("%s has no usable rows (no SKU column found)", path)
	}

	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM master_entries WHERE marketplace = $1`, marketplace); err != nil {
		return fmt.Errorf("could not clear master snapshot: %w", err)
	}

	for i, sku := range order {
		entry := index[sku]
		raw, err := json.Marshal(entry.Raw)
		if err != nil {
			return fmt.Errorf("could not encode row for %s: %w", sku, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO master_entries (marketplace, sku, product_name, unit_cost, raw, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			marketplace, entry.SKU, entry.ProductName, entry.UnitCost, raw, i); err != nil {
			return fmt.Errorf("could not insert %s: %w", sku, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO master_meta (marketplace, filename, original_name, uploaded_at)
		VALUES ($1, $2, $2, NOW())
		ON CONFLICT (marketplace) DO UPDATE SET
			filename = EXCLUDED.filename,
			original_name = EXCLUDED.original_name,
			uploaded_at = EXCLUDED.uploaded_at`,
		marketplace, path); err != nil {
		return fmt.Errorf("could not store master metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit: %w", err)
	}

	log.Printf("seeded %d master entries for %s", len(order), marketplace)
	return nil
}
