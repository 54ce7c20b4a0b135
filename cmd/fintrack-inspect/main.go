package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// fintrack-inspect prints the transactions table layout and the newest rows
// across all users, for checking a deployment's database by hand.
func main() {
	limit := flag.Int("n", 5, "number of latest transactions to show")
	flag.Parse()

	cfg, logger := cli.LoadConfig(log.ComponentStorage)
	// never publish from a read-only tool
	cfg.AMQPURL = ""

	if err := run(context.Background(), cfg, logger, os.Stdout, *limit); err != nil {
		logger.Error("Inspection failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, out io.Writer, limit int) (err error) {
	b, err := backend.Open(ctx, cfg, logger, backend.Options{})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close backend: %w", cerr)
		}
	}()

	columns, err := b.Repo.TransactionsTableInfo(ctx)
	if err != nil {
		return fmt.Errorf("read table info: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNOT NULL\tPK")
	for _, c := range columns {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\n", c.Name, c.Type, c.NotNull, c.PrimaryKey)
	}
	tw.Flush()
	fmt.Fprintln(out)

	latest, err := b.Repo.LatestTransactions(ctx, limit)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	fmt.Fprintln(tw, "ID\tUSER\tDATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, t := range latest {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.UserID, t.Date, t.Type, t.Category, t.Amount, t.Description)
	}
	return tw.Flush()
}
