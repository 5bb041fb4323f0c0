package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/znnlabs/bridgewatch/internal/classify"
	"github.com/znnlabs/bridgewatch/internal/core/config"
	"github.com/znnlabs/bridgewatch/internal/infra/storage/postgres"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bridge activity statistics over a trailing window",
	Run:   runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 1, "trailing window in days (max 30)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	days := statsDays
	if days < 1 {
		days = 1
	}
	if days > 30 {
		days = 30
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := postgres.NewTxRepo(db).Statistics(ctx, days)
	if err != nil {
		slog.Error("Failed to query statistics", "error", err)
		os.Exit(1)
	}

	tokens := make(classify.TokenTable, len(cfg.Tokens))
	for zts, t := range cfg.Tokens {
		tokens[zts] = classify.Token{Symbol: t.Symbol, Decimals: t.Decimals}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TYPE\tTOKEN\tCOUNT\tVOLUME")

	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			row.Type,
			tokens.Symbol(row.Token),
			row.Count,
			tokens.Format(row.Volume, row.Token),
		)
	}
	_ = w.Flush()
}
