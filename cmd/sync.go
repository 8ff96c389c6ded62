package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/rt-lending/internal/core/events"
	"github.com/frahmantamala/rt-lending/internal/finance"
	"github.com/frahmantamala/rt-lending/internal/sheetsync"
	"github.com/frahmantamala/rt-lending/internal/store"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Spreadsheet sync commands",
	Long:  `Inspect the spreadsheet API and push the books to the configured sinks`,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch the books from the spreadsheet API and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pullSnapshot(cmd.Context())
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send every loan and transaction to the configured sinks",
	Long:  `Replay the bootstrap books, or the spreadsheet API books with --from=api, as create events through the outbox`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pushSnapshot(cmd.Context())
	},
}

var (
	pushFrom     string
	drainTimeout time.Duration
)

func pullSnapshot(ctx context.Context) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Sync.APIURL == "" {
		return fmt.Errorf("sync.api_url is not configured")
	}

	client := sheetsync.NewClient(sheetsync.Config{URL: cfg.Sync.APIURL, Timeout: cfg.Sync.Timeout}, logger.LoggerWrapper())
	snap, err := client.FetchAll(ctx)
	if err != nil {
		return err
	}

	report := map[string]interface{}{
		"loans":        len(snap.Loans),
		"transactions": len(snap.Transactions),
		"portfolio":    finance.PortfolioStats(snap.Loans),
		"cash":         finance.Summarize(snap.Transactions),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func pushSnapshot(ctx context.Context) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	snap := store.Bootstrap()
	if pushFrom == "api" {
		if cfg.Sync.APIURL == "" {
			return fmt.Errorf("sync.api_url is not configured")
		}
		client := sheetsync.NewClient(sheetsync.Config{URL: cfg.Sync.APIURL, Timeout: cfg.Sync.Timeout}, lg)
		if snap, err = client.FetchAll(ctx); err != nil {
			return err
		}
		// do not echo the books back to where they came from
		cfg.Sync.APIURL = ""
	}

	// enqueue never blocks, so the queues must hold the whole replay
	if n := len(snap.Loans) + len(snap.Transactions); cfg.Sync.QueueSize < n {
		cfg.Sync.QueueSize = n
	}

	bus := events.NewEventBus(lg)
	deps := &Dependencies{Config: cfg, Logger: lg, Bus: bus}
	defer deps.close()

	if cfg.Database.Enabled() {
		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		deps.DB = db
		if deps.Gorm, err = initGorm(db); err != nil {
			return err
		}
	}

	deps.Sinks, err = buildSinks(ctx, cfg, bus, deps.Gorm, lg)
	if err != nil {
		return err
	}
	if len(deps.Sinks.dispatchers) == 0 {
		return fmt.Errorf("no sinks configured")
	}

	published := 0
	for _, l := range snap.Loans {
		if err := bus.PublishSync(ctx, events.NewChangeEvent(events.ActionCreateLoan, l.ID, l.Clone())); err != nil {
			lg.Warn("failed to queue loan", "loan_id", l.ID, "error", err)
			continue
		}
		published++
	}
	for _, t := range snap.Transactions {
		if err := bus.PublishSync(ctx, events.NewChangeEvent(events.ActionCreateTransaction, t.ID, t)); err != nil {
			lg.Warn("failed to queue transaction", "transaction_id", t.ID, "error", err)
			continue
		}
		published++
	}

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for _, d := range deps.Sinks.dispatchers {
		if err := d.Drain(drainCtx); err != nil {
			lg.Warn("sink did not finish in time", "sink", d.Name(), "error", err)
		}
		stats := d.Stats()
		fmt.Printf("%s: delivered=%d failed=%d dropped=%d\n", d.Name(), stats.Delivered, stats.Failed, stats.Dropped)
	}

	fmt.Printf("Published %d changes\n", published)
	return nil
}

func init() {
	pushCmd.Flags().StringVar(&pushFrom, "from", "bootstrap", "where to read the books from: bootstrap or api")
	pushCmd.Flags().DurationVar(&drainTimeout, "drain-timeout", time.Minute, "how long to wait for sinks to finish")

	syncCmd.AddCommand(pullCmd)
	syncCmd.AddCommand(pushCmd)
}
