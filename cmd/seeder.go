package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	mirror "github.com/frahmantamala/rt-lending/internal/mirror/postgres"
	"github.com/frahmantamala/rt-lending/internal/store"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the mirror database with the bootstrap books",
	Long:  `Write the bootstrap loans and ledger into the mirror database for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		if !cfg.Database.Enabled() {
			log.Fatal("database.source is not configured")
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		ctx := context.Background()
		repo := mirror.NewRepository(gdb, logger.LoggerWrapper())

		if clearData {
			if err := repo.Clear(ctx); err != nil {
				log.Fatalf("failed to clear mirror: %v", err)
			}
			fmt.Println("Cleared existing loans and transactions")
		}

		boot := store.Bootstrap()
		if err := repo.Seed(ctx, boot); err != nil {
			log.Fatalf("failed to seed mirror: %v", err)
		}

		fmt.Printf("Seeded %d loans and %d transactions\n", len(boot.Loans), len(boot.Transactions))
	},
}
