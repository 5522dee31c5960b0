package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rowguard/internal/store"
)

var (
	seedDB    string
	seedCount int
	seedSeed  int64
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedDB, "db", "", "Path to SQLite database (default: users.db)")
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "Number of user records to create")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 0, "Random seed for reproducible data (0 = time-based)")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and populate the record store",
	Long:  "Creates the users table and fills it with generated records.\nSafe to re-run: existing rows are kept and new ones appended.",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := store.Open(seedDB)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := st.Seed(ctx, seedCount, seedSeed); err != nil {
		return fmt.Errorf("failed to seed records: %w", err)
	}

	total, err := st.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d records (%d total).\n", seedCount, total)
	return nil
}
