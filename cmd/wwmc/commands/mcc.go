package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wwmc-ai/wwmc-go/internal/docstore"
	"github.com/wwmc-ai/wwmc-go/internal/ingestion"
	"github.com/wwmc-ai/wwmc-go/internal/logging"
)

// NewMCCCmd constructs the `wwmc mcc` command group for managing the
// merchant category code table.
func NewMCCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcc",
		Short: "Manage the merchant category code table",
	}

	cmd.AddCommand(newMCCLoadCmd(), newMCCSearchCmd())

	return cmd
}

// newMCCLoadCmd constructs `wwmc mcc load`, which replaces the merchant
// category table in MongoDB with the contents of a CSV file.
func newMCCLoadCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace the merchant category table from a CSV file",
		Long: `Parse a merchant category code CSV and replace the MongoDB collection
contents with it. The whole file is validated before anything is written,
so a malformed file never leaves the table half-loaded.

The CSV must carry an id, name, mcc, and type column (any order).

Examples:
  wwmc mcc load --file ./mcc.csv
  MCC_CSV_PATH=./mcc.csv wwmc mcc load`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if file == "" {
				file = getEnvOrDefault("MCC_CSV_PATH", "")
			}
			if file == "" {
				return fmt.Errorf("mcc load: --file or MCC_CSV_PATH is required")
			}

			merchants, cleanup, err := connectMerchants(ctx)
			if err != nil {
				return fmt.Errorf("mcc load: %w", err)
			}
			defer cleanup()

			loader, err := ingestion.NewMerchantLoader(merchants)
			if err != nil {
				return fmt.Errorf("mcc load: %w", err)
			}

			count, err := loader.LoadCSV(ctx, file)
			if err != nil {
				return fmt.Errorf("mcc load: %w", err)
			}

			fmt.Printf("merchant codes reloaded: %d records\n", count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Merchant category CSV file (default: $MCC_CSV_PATH)")

	return cmd
}

// newMCCSearchCmd constructs `wwmc mcc search`, which queries the merchant
// category table by name, code, or type.
func newMCCSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search the merchant category table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			merchants, cleanup, err := connectMerchants(ctx)
			if err != nil {
				return fmt.Errorf("mcc search: %w", err)
			}
			defer cleanup()

			results, err := merchants.Search(ctx, args[0])
			if err != nil {
				return fmt.Errorf("mcc search: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%s\t%s\t%s\n", r.MCC, r.Name, r.Type)
			}
			return nil
		},
	}
}

// connectMerchants opens the MongoDB merchant store from env configuration.
func connectMerchants(ctx context.Context) (*docstore.MongoMerchants, func(), error) {
	uri := getEnvOrDefault("MONGODB_URI", "")
	if uri == "" {
		return nil, nil, fmt.Errorf("MONGODB_URI is required")
	}

	client, err := docstore.Connect(ctx, uri)
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb: %w", err)
	}
	cleanup := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}

	merchants, err := docstore.NewMongoMerchants(client,
		getEnvOrDefault("MONGODB_MCC_NAMESPACE", "wwmc.mcc"),
		getEnvOrDefault("MONGODB_DATABASE", "wwmc"),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return merchants, cleanup, nil
}
