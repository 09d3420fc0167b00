package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inlet-labs/inlet/internal/config"
	"github.com/inlet-labs/inlet/internal/database"
	"github.com/inlet-labs/inlet/internal/repository"
	"github.com/inlet-labs/inlet/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func ItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage knowledge items",
		Long:  "Inspect and retry captured knowledge items",
	}

	cmd.AddCommand(ItemListCmd())
	cmd.AddCommand(ItemRetryCmd())

	return cmd
}

func ItemListCmd() *cobra.Command {
	var (
		status string
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge items",
		Long:  "List captured knowledge items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runItemList(outputFormat, status, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by item status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runItemList(outputFormat, status string, limit int, cursor string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	itemSvc := newItemService(pool)

	result, err := itemSvc.List(ctx, service.ListItemsInput{
		Status: status,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(result.Items))
		for i, item := range result.Items {
			data[i] = map[string]interface{}{
				"id":          item.ID,
				"source_type": item.SourceType,
				"source_url":  item.SourceURL,
				"status":      item.Status,
				"title":       item.Title,
				"last_error":  item.LastError,
				"created_at":  item.CreatedAt,
			}
		}
		output := map[string]interface{}{
			"items":    data,
			"cursor":   result.Cursor,
			"has_more": result.HasMore,
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(result.Items) == 0 {
			fmt.Println("No items found")
			return nil
		}
		fmt.Println("Items:")
		for _, item := range result.Items {
			fmt.Printf("  %s: [%s] %s (status: %s, created: %s)\n",
				item.ID, item.SourceType, item.SourceURL, item.Status,
				item.CreatedAt.Format("2006-01-02 15:04:05"))
			if item.LastError != "" {
				fmt.Printf("    last error: %s\n", item.LastError)
			}
		}
		if result.HasMore && result.Cursor != "" {
			fmt.Printf("\nMore results available. Use --cursor %s\n", result.Cursor)
		}
	}

	return nil
}

func ItemRetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <item-id>",
		Short: "Retry a failed item",
		Long:  "Reset a terminal item to pending and enqueue a new capture job",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemRetry,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runItemRetry(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	itemSvc := newItemService(pool)

	item, err := itemSvc.Retry(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to retry item: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":          item.ID,
			"source_type": item.SourceType,
			"status":      item.Status,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Item %s queued for reprocessing (status: %s)\n", item.ID, item.Status)
	}

	return nil
}

func newItemService(pool *pgxpool.Pool) *service.ItemService {
	itemRepo := repository.NewItemRepository(pool)
	assetRepo := repository.NewImageAssetRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	return service.NewItemService(itemRepo, assetRepo, txRunner)
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, nil
}
