package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dualiteteste-sys/revo-erp-prod-sub003/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending sync entries and recent call traces",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			slog.Error("Failed to load config", "error", err)
			os.Exit(1)
		}

		gw, err := control.NewGateway(cfg, slog.Default())
		if err != nil {
			slog.Error("Failed to initialize gateway", "error", err)
			os.Exit(1)
		}
		defer gw.Stop(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		items := gw.Queue().List(ctx)
		if len(items) == 0 {
			fmt.Println("No pending sync entries.")
			return
		}

		fmt.Printf("%d pending sync entr%s:\n", len(items), plural(len(items)))
		for _, it := range items {
			last := it.LastError
			if last == "" {
				last = "-"
			}
			fmt.Printf("  %s  ref=%s  attempts=%d  queued=%s  last_error=%s\n",
				it.EntityID, it.ResourceRef, it.Attempts,
				it.CreatedAt.Format(time.RFC3339), last)
		}
	},
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
