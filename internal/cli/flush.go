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

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Retry queued finalize mutations once",
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

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		report := gw.Coordinator().FlushQueue(ctx)
		fmt.Printf("ok=%d failed=%d\n", report.Processed, report.Failed)

		if report.Failed > 0 {
			os.Exit(1)
		}
	},
}
