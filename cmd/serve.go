package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaboard/internal/logging"
	"github.com/KaramelBytes/edaboard/internal/plot"
	"github.com/KaramelBytes/edaboard/internal/server"
	"github.com/KaramelBytes/edaboard/internal/session"
)

var (
	svListen  string
	svPreload string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	Long: `Start the dashboard. Open the printed address in a browser and upload a CSV file,
or pass --preload to create a session from a file on disk at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if svListen != "" {
			c.ListenAddr = svListen
		}
		logger, err := logging.New(os.Stderr, c.LogLevel, c.LogFormat)
		if err != nil {
			return err
		}

		store := session.NewStore(c.AnalysisOptions(), c.SessionTTL(), logger)
		if svPreload != "" {
			t, err := loadTable(svPreload, fileOptions(c))
			if err != nil {
				return err
			}
			s := store.Create(t)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Preloaded %s as session %s\n", t.Name, s.ID)
		}

		srv := server.New(server.Config{
			Addr:             c.ListenAddr,
			Dataset:          c.DatasetOptions(),
			MaxHistogramBins: c.MaxHistogramBins,
			UploadRate:       c.UploadRatePerSec,
			UploadBurst:      c.UploadBurst,
			ChartSize:        plot.Size{Width: c.ChartWidth, Height: c.ChartHeight},
			SweepInterval:    c.SweepInterval(),
		}, store, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving edaboard on %s (Ctrl+C to stop)\n", c.ListenAddr)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&svListen, "listen", "", "listen address, e.g. :8501 (overrides config)")
	serveCmd.Flags().StringVar(&svPreload, "preload", "", "CSV file to load into a session at startup")
}
