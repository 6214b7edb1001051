package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edaboard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set edaboard configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "max_categorical_unique: %d\n", cfg.MaxCategoricalUnique)
		fmt.Fprintf(out, "histogram_bins: %d\n", cfg.HistogramBins)
		fmt.Fprintf(out, "max_histogram_bins: %d\n", cfg.MaxHistogramBins)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		fmt.Fprintf(out, "null_tokens: %s\n", strings.Join(cfg.NullTokens, " | "))
		fmt.Fprintf(out, "session_ttl_min: %d\n", cfg.SessionTTLMin)
		fmt.Fprintf(out, "session_sweep_sec: %d\n", cfg.SessionSweepSec)
		fmt.Fprintf(out, "upload_rate_per_sec: %.3f\n", cfg.UploadRatePerSec)
		fmt.Fprintf(out, "upload_burst: %d\n", cfg.UploadBurst)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
		fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		switch key {
		case "listen_addr":
			next.ListenAddr = val
		case "delimiter":
			next.Delimiter = val
		case "null_tokens":
			next.NullTokens = strings.Split(val, ",")
		case "log_level":
			next.LogLevel = strings.ToLower(val)
		case "log_format":
			next.LogFormat = strings.ToLower(val)
		case "upload_rate_per_sec":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %w", key, err)
			}
			next.UploadRatePerSec = f
		default:
			dst := intField(&next, key)
			if dst == nil {
				return fmt.Errorf("unknown key: %s", key)
			}
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for %s: %w", key, err)
			}
			*dst = i
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func intField(c *cfgpkg.Global, key string) *int {
	switch key {
	case "max_categorical_unique":
		return &c.MaxCategoricalUnique
	case "histogram_bins":
		return &c.HistogramBins
	case "max_histogram_bins":
		return &c.MaxHistogramBins
	case "max_upload_mb":
		return &c.MaxUploadMB
	case "session_ttl_min":
		return &c.SessionTTLMin
	case "session_sweep_sec":
		return &c.SessionSweepSec
	case "upload_burst":
		return &c.UploadBurst
	case "chart_width":
		return &c.ChartWidth
	case "chart_height":
		return &c.ChartHeight
	}
	return nil
}
