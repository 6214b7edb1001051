package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/edaboard/internal/config"
	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/export"
	"github.com/KaramelBytes/edaboard/internal/session"
	"github.com/KaramelBytes/edaboard/internal/utils"
)

var exOutput string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the EDA summaries of a CSV file to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		t, err := loadTable(args[0], fileOptions(c))
		if err != nil {
			return err
		}
		s := session.New(uuid.NewString(), t, c.AnalysisOptions(), time.Now())

		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, s); err != nil {
			return fmt.Errorf("build workbook: %w", err)
		}
		out := exOutput
		if out == "" {
			out = filepath.Join(filepath.Dir(args[0]), export.FileName(t.Name))
		}
		if err := writeOutput(out, buf.Bytes()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to %s\n", t.Name, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exOutput, "output", "o", "", "output path (default <name>_eda.xlsx next to the input)")
}

// loadTable reads a CSV/TSV file; a zero delimiter is chosen from the extension.
func loadTable(path string, opt dataset.Options) (*dataset.Table, error) {
	t, err := dataset.LoadFile(path, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// fileOptions returns the configured loader options. A comma delimiter, the default,
// is cleared so the file extension decides.
func fileOptions(c *cfgpkg.Global) dataset.Options {
	opt := c.DatasetOptions()
	if opt.Delimiter == ',' {
		opt.Delimiter = 0
	}
	return opt
}

// writeOutput creates the parent directory and writes data atomically.
func writeOutput(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
