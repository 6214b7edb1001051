package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	cfgpkg "github.com/KaramelBytes/edaboard/internal/config"
	"github.com/KaramelBytes/edaboard/internal/utils"
)

var (
	anDelimiter string
	anMaxUnique int
	anTopPairs  int
	anJSON      bool
	anOutDir    string
	anQuiet     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Print the EDA report of one or more CSV/TSV files (globs allowed)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		dopt := fileOptions(c)
		if cmd.Flags().Changed("delimiter") {
			d, err := cfgpkg.ParseDelimiter(anDelimiter)
			if err != nil {
				return fmt.Errorf("unsupported --delimiter: %w", err)
			}
			dopt.Delimiter = d
		}
		aopt := c.AnalysisOptions()
		if anMaxUnique > 0 {
			aopt.MaxCategoricalUnique = anMaxUnique
		}
		if anTopPairs > 0 {
			aopt.TopPairs = anTopPairs
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !anQuiet && total > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := loadTable(path, dopt)
			if err != nil {
				return err
			}
			rep, err := analysis.BuildReport(t, aopt)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			var body []byte
			ext := ".summary.md"
			if anJSON {
				if body, err = utils.PrettyJSON(rep); err != nil {
					return err
				}
				ext = ".summary.json"
			} else {
				body = []byte(rep.Markdown())
			}
			if anOutDir == "" {
				fmt.Fprintln(out, string(body))
				continue
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			dst := uniquePath(filepath.Join(anOutDir, base+ext))
			if err := writeOutput(dst, body); err != nil {
				return err
			}
			if !anQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", dst)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (default from extension)")
	analyzeCmd.Flags().IntVar(&anMaxUnique, "max-unique", 0, "distinct-value ceiling for categorical columns (overrides config)")
	analyzeCmd.Flags().IntVar(&anTopPairs, "top-pairs", 0, "number of correlation pairs to list")
	analyzeCmd.Flags().BoolVar(&anJSON, "json", false, "emit the report as JSON")
	analyzeCmd.Flags().StringVarP(&anOutDir, "output-dir", "o", "", "write one report per input into this directory")
	analyzeCmd.Flags().BoolVar(&anQuiet, "quiet", false, "suppress progress and non-essential output")
}

// expandInputs resolves globs, keeps literal paths that exist, drops duplicates and sorts.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// uniquePath appends __2, __3, ... before the extension until path is unused.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	stem, ext := name, ""
	if i := strings.Index(name, "."); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}
