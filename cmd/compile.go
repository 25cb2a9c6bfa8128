package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	compileAll    bool
	compileOutDir string
)

// compileCmd compiles templates from the store and prints or writes the
// resulting fragments.
var compileCmd = &cobra.Command{
	Use:     "compile [template...]",
	Aliases: []string{"c"},
	Short:   "Compile templates from the store",
	Long: `Compile resolves the named templates through the full pipeline: parse,
security validation, compilation, caching. Templates without scripting
constructs pass through unchanged. Compilation failures never abort; the
original template text is emitted instead, matching runtime behavior.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		rt, st, err := buildRuntime(cfg, logger)
		if err != nil {
			return err
		}

		names := args
		if compileAll {
			names, err = st.List()
			if err != nil {
				return fmt.Errorf("listing store %q: %w", st.Root(), err)
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("no templates given; name templates or pass --all")
		}

		for _, name := range names {
			resolved, err := rt.Resolve(cmd.Context(), name)
			if err != nil {
				return err
			}

			if compileOutDir == "" {
				if len(names) > 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "=== %s ===\n", name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), resolved)
				continue
			}

			if err := os.MkdirAll(compileOutDir, 0o755); err != nil {
				return err
			}
			out := filepath.Join(compileOutDir, name+".out")
			if err := os.WriteFile(out, []byte(resolved), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			logger.Info(cmd.Context(), "compiled", "template", name, "output", out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().BoolVarP(&compileAll, "all", "a", false, "compile every template in the store")
	compileCmd.Flags().StringVarP(&compileOutDir, "out", "o", "", "write results to this directory instead of stdout")
}
