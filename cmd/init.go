package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/scriptlet/internal/config"
)

var initForce bool

const sampleTemplate = `<h1>{= strtoupper($title) }</h1>
<if $subtitle then><p>{= $subtitle }</p></if>
`

// initCmd writes a starter configuration and a sample template store.
var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"i"},
	Short:   "Write a starter .scriptlet.yml and template store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()

		if _, err := os.Stat(".scriptlet.yml"); err == nil && !initForce {
			return fmt.Errorf(".scriptlet.yml already exists (use --force to overwrite)")
		}

		raw, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("rendering config: %w", err)
		}
		if err := os.WriteFile(".scriptlet.yml", raw, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote .scriptlet.yml")

		if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
			return err
		}
		sample := filepath.Join(cfg.Store.Path, "welcome.tpl")
		if _, err := os.Stat(sample); os.IsNotExist(err) {
			if err := os.WriteFile(sample, []byte(sampleTemplate), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", sample)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "run `scriptlet serve` to preview templates")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing .scriptlet.yml")
}
