package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/scriptlet/internal/parser"
	"github.com/conneroisu/scriptlet/internal/security"
	"github.com/conneroisu/scriptlet/internal/token"
)

var (
	validateFile           bool
	validateListFunctions  bool
	validateListCategories bool
)

// validateCmd checks expressions or template files against the security
// policy and the structural rules, without touching the cache.
var validateCmd = &cobra.Command{
	Use:     "validate [expression|file...]",
	Aliases: []string{"v"},
	Short:   "Validate expressions against the security policy",
	Long: `Validate checks each argument against the security policy: forbidden
patterns first, then the function allow-set. With --file, arguments are
template files that are additionally parsed for structural errors.

Exit status is non-zero when any argument fails validation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		policy := security.NewPolicy(
			security.WithAdditionalFunctions(cfg.Security.AdditionalAllowedFunctions),
		)

		if validateListFunctions {
			for _, name := range policy.AllowedFunctions() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}
		if validateListCategories {
			title := cases.Title(language.English)
			for _, category := range policy.Categories() {
				fmt.Fprintln(cmd.OutOrStdout(), title.String(category))
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("nothing to validate; pass expressions or --file paths")
		}

		failures := 0
		for _, arg := range args {
			if err := validateOne(cmd, policy, arg); err != nil {
				failures++
				fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", arg, err)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %s\n", arg)
			}
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d arguments failed validation", failures, len(args))
		}
		return nil
	},
}

// validateOne checks a single expression, or a template file when --file is
// set. Files are parsed first so structural errors surface before policy
// errors.
func validateOne(cmd *cobra.Command, policy *security.Policy, arg string) error {
	if !validateFile {
		_, err := policy.Validate(arg)
		return err
	}

	raw, err := os.ReadFile(arg)
	if err != nil {
		return err
	}
	text := string(raw)

	p := parser.New()
	parsed, err := p.Parse(text)
	if err != nil {
		return err
	}
	for _, tok := range parsed.Tokens {
		switch tok.Kind {
		case token.Expression, token.IfOpen, token.ElseIf, token.VarAssign:
			if _, err := policy.Validate(tok.Value); err != nil {
				return fmt.Errorf("at offset %d: %w", tok.Position, err)
			}
		case token.FuncOpen:
			if err := policy.ValidateFunctionName(tok.Name); err != nil {
				return fmt.Errorf("at offset %d: %w", tok.Position, err)
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateFile, "file", "f", false, "treat arguments as template file paths")
	validateCmd.Flags().BoolVar(&validateListFunctions, "list-functions", false, "print the function allow-set and exit")
	validateCmd.Flags().BoolVar(&validateListCategories, "list-categories", false, "print the forbidden-pattern categories and exit")
}
