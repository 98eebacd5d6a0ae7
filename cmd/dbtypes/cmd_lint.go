package main

import (
	"fmt"

	"github.com/spf13/cobra"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/pkg/registry"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check every record against the rank and native type its name implies",
	Long: `Reports records whose declared shape rank or native type disagrees with
what the canonical name implies. With --strict the command fails when any
finding is reported.`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	src, err := application.Source(ctx)
	if err != nil {
		return err
	}
	// Load leniently so that findings are reported rather than fatal.
	reg, err := registry.Load(ctx, src, registry.WithLogger(logger))
	if err != nil {
		return err
	}

	findings := registry.Lint(reg)
	if jsonOutput {
		out := make([]map[string]string, 0, len(findings))
		for _, f := range findings {
			out = append(out, map[string]string{
				"name":    f.Name,
				"version": f.Version.String(),
				"kind":    string(f.Kind),
				"detail":  f.Detail,
			})
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		for _, f := range findings {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d findings in %d records\n", len(findings), reg.Len())
	}

	if application.Config().Strict && len(findings) > 0 {
		return rerrors.NewLoadError(rerrors.CodeLintFailed, fmt.Sprintf("%d lint findings", len(findings)))
	}
	return nil
}
