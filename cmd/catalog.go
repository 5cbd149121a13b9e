/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/exitcode"
	"github.com/fulmenhq/isolinks/pkg/mirror"
	"github.com/fulmenhq/isolinks/pkg/report"
	"github.com/spf13/cobra"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog entries with their mode and validation status",
		Args:  cobra.NoArgs,
		RunE:  runCatalog,
	}
	cmd.Flags().String("catalog", "", "Catalog path or URL (overrides catalog.source)")
	cmd.Flags().Bool("strict", false, "Exit non-zero when any entry is invalid")
	return cmd
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		cfg.Catalog.Source = v
	}

	client := mirror.NewClient(cfg.MirrorOptions())
	cat, err := catalog.Load(cmd.Context(), cfg.Catalog.Source, client)
	if err != nil {
		return withCode(catalogLoadCode(err), err)
	}

	out := cmd.OutOrStdout()
	if err := report.CatalogTable(out, cat); err != nil {
		return err
	}

	invalid := 0
	for _, e := range cat.Entries {
		if !e.Valid() {
			invalid++
		}
	}
	if _, err := fmt.Fprintf(out, "\n%d entr%s, %d invalid\n", len(cat.Entries), plural(len(cat.Entries), "y", "ies"), invalid); err != nil {
		return err
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict && invalid > 0 {
		return withCode(exitcode.CatalogError, fmt.Errorf("%d invalid catalog entr%s", invalid, plural(invalid, "y", "ies")))
	}
	return nil
}

// catalogLoadCode separates an unreachable remote catalog from a bad one.
func catalogLoadCode(err error) int {
	var netErr *mirror.NetworkError
	if errors.As(err, &netErr) || errors.Is(err, mirror.ErrRetriesExhausted) {
		return exitcode.NetworkError
	}
	return exitcode.CatalogError
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
