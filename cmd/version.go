/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fulmenhq/isolinks/pkg/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the isolinks version",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show Go toolchain and platform information")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	version := buildinfo.Version()

	if jsonOutput {
		info := map[string]interface{}{"version": version}
		if extended {
			info["goVersion"] = runtime.Version()
			info["platform"] = runtime.GOOS
			info["arch"] = runtime.GOARCH
			if mv := buildinfo.ModuleVersion(); mv != "" {
				info["moduleVersion"] = mv
			}
		}
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if _, err := fmt.Fprintf(out, "isolinks %s\n", version); err != nil {
		return err
	}
	if extended {
		_, err := fmt.Fprintf(out, "Go Version: %s\nPlatform: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return err
	}
	return nil
}
