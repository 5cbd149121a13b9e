/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fulmenhq/isolinks/pkg/buildinfo"
	"github.com/fulmenhq/isolinks/pkg/config"
	"github.com/fulmenhq/isolinks/pkg/exitcode"
	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// Tests build isolated command trees from it.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "isolinks",
		Short: "Resolve current download links for Linux and Windows installation images",
		Long: `Isolinks resolves, for every distribution in a catalog, the current installation
image URL together with its checksum, size and version, and publishes the
results as links.json.

Examples:
   isolinks resolve              # Resolve every catalog entry into links.json
   isolinks resolve Debian       # Refresh a single entry in place
   isolinks resolve --git        # Resolve, then commit and push links.json
   isolinks catalog              # List catalog entries and their validation status
   isolinks version              # Show version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Config file (default: isolinks.yaml in ., $HOME or $ISOLINKS_HOME/config)")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("isolinks {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newResolveCommand())
	cmd.AddCommand(newCatalogCommand())
	cmd.AddCommand(newVersionCommand())
}

var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return exitcode.String(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// codeOf maps a command error to its exit code.
func codeOf(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitcode.GeneralError
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	code := codeOf(err)
	if logger.Default() != nil {
		logger.Error("Command execution failed", logger.Err(err), logger.Int("exit_code", code))
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor && os.Getenv("NO_COLOR") == "",
		JSON:      jsonLogs,
		Component: "isolinks",
	}

	if err := logger.Initialize(cfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}

// loadConfig reads configuration honoring the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{ConfigFile: path})
	if err != nil {
		return nil, withCode(exitcode.ConfigError, err)
	}
	return cfg, nil
}
