/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/config"
	"github.com/fulmenhq/isolinks/pkg/exitcode"
	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/mirror"
	"github.com/fulmenhq/isolinks/pkg/products"
	"github.com/fulmenhq/isolinks/pkg/publish"
	"github.com/fulmenhq/isolinks/pkg/report"
	"github.com/fulmenhq/isolinks/pkg/resolve"
	"github.com/fulmenhq/isolinks/pkg/safeio"
)

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [NAME]",
		Short: "Resolve download links and write them to the output file",
		Long: `Resolve walks every catalog entry (or only NAME) with its strategy: mirror
listing scrape, literal DIRECT URL, or the Windows products document. Results
are merged into the output file; entries that could not be resolved are
written as null.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runResolve,
	}
	cmd.Flags().String("catalog", "", "Catalog path or URL (overrides catalog.source)")
	cmd.Flags().StringP("output", "o", "", "Output file (overrides output.path)")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent resolutions (overrides resolve.workers)")
	cmd.Flags().Bool("git", false, "Commit and push the output file when it changed")
	cmd.Flags().Bool("no-push", false, "With --git, commit without pushing")
	cmd.Flags().String("report", "", "Also write a Markdown run report to this file")
	cmd.Flags().Bool("strict", false, "Exit non-zero when any distribution is unresolved")
	return cmd
}

// resolveDeps are the collaborators runResolve builds from configuration.
// Tests replace them with scripted fakes.
type resolveDeps struct {
	mirror   func(opts mirror.Options) *mirror.Client
	products func(cfg *config.Config) resolve.ProductCatalog
	now      func() time.Time
}

var defaultResolveDeps = resolveDeps{
	mirror: mirror.NewClient,
	products: func(cfg *config.Config) resolve.ProductCatalog {
		updater := products.NewCommandUpdater(cfg.Windows.UpdateCommand, cfg.Windows.UpdateTimeout)
		return products.NewSource(cfg.Windows.CacheFile, updater)
	},
	now: time.Now,
}

var resolveDepsOverride *resolveDeps

func runResolve(cmd *cobra.Command, args []string) error {
	deps := defaultResolveDeps
	if resolveDepsOverride != nil {
		deps = *resolveDepsOverride
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyResolveFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return withCode(exitcode.ConfigError, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := deps.mirror(cfg.MirrorOptions())
	cat, err := catalog.Load(ctx, cfg.Catalog.Source, client)
	if err != nil {
		return withCode(catalogLoadCode(err), err)
	}
	for _, e := range cat.Entries {
		for _, w := range e.Warnings {
			logger.Warn("Catalog entry warning", logger.String("name", e.Name), logger.String("warning", w))
		}
	}

	entries := cat.Entries
	if len(args) == 1 {
		entry, ok := cat.Select(args[0])
		if !ok {
			return withCode(exitcode.TargetNotFound, fmt.Errorf("target %q not found in catalog %s", args[0], cat.Source))
		}
		entries = []catalog.Entry{entry}
	}

	engine := resolve.NewEngine(client, deps.products(cfg), resolve.WithWorkers(cfg.Resolve.Workers))
	logger.Info("Resolving distributions",
		logger.Int("count", len(entries)),
		logger.Int("workers", cfg.Resolve.Workers),
		logger.String("catalog", cat.Source))

	results, err := engine.Run(ctx, entries)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return withCode(exitcode.GeneralError, fmt.Errorf("resolution interrupted: %w", err))
		}
		return err
	}

	outPath, err := filepath.Abs(cfg.Output.Path)
	if err != nil {
		return withCode(exitcode.FileSystemError, err)
	}
	// A full run owns the whole file; a single target only refreshes its key.
	writeOpts := publish.WriteOptions{Prune: len(args) == 0}
	changed, err := publish.WriteResults(osfs.New(filepath.Dir(outPath)), filepath.Base(outPath), results, writeOpts)
	if err != nil {
		return withCode(exitcode.FileSystemError, err)
	}
	if changed {
		logger.Info("Wrote results", logger.String("path", outPath))
	} else {
		logger.Info("Results unchanged", logger.String("path", outPath))
	}

	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		if err := writeReport(reportPath, results, report.Meta{Catalog: cat.Source, Generated: deps.now()}); err != nil {
			return withCode(exitcode.FileSystemError, err)
		}
	}

	if err := printSummary(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	if useGit, _ := cmd.Flags().GetBool("git"); useGit {
		noPush, _ := cmd.Flags().GetBool("no-push")
		if err := publishGit(ctx, cfg, outPath, noPush); err != nil {
			return withCode(exitcode.PublishError, err)
		}
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		if s := results.Summary(); s.Unresolved > 0 {
			return withCode(exitcode.Unresolved, fmt.Errorf("%d distribution(s) unresolved", s.Unresolved))
		}
	}
	return nil
}

func applyResolveFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		cfg.Catalog.Source = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.Path = v
	}
	if cmd.Flags().Changed("workers") {
		cfg.Resolve.Workers, _ = cmd.Flags().GetInt("workers")
	}
}

func printSummary(w io.Writer, results *resolve.Results) error {
	if err := report.Table(w, results.Outcomes()); err != nil {
		return err
	}
	s := results.Summary()
	_, err := fmt.Fprintf(w, "\nProcessed %d distribution(s). Errors/Skipped/Not Found: %d\n", s.Processed, s.Unresolved)
	return err
}

func writeReport(path string, results *resolve.Results, meta report.Meta) error {
	md, err := report.RenderMarkdown(results, meta)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := safeio.WriteFileAtomic(osfs.New(filepath.Dir(abs)), filepath.Base(abs), []byte(md)); err != nil {
		return fmt.Errorf("failed to write report %s: %w", abs, err)
	}
	logger.Info("Wrote report", logger.String("path", abs))
	return nil
}

func publishGit(ctx context.Context, cfg *config.Config, outPath string, noPush bool) error {
	pub, err := publish.OpenGitPublisher(filepath.Dir(outPath), publish.GitOptions{
		Remote:      cfg.Git.Remote,
		Branch:      cfg.Git.Branch,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
		Token:       cfg.GitToken(),
		NoPush:      noPush,
	})
	if err != nil {
		return err
	}
	res, err := pub.Publish(ctx, outPath)
	if err != nil {
		return err
	}
	if !res.Committed {
		logger.Info("No changes to commit", logger.String("path", outPath))
	}
	return nil
}
