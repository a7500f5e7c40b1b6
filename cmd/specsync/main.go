package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/specsync/internal/archive"
	"github.com/frederic-klein/specsync/internal/config"
	"github.com/frederic-klein/specsync/internal/downloader"
	"github.com/frederic-klein/specsync/internal/extractor"
	"github.com/frederic-klein/specsync/internal/resolver"
	"github.com/frederic-klein/specsync/internal/specfile"
)

type options struct {
	outdir      string
	dir         string
	archivePath string
	configPath  string
	dryRun      bool
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "specsync",
		Short: "Synchronize RPM spec file requirements with upstream Python metadata",
		Long: "specsync reads the install, extras and test requirements of a Python source archive " +
			"and rewrites the Requires/BuildRequires lines of the spec files next to it so their " +
			"minimum versions match upstream. Missing and stale requirements are reported.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, cmd.OutOrStdout())
		},
	}

	rootCmd.Flags().StringVar(&opts.outdir, "outdir", "", "Output directory (accepted for source service compatibility, unused)")
	rootCmd.Flags().StringVarP(&opts.dir, "dir", "C", ".", "Package directory holding the archive and spec files")
	rootCmd.Flags().StringVarP(&opts.archivePath, "archive", "a", "", "Source archive path or http(s) URL (default: newest *.tar.* in --dir)")
	rootCmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (default: <dir>/"+config.DefaultFile+" if present)")
	rootCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report differences without rewriting spec files")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	return rootCmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return cfg.Build()
}

func run(opts *options, out io.Writer) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	// Load configuration
	configPath, required := opts.configPath, true
	if configPath == "" {
		configPath, required = filepath.Join(opts.dir, config.DefaultFile), false
	}
	cfg, err := config.NewLoader(logger).Load(configPath, required)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Locate the source archive
	archivePath := opts.archivePath
	if downloader.IsURL(archivePath) {
		archivePath, err = downloader.NewDownloader(opts.dir, logger).Fetch(archivePath)
		if err != nil {
			return fmt.Errorf("fetching archive: %w", err)
		}
	}
	if archivePath == "" {
		archivePath, err = archive.Select(opts.dir)
		if err != nil {
			return fmt.Errorf("selecting archive: %w", err)
		}
	}
	logger.Info("using archive", zap.String("path", archivePath))

	// Extract requirement metadata
	meta, err := extractor.NewExtractor(logger).Extract(archivePath)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", filepath.Base(archivePath), err)
	}

	// Resolve requirements
	res := resolver.NewResolver(cfg.Target.Environment(), cfg.IgnoreSet(), logger)
	resolution, err := res.Resolve(meta)
	if err != nil {
		return fmt.Errorf("resolving requirements: %w", err)
	}
	logger.Info("resolved requirements",
		zap.Int("requirements", len(resolution.Requirements)),
		zap.Int("discarded", len(resolution.Discarded)))

	// Synchronize spec files
	specFiles, err := archive.SpecFiles(opts.dir)
	if err != nil {
		return fmt.Errorf("finding spec files: %w", err)
	}
	if len(specFiles) == 0 {
		fmt.Fprintf(out, "No spec files found in %s\n", opts.dir)
		return nil
	}

	var rewritten, failing int
	for _, path := range specFiles {
		rep, err := specfile.SyncFile(path, resolution.Requirements, specfile.Options{
			DryRun: opts.dryRun,
			Ignore: res.Sanitizer(),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		logger.Debug("synchronized spec file",
			zap.String("path", path),
			zap.Int("rewritten", rep.Rewritten),
			zap.Int("missing", len(rep.Missing)),
			zap.Int("unexpected", len(rep.Unexpected)))
		if rep.HasErrors() {
			failing++
		}
		rewritten += rep.Rewritten
		if rep.Empty() {
			continue
		}
		if err := rep.Print(out); err != nil {
			return fmt.Errorf("printing report: %w", err)
		}
	}

	verb := "Synchronized"
	if opts.dryRun {
		verb = "Checked"
	}
	fmt.Fprintf(out, "%s %d spec files against %d requirements (%d lines updated, %d with errors)\n",
		verb, len(specFiles), len(resolution.Requirements), rewritten, failing)
	return nil
}
