package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bagtoad/libload/internal/bundle"
	"github.com/bagtoad/libload/internal/config"
	"github.com/bagtoad/libload/internal/extract"
	"github.com/bagtoad/libload/internal/libname"
	"github.com/bagtoad/libload/internal/loader"
	"github.com/bagtoad/libload/internal/logger"
	"github.com/bagtoad/libload/internal/ortenv"
	"github.com/bagtoad/libload/internal/report"
	"github.com/bagtoad/libload/internal/tempfile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	temp   *tempfile.Tracker
	loader *loader.Loader
}

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)

	stop := a.cleanupOnSignal()
	err := rootCmd.Execute()
	stop()
	a.cleanup()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var bundlePath, prefix, logLevel string

	rootCmd := &cobra.Command{
		Use:   "libload",
		Short: "Extract native libraries from a bundle and load them into the process",
		Long: `libload reads native shared libraries stored under a fixed prefix
(jnilibs/ by default) inside a zip bundle, copies each one to a temporary
file and loads it with the platform's dynamic loader. Each library name is
loaded at most once per process.

The bundle defaults to the running executable; set --bundle or
LIBLOAD_BUNDLE_PATH to read another archive.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(bundlePath, prefix, logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&bundlePath, "bundle", "", "Bundle to read instead of the running executable")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "Namespace inside the bundle holding native libraries")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(a.loadCmd(), a.listCmd(), a.extractCmd(), a.ortCmd())
	return rootCmd
}

func (a *app) setup(bundlePath, prefix, logLevel string) error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if bundlePath != "" {
		cfg.Bundle.Path = bundlePath
	}
	if prefix != "" {
		cfg.Bundle.Prefix = prefix
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("cannot create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.temp = &tempfile.Tracker{Dir: cfg.Extract.TempDir}
	a.loader = loader.New(loader.Options{
		Locator:    a.locator(),
		Temp:       a.temp,
		Prefix:     cfg.Bundle.Prefix,
		BufferSize: cfg.Extract.BufferSize,
		Logger:     log,
	})
	return nil
}

func (a *app) locator() bundle.Locator {
	if a.cfg.Bundle.Path != "" {
		return bundle.Fixed(a.cfg.Bundle.Path)
	}
	return bundle.Executable
}

// cleanup removes extracted files. Best effort: a killed process skips it.
func (a *app) cleanup() {
	if a.temp == nil {
		return
	}
	if err := a.temp.Cleanup(); err != nil && a.log != nil {
		a.log.Warn("cannot remove extracted libraries", zap.Error(err))
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) cleanupOnSignal() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			a.cleanup()
			os.Exit(130)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [name...]",
		Short: "Load libraries from the bundle",
		Long: `Load each named library from the bundle. Names are paths relative to
the prefix, e.g. linux-amd64/libfoo.so. A name written as @foo is qualified
for the current platform. With no names, the list file
(~/.libload/libraries.txt or LIBLOAD_LIBRARIES_LIST) is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			listPath := a.cfg.Libraries.List
			if listPath == "" {
				if p, err := libname.DefaultListPath(); err == nil {
					listPath = p
				}
			}
			names, err := libname.Resolve(args, listPath)
			if err != nil {
				return err
			}

			var failures []report.Failure
			for _, name := range names {
				if err := a.loader.Load(name); err != nil {
					a.log.Error("load failed", zap.String("name", name), zap.Error(err))
					failures = append(failures, report.Failure{Name: name, Err: err})
				}
			}

			report.PrintLoaded(cmd.OutOrStdout(), a.loader.Libraries(), failures)
			if len(failures) > 0 {
				return fmt.Errorf("%d of %d libraries failed to load", len(failures), len(names))
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the libraries stored in the bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBundle()
			if err != nil {
				return err
			}
			defer b.Close()

			names := b.Libraries(a.cfg.Bundle.Prefix)
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No libraries under %s in %s\n", a.cfg.Bundle.Prefix, b.Path())
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func (a *app) extractCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "extract <directory>",
		Short: "Copy every library in the bundle into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBundle()
			if err != nil {
				return err
			}
			defer b.Close()

			results, err := extract.Extract(b, a.cfg.Bundle.Prefix, args[0], dryRun)
			if err != nil {
				return err
			}
			report.PrintExtracted(cmd.OutOrStdout(), results, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be extracted without writing files")
	return cmd
}

func (a *app) ortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ort [name]",
		Short: "Initialize ONNX Runtime from the bundle and print its version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ortenv.DefaultLibrary
			if len(args) == 1 {
				name = libname.Expand(args[0])
			}

			rt, err := ortenv.Initialize(a.loader, name)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Destroy(); err != nil {
					a.log.Warn("cannot destroy ONNX Runtime environment", zap.Error(err))
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "ONNX Runtime %s loaded from %s\n", rt.Version(), rt.Path)
			return nil
		},
	}
}

func (a *app) openBundle() (*bundle.Bundle, error) {
	p, err := a.locator()()
	if err != nil {
		return nil, err
	}
	return bundle.Open(p)
}
