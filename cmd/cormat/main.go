// Command cormat computes pairwise distance matrices between correlation
// matrices or time series, embeds them and keeps them in a local store.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// app carries the state shared by all commands.
type app struct {
	configPath string
	verbose    bool

	flags fileConfig // values bound to flags
	cfg   fileConfig // file config with flag overrides applied

	logger *log.Logger
	out    io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		out:    stdout,
		logger: log.NewWithOptions(stderr, log.Options{ReportTimestamp: true, Prefix: "cormat"}),
	}
}

// rootCmd builds the command tree.
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cormat",
		Short: "Pairwise distances between correlation matrices and time series",
		Long: `cormat compares symmetric positive (semi-)definite matrices, typically
correlation matrices of multivariate time series, with Euclidean,
Bures-Wasserstein, Bures angle, affine-invariant and log-Euclidean metrics,
and compares raw series with dynamic time warping.

Matrices and series are read from headerless CSV files. Build options can be
given in a YAML file (--config); flags override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.verbose {
				a.logger.SetLevel(log.DebugLevel)
			}
			file, err := loadFileConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = mergeFlags(cmd, file, a.flags)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	bindFlags(root, &a.flags)

	root.AddCommand(a.pairwiseCmd())
	root.AddCommand(a.dtwCmd())
	root.AddCommand(a.corrCmd())
	root.AddCommand(a.embedCmd())
	root.AddCommand(a.neighborsCmd())
	root.AddCommand(a.storeCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		a.logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// labels names items after their files.
func labels(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
	}
	return out
}
