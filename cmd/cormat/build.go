package main

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/nozzle/cormat"
	"github.com/nozzle/cormat/dtw"
	"github.com/nozzle/cormat/metric"
	"github.com/nozzle/cormat/series"
	"github.com/nozzle/cormat/store"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func (a *app) pairwiseCmd() *cobra.Command {
	var (
		output     string
		fromSeries bool
		prep       = series.DefaultPrepOptions()
		clip       bool
	)

	cmd := &cobra.Command{
		Use:   "pairwise FILE...",
		Short: "Compute the distance matrix of a collection of matrices",
		Long: `Compute the N×N distance matrix of the matrices in FILE... using the
configured metric. With --from-series each file is a time series (rows are
variables, columns samples) and is first turned into its correlation matrix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prep.KeepAll = !clip
			items := make([]mat.Matrix, len(args))
			for i, path := range args {
				m, err := loadCSV(path)
				if err != nil {
					return err
				}
				if !fromSeries {
					items[i] = m
					continue
				}
				c, err := series.ClippedCorrelation(m, prep)
				if err != nil {
					return errors.Wrapf(err, "correlation of %s", path)
				}
				items[i] = c
			}
			a.logger.Debug("loaded matrices", "n", len(items), "metric", a.cfg.Metric)
			return a.build(cmd.Context(), items, labels(args), output)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	f.BoolVar(&fromSeries, "from-series", false, "inputs are time series, compare their correlation matrices")
	f.BoolVar(&clip, "clip", false, "with --from-series, keep only the leading variables and time window")
	f.IntVar(&prep.Rows, "rows", prep.Rows, "leading variables kept by --clip")
	f.Float64Var(&prep.Clip.SampleRate, "sample-rate", prep.Clip.SampleRate, "samples per time unit for --clip")
	f.Float64Var(&prep.Clip.Leading, "leading", prep.Clip.Leading, "time dropped from the start by --clip")
	f.Float64Var(&prep.Clip.Duration, "duration", prep.Clip.Duration, "time kept by --clip")
	return cmd
}

func (a *app) dtwCmd() *cobra.Command {
	var (
		output string
		length int
	)

	cmd := &cobra.Command{
		Use:   "dtw FILE...",
		Short: "Compute the DTW distance matrix of a collection of time series",
		Long: `Compute the N×N dynamic time warping distance matrix of the series in
FILE.... Rows are time steps and columns features. --metric is ignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.Metric = metric.DTW.String()
			items := make([]mat.Matrix, len(args))
			for i, path := range args {
				s, err := loadCSV(path)
				if err != nil {
					return err
				}
				if length > 0 {
					if s, err = series.Reinterpolate(s, length); err != nil {
						return errors.Wrapf(err, "reinterpolate %s", path)
					}
				}
				items[i] = s
			}
			return a.build(cmd.Context(), items, labels(args), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	cmd.Flags().IntVar(&length, "reinterpolate", 0, "resample every series to this many time steps first")
	cmd.AddCommand(a.alignCmd())
	return cmd
}

func (a *app) alignCmd() *cobra.Command {
	var costOut, accOut string

	cmd := &cobra.Command{
		Use:   "align X Y",
		Short: "Align two time series and print the warping path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := loadCSV(args[0])
			if err != nil {
				return err
			}
			y, err := loadCSV(args[1])
			if err != nil {
				return err
			}
			local, ok := dtw.Locals[a.cfg.Local]
			if !ok {
				return errors.Newf("unknown local distance %q", a.cfg.Local)
			}

			al, err := dtw.Align(x, y, local)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "distance: %g\n", al.Distance)
			for _, c := range al.Path {
				fmt.Fprintf(a.out, "%d,%d\n", c.I, c.J)
			}

			if costOut != "" {
				if err := saveCSV(costOut, al.Cost); err != nil {
					return err
				}
			}
			if accOut != "" {
				if err := saveCSV(accOut, al.Accumulated); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&costOut, "cost", "", "write the local cost matrix to this CSV file")
	cmd.Flags().StringVar(&accOut, "accumulated", "", "write the accumulated cost matrix to this CSV file")
	return cmd
}

// build runs the pairwise builder with the resolved configuration, writes the
// result and stores it when a store is configured.
func (a *app) build(ctx context.Context, items []mat.Matrix, names []string, output string) error {
	cfg, err := a.cfg.builderConfig()
	if err != nil {
		return err
	}
	cfg.Verbose = a.verbose
	cfg.Logger = a.logger

	dists, err := cormat.New(cfg).BuildContext(ctx, items)
	if err != nil {
		return err
	}

	if output == "" {
		if err := writeCSV(a.out, dists); err != nil {
			return err
		}
	} else {
		if err := saveCSV(output, dists); err != nil {
			return err
		}
		a.logger.Info("wrote distance matrix", "path", output, "n", len(items))
	}

	if a.cfg.Store == "" {
		return nil
	}
	s, err := store.Open(a.cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.Save(ctx, store.Record{
		Metric: cfg.Metric.String(),
		Params: a.cfg.params(),
		Labels: names,
		Matrix: dists,
	})
	if err != nil {
		return err
	}
	a.logger.Info("stored distance matrix", "id", id, "store", a.cfg.Store)
	return nil
}
