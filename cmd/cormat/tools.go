package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nozzle/cormat"
	"github.com/nozzle/cormat/embed"
	"github.com/nozzle/cormat/series"
	"github.com/nozzle/cormat/store"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func (a *app) corrCmd() *cobra.Command {
	var (
		output string
		clip   bool
		prep   = series.DefaultPrepOptions()
		block  int
	)

	cmd := &cobra.Command{
		Use:   "corr FILE",
		Short: "Compute the correlation matrix of a time series",
		Long: `Compute the Pearson correlation matrix of the time series in FILE, whose
rows are variables and columns samples. The numerical rank is logged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := loadCSV(args[0])
			if err != nil {
				return err
			}
			prep.KeepAll = !clip
			c, err := series.ClippedCorrelation(ts, prep)
			if err != nil {
				return err
			}

			var out mat.Matrix = c
			if block > 0 {
				if out, err = series.LeadingBlock(c, block); err != nil {
					return err
				}
			}

			rank, err := series.NumericalRank(out, series.DefaultRankTol)
			if err != nil {
				return err
			}
			n, _ := out.Dims()
			a.logger.Info("correlation matrix", "size", n, "rank", rank)

			if output == "" {
				return writeCSV(a.out, out)
			}
			return saveCSV(output, out)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	f.BoolVar(&clip, "clip", false, "keep only the leading variables and time window")
	f.IntVar(&prep.Rows, "rows", prep.Rows, "leading variables kept by --clip")
	f.Float64Var(&prep.Clip.SampleRate, "sample-rate", prep.Clip.SampleRate, "samples per time unit for --clip")
	f.Float64Var(&prep.Clip.Leading, "leading", prep.Clip.Leading, "time dropped from the start by --clip")
	f.Float64Var(&prep.Clip.Duration, "duration", prep.Clip.Duration, "time kept by --clip")
	f.IntVar(&block, "block", 0, "keep only the leading k×k block of the result")
	return cmd
}

func (a *app) embedCmd() *cobra.Command {
	var (
		output    string
		dims      int
		scale     float64
		normalize bool
		id        string
	)

	cmd := &cobra.Command{
		Use:   "embed [FILE]",
		Short: "Embed a distance matrix with classical multidimensional scaling",
		Long: `Embed the distance matrix in FILE, or the stored matrix given by --id,
into a low-dimensional space. Kruskal stress is logged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d mat.Matrix
			switch {
			case id != "" && len(args) == 0:
				rec, err := a.loadRecord(cmd, id)
				if err != nil {
					return err
				}
				d = rec.Matrix
			case id == "" && len(args) == 1:
				m, err := loadCSV(args[0])
				if err != nil {
					return err
				}
				d = m
			default:
				return errors.New("give either FILE or --id")
			}

			emb, err := embed.MDS(d, dims)
			if err != nil {
				return err
			}
			stress, err := embed.Stress(d, emb)
			if err != nil {
				return err
			}
			a.logger.Info("embedded", "dims", dims, "stress", stress)

			switch {
			case normalize:
				embed.NormalizeTo01(emb)
			case scale > 0:
				embed.ScaleAndCenter(emb, scale)
			}

			if output == "" {
				return writeCSV(a.out, rowsMatrix(emb))
			}
			return saveCSV(output, rowsMatrix(emb))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	f.IntVarP(&dims, "components", "k", 2, "number of output dimensions")
	f.Float64Var(&scale, "scale", 0, "center and scale so the largest coordinate is this value (0 = off)")
	f.BoolVar(&normalize, "normalize", false, "rescale every dimension to [0, 1]")
	f.StringVar(&id, "id", "", "embed a stored matrix instead of a file")
	return cmd
}

func (a *app) neighborsCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "neighbors FILE",
		Short: "List the k nearest items of every row of a distance matrix",
		Long: `List the k nearest other items of every row of the distance matrix in
FILE. Each output line is: item, neighbour, distance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadCSV(args[0])
			if err != nil {
				return err
			}
			nn, err := cormat.Neighbors(d, k)
			if err != nil {
				return err
			}
			for i, row := range nn {
				for _, nb := range row {
					fmt.Fprintf(a.out, "%d,%d,%g\n", i, nb.Index, nb.Distance)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "neighbors", "k", 5, "neighbours per item")
	return cmd
}

// loadRecord loads a stored record by its textual ID.
func (a *app) loadRecord(cmd *cobra.Command, raw string) (*store.Record, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "record id %q", raw)
	}
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Load(cmd.Context(), id)
}

func (a *app) openStore() (*store.Store, error) {
	if a.cfg.Store == "" {
		return nil, errors.New("no store configured (use --store or the store key)")
	}
	return store.Open(a.cfg.Store)
}
