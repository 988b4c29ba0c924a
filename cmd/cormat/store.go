package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect stored distance matrices",
	}
	cmd.AddCommand(a.storeListCmd())
	cmd.AddCommand(a.storeShowCmd())
	cmd.AddCommand(a.storeDeleteCmd())
	return cmd
}

func (a *app) storeListCmd() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored distance matrices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			sums, err := s.List(cmd.Context(), only)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMETRIC\tSIZE\tCREATED")
			for _, sum := range sums {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					sum.ID, sum.Metric, sum.Size, sum.CreatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "list only matrices built with this metric")
	return cmd
}

func (a *app) storeShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored distance matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.loadRecord(cmd, args[0])
			if err != nil {
				return err
			}
			n, _ := rec.Matrix.Dims()
			a.logger.Info("record",
				"id", rec.ID, "metric", rec.Metric, "size", n,
				"labels", strings.Join(rec.Labels, ","), "params", rec.Params)

			if output == "" {
				return writeCSV(a.out, rec.Matrix)
			}
			return saveCSV(output, rec.Matrix)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV file (default stdout)")
	return cmd
}

func (a *app) storeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored distance matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return errors.Wrapf(err, "record id %q", args[0])
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.logger.Info("deleted", "id", id)
			return nil
		},
	}
}
