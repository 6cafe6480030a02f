package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

func newTrainCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Fit the configured model on the training split and score it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.runner().Train(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderCoefficients(out, report.Model.Classifier())
			renderEvaluation(out, []string{"train", "test"}, report.Train, report.Test)
			if report.WeightsPath != "" {
				fmt.Fprintf(out, "weights written to %s\n", report.WeightsPath)
			}
			return nil
		},
	}
}

func newSearchCommand(c *cli) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Grid search hyperparameters with k-fold cross-validation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var progress func(done, total int)
			if !quiet {
				progress = newProgress(cmd.ErrOrStderr())
			}
			report, err := c.runner().Search(cmd.Context(), progress)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderCandidates(out, report.Grid, report.Result)
			fmt.Fprintf(out, "best: %s (mean validation score %.4f, %v)\n",
				report.Grid.FormatCombination(report.Result.Best().Combination),
				report.Result.BestScore, report.Result.Elapsed.Round(time.Millisecond))
			renderEvaluation(out, []string{"test"}, report.Test)
			if report.WeightsPath != "" {
				fmt.Fprintf(out, "weights written to %s\n", report.WeightsPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	return cmd
}

// newProgress returns a search progress callback drawing a bar on w. The bar
// is created on the first call, once the task count is known.
func newProgress(w io.Writer) func(done, total int) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("cross-validating"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
		}
	}
}

func newPlotCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [feature...]",
		Short: "Scatter each numeric feature against the label",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				c.cfg.Output.PlotFeatures = args
			}
			if err := c.runner().Plot(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plots written to %s/plots\n", c.cfg.Output.Dir)
			return nil
		},
	}
	return cmd
}

func newEvaluateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate [weights.json]",
		Short: "Score saved weights on the held-out split",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := c.runner()
			path := r.WeightsPath()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return lerrors.NewConfigurationError("output.weights_file", "no weights file given", path)
			}
			ev, err := r.EvaluateSaved(path)
			if err != nil {
				return err
			}
			renderEvaluation(cmd.OutOrStdout(), []string{"test"}, ev)
			return nil
		},
	}
}
