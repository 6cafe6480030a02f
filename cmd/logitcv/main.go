// Command logitcv trains and tunes a logistic regression classifier on a
// binary-labelled CSV such as the South African heart disease data.
//
//	logitcv train --config logitcv.yaml
//	logitcv search --data heart.csv --out results
//	logitcv plot
//	logitcv evaluate results/model.json
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/logitcv/config"
	"github.com/YuminosukeSato/logitcv/experiment"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "logitcv:", err)
		os.Exit(1)
	}
}

// cli carries the configuration loaded by the root command's pre-run hook.
type cli struct {
	cfg *config.Config
}

func (c *cli) runner() *experiment.Runner {
	return experiment.NewRunner(c.cfg)
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "logitcv",
		Short:         "Logistic regression with cross-validated grid search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("data", "", "CSV file, overrides data.path")
	flags.String("out", "", "output directory, overrides output.dir")

	root.AddCommand(
		newTrainCommand(c),
		newSearchCommand(c),
		newPlotCommand(c),
		newEvaluateCommand(c),
	)
	return root
}

// load reads the config file and applies command line overrides.
func (c *cli) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if flags.Changed("data") {
		cfg.Data.Path, _ = flags.GetString("data")
	}
	if flags.Changed("out") {
		cfg.Output.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.SetupLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
