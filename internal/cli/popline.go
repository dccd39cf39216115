// Package cli は popline と cancerapi のコマンドを組み立てます。
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/popforest/config"
	"github.com/YuminosukeSato/popforest/pipeline"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/tracking"
)

// PoplineOptions は popline の全コマンド共通のフラグと読み込んだ設定
type PoplineOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	cfg *config.Config
}

// NewPoplineCommand は popline のルートコマンドを作成する
func NewPoplineCommand() *cobra.Command {
	opts := &PoplineOptions{}

	cmd := &cobra.Command{
		Use:   "popline",
		Short: "Spotify popularity pipeline",
		Long: "popline runs the Spotify popularity pipeline one stage at a time:\n" +
			"clean → features → train v1 / train v2 → compare → view.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "configs/popline.yaml", "config file (defaults are used if it does not exist)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|console)")

	cmd.AddCommand(newCleanCommand(opts))
	cmd.AddCommand(newFeaturesCommand(opts))
	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newCompareCommand(opts))
	cmd.AddCommand(newViewCommand(opts))
	cmd.AddCommand(newRunsCommand(opts))
	cmd.AddCommand(newInitConfigCommand(opts))

	return cmd
}

func (o *PoplineOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := log.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()); err != nil {
		return err
	}
	o.cfg = cfg
	log.GetLoggerWithName("cli").Debug("Configuration loaded", log.PathKey, o.ConfigPath, "config", cfg.String())
	return nil
}

// withRunner はランレジャーを必要に応じて開き、fn の終了後に閉じる
func (o *PoplineOptions) withRunner(cmd *cobra.Command, fn func(ctx context.Context, r *pipeline.Runner) error) (err error) {
	var runnerOpts []pipeline.Option
	if o.cfg.Tracking.Enabled {
		var ledger *tracking.Ledger
		if ledger, err = tracking.Open(o.cfg.Tracking.DBPath); err != nil {
			return err
		}
		defer func() {
			if cerr := ledger.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "close ledger")
			}
		}()
		runnerOpts = append(runnerOpts, pipeline.WithLedger(ledger))
	}
	return fn(cmd.Context(), pipeline.NewRunner(cmd.OutOrStdout(), runnerOpts...))
}

func newCleanCommand(opts *PoplineOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove duplicate rows and rows with missing values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
				_, err := r.Clean(ctx, opts.cfg.RawPath(), opts.cfg.CleanedPath())
				return err
			})
		},
	}
}

func newFeaturesCommand(opts *PoplineOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Add the derived feature columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
				_, err := r.EngineerFeatures(ctx, opts.cfg.CleanedPath(), opts.cfg.FeaturedPath())
				return err
			})
		},
	}
}

func newTrainCommand(opts *PoplineOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "train v1|v2",
		Short:     "Train a random forest model version",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"v1", "v2"},
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := opts.cfg.TrainSpec(args[0])
			if err != nil {
				return err
			}
			return opts.withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
				_, err := r.Train(ctx, spec, opts.cfg.FeaturedPath())
				return err
			})
		},
	}
}

func metricsPaths(cfg *config.Config) (string, string, error) {
	v1, err := cfg.MetricsPath("v1")
	if err != nil {
		return "", "", err
	}
	v2, err := cfg.MetricsPath("v2")
	if err != nil {
		return "", "", err
	}
	return v1, v2, nil
}

func newCompareCommand(opts *PoplineOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Compare the metrics of v1 and v2",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v1, v2, err := metricsPaths(opts.cfg)
			if err != nil {
				return err
			}
			return opts.withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
				_, err := r.Compare(ctx, v1, v2, opts.cfg.ComparisonPath())
				return err
			})
		},
	}
}

func newViewCommand(opts *PoplineOptions) *cobra.Command {
	var chart string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the results dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v1, v2, err := metricsPaths(opts.cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("chart") {
				chart = opts.cfg.View.ChartPath
			}
			return opts.withRunner(cmd, func(ctx context.Context, r *pipeline.Runner) error {
				return r.ViewResults(ctx, v1, v2, pipeline.ViewOptions{ChartPath: chart})
			})
		},
	}
	cmd.Flags().StringVar(&chart, "chart", "", "save a bar chart of the metrics (.png, .svg or .pdf)")
	return cmd
}

func newRunsCommand(opts *PoplineOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List training runs recorded in the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.cfg.Tracking.Enabled {
				return errors.Newf("the run ledger is disabled; enable tracking in the config or set %s", config.EnvTrackingDB)
			}
			ledger, err := tracking.Open(opts.cfg.Tracking.DBPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No training runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %-3s  RMSE %.2f  MAE %.2f  R² %.4f  train=%d test=%d\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.ID[:8], r.Version,
					r.RMSE, r.MAE, r.R2, r.NTrain, r.NTest)
			}
			return nil
		},
	}
}

func newInitConfigCommand(opts *PoplineOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config PATH",
		Short: "Write the default configuration to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Default configuration written to %s\n", args[0])
			return nil
		},
	}
}
