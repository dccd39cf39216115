package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/popforest/cancer"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/serving"
)

// CancerAPIOptions は cancerapi の共通フラグ
type CancerAPIOptions struct {
	ModelPath string
	LogLevel  string
	LogFormat string
}

// NewCancerAPICommand は cancerapi のルートコマンドを作成する
func NewCancerAPICommand() *cobra.Command {
	opts := &CancerAPIOptions{}

	cmd := &cobra.Command{
		Use:           "cancerapi",
		Short:         "Breast cancer classifier: train and serve",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Setup(opts.LogLevel, opts.LogFormat, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ModelPath, "model", "model/breast_cancer_model.gob", "model file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "json", "log format (json|console)")

	cmd.AddCommand(newCancerTrainCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	return cmd
}

func newCancerTrainCommand(opts *CancerAPIOptions) *cobra.Command {
	var dataPath string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := cancer.LoadData(dataPath)
			if err != nil {
				return err
			}
			split, err := cancer.SplitData(ds)
			if err != nil {
				return err
			}
			res, err := cancer.FitModel(cmd.Context(), split, opts.ModelPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Model saved to %s (test accuracy %.4f)\n", opts.ModelPath, res.Accuracy)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "data/breast_cancer.csv", "breast cancer CSV")
	return cmd
}

func newServeCommand(opts *CancerAPIOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := cancer.LoadModel(opts.ModelPath)
			if err != nil {
				return err
			}
			return serving.NewServer(model, cancer.Label).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
