// Command recipegatectl runs the recipe pipeline from the command line
// and inspects policies and telemetry.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/recipegate/internal/logger"
	"github.com/kailas-cloud/recipegate/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "recipegatectl",
		Short:         "Allergen-safe recipe search from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")

	root.AddCommand(
		newSearchCmd(opts),
		newPolicyCmd(),
		newEventsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) logger() (*zap.Logger, error) {
	l, err := logpkg.NewLogger(logpkg.EnvCLI, o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) error {
	_, err := fmt.Fprintln(w, "recipegatectl", version.String())
	return err
}
