package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/recipegate/internal/config"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect domain policies",
	}
	cmd.AddCommand(newPolicyListCmd())
	return cmd
}

func newPolicyListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the domain policy table grouped by kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policies := dompolicy.Defaults()
			if configPath != "" {
				cfg, err := config.LoadFile(configPath)
				if err != nil {
					return err
				}
				extra := make([]dompolicy.Policy, len(cfg.Policy.Overrides))
				for i, o := range cfg.Policy.Overrides {
					extra[i] = dompolicy.Policy{
						Domain: o.Domain, Kind: dompolicy.Kind(o.Kind), Boost: o.Boost, Reason: o.Reason,
					}
				}
				policies = dompolicy.Merge(policies, extra)
			}
			return printPolicies(cmd.OutOrStdout(), dompolicy.NewTable(policies))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "apply policy overrides from a config file")
	return cmd
}

func printPolicies(w io.Writer, table *dompolicy.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	byKind := table.ByKind()
	for _, k := range dompolicy.Kinds() {
		ps := byKind[k]
		if len(ps) == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s (%d)\n", k, len(ps))
		for _, p := range ps {
			fmt.Fprintf(tw, "  %s\t%.2f\t%s\n", p.Domain, p.Boost, p.Reason)
		}
	}
	return tw.Flush()
}
