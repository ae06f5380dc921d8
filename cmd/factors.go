package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/tank-risk/internal/factor"
)

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "List the risk factor catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("factors"); err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		if err := catalog.Validate(); err != nil {
			return err
		}

		printFactors(cmd.OutOrStdout(), catalog)
		if showAliases, _ := cmd.Flags().GetBool("aliases"); showAliases {
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
			printAliases(cmd.OutOrStdout(), catalog)
		}
		return nil
	},
}

func printFactors(out io.Writer, catalog *factor.Catalog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tKIND\tVALUE\tSEVERITY\tREQUIRED\tSHARED")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t--------\t--------\t------")
	for _, d := range catalog.Definitions() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			d.Name, d.Kind, d.ValueField, d.SeverityField, strings.Join(d.Required, ","), d.Shared)
	}
	_ = w.Flush()
}

func printAliases(out io.Writer, catalog *factor.Catalog) {
	aliases := catalog.Aliases()
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ALIAS\tFACTOR")
	_, _ = fmt.Fprintln(w, "-----\t------")
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", k, aliases[k])
	}
	_ = w.Flush()
}

func init() {
	factorsCmd.Flags().Bool("aliases", false, "also list source aliases")
	rootCmd.AddCommand(factorsCmd)
}
