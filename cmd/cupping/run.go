package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/beanlab/cupping/analysis"
	"github.com/beanlab/cupping/pkg/errors"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		dataSource string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a study and print its evaluation metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			study := analysis.DefaultStudy()
			if configPath != "" {
				loaded, err := analysis.LoadStudy(configPath)
				if err != nil {
					return err
				}
				study = loaded
			}
			if dataSource != "" {
				study.Source = dataSource
			}

			report, err := analysis.Run(cmd.Context(), study)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				printText(cmd, report)
			case "json":
				return printJSON(cmd, report)
			default:
				return errors.NewConfigError("run", "format", "must be text or json", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "study yaml file (default: built-in coffee study)")
	cmd.Flags().StringVar(&dataSource, "data", "", "dataset path or URL, overriding the study source")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text or json)")
	return cmd
}

func printText(cmd *cobra.Command, report *analysis.Report) {
	out := cmd.OutOrStdout()

	metrics := report.Metrics()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%-36s %v\n", k, metrics[k])
	}

	if c := report.Classification; c != nil {
		fmt.Fprintf(out, "\nConfusion matrix (rows = actual):\n")
		fmt.Fprintf(out, "%-12s", "")
		for _, lab := range c.Confusion.Labels {
			fmt.Fprintf(out, "%12s", lab)
		}
		fmt.Fprintln(out)
		for i, lab := range c.Confusion.Labels {
			fmt.Fprintf(out, "%-12s", lab)
			for j := range c.Confusion.Labels {
				fmt.Fprintf(out, "%12d", c.Confusion.Counts[i][j])
			}
			fmt.Fprintln(out)
		}
	}

	if g := report.Regression; g != nil {
		if len(g.Steps) > 0 {
			fmt.Fprintf(out, "\nBackward elimination:\n")
			for _, s := range g.Steps {
				fmt.Fprintf(out, "  - %s (AIC %.2f -> %.2f)\n", s.Removed, s.AICBefore, s.AICAfter)
			}
		}
		fmt.Fprintf(out, "\nFinal model (%s ~ %v):\n\n%s", g.Formula.Output, g.Formula.Inputs, g.Summary)
	}
}

func printJSON(cmd *cobra.Command, report *analysis.Report) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "encoding report")
	}
	return nil
}
