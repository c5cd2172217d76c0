package main

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
	"github.com/ironsheep/frame-guide-mcp/internal/verify"
)

func verifyCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify [cases.json]",
		Short: "Check labelled detections against the alignment analyzer",
		Long: `Run every case in a JSON file through the alignment analyzer with the
configured thresholds and report whether it reaches its expected frame
status. Exits non-zero when any case fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := verify.LoadCases(args[0])
			if err != nil {
				return err
			}

			thresholds := a.settings.AlignmentThresholds()
			report := verify.Run(cases, alignment.Options{
				Base:   &thresholds,
				Locale: a.settings.MessageLocale(),
			})
			a.log.WithField("passed", report.Passed).WithField("failed", report.Failed).Debug("verification done")

			out := cmd.OutOrStdout()
			if asJSON {
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if err := report.Write(out); err != nil {
				return err
			}

			if !report.OK() {
				return fmt.Errorf("%d of %d cases failed", report.Failed, len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
