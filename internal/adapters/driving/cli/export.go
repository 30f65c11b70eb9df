package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// errRunFailed is returned after the summary when any resource failed.
var errRunFailed = errors.New("export finished with failures")

var exportCmd = &cobra.Command{
	Use:   "export [resource...]",
	Short: "Export resources to the configured sinks",
	Long: `Fetches every page of each resource, flattens the items into related
tables and writes them to the enabled sinks. With no arguments every
configured resource is exported.

A failing resource is reported and the export moves on. The command exits
non-zero if any resource failed or the credential was rejected.`,
	RunE: runExport,
}

var exportDryRun bool

func init() {
	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "Fetch and normalise without writing to any sink")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	svc := s.Export
	if exportDryRun {
		svc = s.DryRun
	}
	if svc == nil {
		return errNotConfigured
	}

	report, err := svc.Export(cmd.Context(), args)
	if report != nil {
		cmd.Print(renderSummary(report, exportDryRun))
	}
	if err != nil {
		return err
	}
	if report.Failed() {
		return errRunFailed
	}
	return nil
}
