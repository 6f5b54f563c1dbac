package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resumatch/internal/store"
)

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [folder]",
		Short: "Index files in the resumes folder that are not indexed yet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(opts)
			if err != nil {
				return err
			}
			defer a.close()
			var report store.RebuildReport
			if len(args) == 1 {
				report, err = a.svc.RebuildFolder(args[0])
			} else {
				report, err = a.svc.Rebuild()
			}
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file|glob>...",
		Short: "Index resume files in place",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(opts)
			if err != nil {
				return err
			}
			defer a.close()
			printReport(cmd, a.svc.IngestFiles(args))
			return nil
		},
	}
}

// printReport writes the outcome to stdout. Skips are already logged by the store.
func printReport(cmd *cobra.Command, report store.RebuildReport) {
	out := cmd.OutOrStdout()
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "skipped %s: %v\n", s.Path, s.Err)
	}
	fmt.Fprintf(out, "added %d, skipped %d\n", report.Added, len(report.Skipped))
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed resumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApplication(opts)
			if err != nil {
				return err
			}
			defer a.close()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME")
			for _, r := range a.svc.ListResumes() {
				fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Filename)
			}
			return w.Flush()
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a resume from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.svc.DeleteResume(args[0]); err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
