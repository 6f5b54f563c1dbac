package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"resumatch/internal/tokenize"
	"resumatch/internal/tui"
)

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var (
		jobPath string
		title   string
		topK    int
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank indexed resumes against a job description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, err := readJob(cmd.InOrStdin(), jobPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(description) == "" {
				return fmt.Errorf("job description is empty")
			}
			a, err := newApplication(opts)
			if err != nil {
				return err
			}
			defer a.close()
			receipt, err := a.svc.SetJob(title, description)
			if err != nil {
				return err
			}
			if topK == 0 {
				topK = a.svc.DefaultTopK()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job summary: %s\n\n", tokenize.Flatten(receipt.Summary))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tSCORE\tFILENAME\tSNIPPET")
			for i, m := range a.svc.TopMatches(topK) {
				fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", i+1, m.Score, m.Filename, tokenize.Prefix(tokenize.Flatten(m.Snippet), 80))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&jobPath, "job", "-", "job description file, - for stdin")
	cmd.Flags().StringVar(&title, "title", "", "job title prepended to the description")
	cmd.Flags().IntVarP(&topK, "top", "n", 0, "number of resumes to show (default matching.default_top_k)")
	return cmd
}

func readJob(stdin io.Reader, path string) (string, error) {
	if path == "-" || path == "" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read job description: %w", err)
	}
	return string(b), nil
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive job description search",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			opts.quiet = true
			a, err := newApplication(opts)
			if err != nil {
				return err
			}
			defer a.close()
			header := fmt.Sprintf("%d resumes indexed from %s", len(a.svc.ListResumes()), a.cfg.ResumesPath())
			m := tui.New(a.svc, a.svc.DefaultTopK()*2, header)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
